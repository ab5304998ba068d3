package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// RetryPolicy bounds attempts for one model call
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Timer paces waits between attempts; nil uses a real timer
	Timer backoff.Timer
}

// DefaultRetryPolicy returns three attempts with 2s, 4s backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// backOff doubles from BaseDelay up to MaxDelay with no jitter, allowing
// MaxAttempts-1 retries and stopping when ctx is done
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = p.MaxDelay
	if exp.MaxInterval <= 0 {
		exp.MaxInterval = backoff.DefaultMaxInterval
	}
	exp.MaxElapsedTime = 0

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// Completion is the outcome of a Caller call. Attempts is set even when the call fails.
type Completion struct {
	Text     string
	Model    string
	Attempts int
}

// Caller resolves tiers to models and wraps a Client with per-call timeouts and retries
type Caller struct {
	Client  Client
	Config  *Config
	Policy  RetryPolicy
	Timeout time.Duration
	Log     logrus.FieldLogger
}

// Call runs prompt against the tier's model. Transient failures are retried up to
// Policy.MaxAttempts; exhausting them returns *RetryExhaustedError. Other failures
// return *ProviderError immediately.
func (c *Caller) Call(ctx context.Context, prompt string, tier ModelTier, jsonMode bool) (*Completion, error) {
	log := c.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	completion := &Completion{Model: c.Config.GetModel(tier)}
	req := Request{Prompt: prompt, Model: completion.Model, MaxTokens: c.Config.MaxTokens, JSON: jsonMode}

	var lastErr *ProviderError
	stopped := false
	operation := func() error {
		completion.Attempts++
		text, err := c.attempt(ctx, req)
		if err == nil {
			completion.Text = text
			return nil
		}

		lastErr = AsProviderError(c.Client.Provider(), err)
		if ctx.Err() != nil {
			// The caller gave up; no point retrying
			stopped = true
			return backoff.Permanent(lastErr)
		}
		if !lastErr.Retryable() {
			stopped = true
			log.WithFields(logrus.Fields{
				"model":   completion.Model,
				"attempt": completion.Attempts,
				"kind":    lastErr.Kind,
			}).WithError(lastErr).Warn("model call failed")
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}
	notify := func(_ error, delay time.Duration) {
		log.WithFields(logrus.Fields{
			"model":    completion.Model,
			"attempt":  completion.Attempts,
			"kind":     lastErr.Kind,
			"retry_in": delay,
		}).Warn("transient model error, retrying")
	}

	err := backoff.RetryNotifyWithTimer(operation, c.Policy.backOff(ctx), notify, c.Policy.Timer)
	switch {
	case err == nil:
		return completion, nil
	case lastErr == nil:
		return completion, err
	case stopped || ctx.Err() != nil:
		return completion, lastErr
	default:
		return completion, &RetryExhaustedError{Attempts: completion.Attempts, Last: lastErr}
	}
}

func (c *Caller) attempt(ctx context.Context, req Request) (string, error) {
	callCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	text, err := c.Client.Complete(callCtx, req)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		// The per-call deadline fired, whatever the SDK wrapped it in
		return "", &ProviderError{Provider: c.Client.Provider(), Kind: KindTimeout, Message: "call exceeded " + c.Timeout.String(), Cause: err}
	}
	return text, err
}
