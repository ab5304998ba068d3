// Package sources provides the source adapters that discover raw job postings:
// a static CSV export, Indeed and LinkedIn scraping, and web search across job portals.
package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/job-digest/internal/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrNotConfigured marks an adapter that is enabled but lacks what it needs to run.
var ErrNotConfigured = errors.New("adapter not configured")

// ErrTimeout marks an adapter that did not finish within its time budget.
var ErrTimeout = errors.New("adapter timed out")

// Adapter fetches raw postings from one source.
type Adapter interface {
	// Kind identifies the adapter family
	Kind() types.SourceKind
	// Fetch returns the raw records found. A non-nil error means the source failed as a whole.
	Fetch(ctx context.Context) ([]types.RawRecord, error)
}

// AdapterError represents a source that could not be fetched
type AdapterError struct {
	Source  types.SourceKind
	Message string
	Cause   error
}

func (e *AdapterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("source %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("source %s: %s", e.Source, e.Message)
}

func (e *AdapterError) Unwrap() error {
	return e.Cause
}

// Outcome is the result of running one adapter.
type Outcome struct {
	Source   types.SourceKind
	Records  []types.RawRecord
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Failed reports whether the adapter ran and failed.
func (o Outcome) Failed() bool {
	return o.Err != nil && !o.Skipped
}

// FanOut runs every adapter concurrently, each bounded by timeout, and returns one
// Outcome per adapter in input order. A slow or failing adapter never affects the others.
func FanOut(ctx context.Context, adapters []Adapter, timeout time.Duration, log logrus.FieldLogger) []Outcome {
	if log == nil {
		log = logrus.StandardLogger()
	}
	outcomes := make([]Outcome, len(adapters))

	var g errgroup.Group
	for i, adapter := range adapters {
		g.Go(func() error {
			start := time.Now()
			records, err := runWithTimeout(ctx, adapter, timeout)
			outcomes[i] = Outcome{
				Source:   adapter.Kind(),
				Records:  records,
				Err:      err,
				Duration: time.Since(start),
			}

			entry := log.WithFields(logrus.Fields{
				"source":   adapter.Kind(),
				"records":  len(records),
				"duration": outcomes[i].Duration.Round(time.Millisecond),
			})
			if err != nil {
				entry.WithError(err).Warn("source failed")
			} else {
				entry.Info("source fetched")
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func runWithTimeout(ctx context.Context, adapter Adapter, timeout time.Duration) ([]types.RawRecord, error) {
	actx := ctx
	cancel := func() {}
	if timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	type result struct {
		records []types.RawRecord
		err     error
	}
	done := make(chan result, 1)
	go func() {
		records, err := adapter.Fetch(actx)
		done <- result{records: records, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			return r.records, nil
		}
		var adapterErr *AdapterError
		if errors.As(r.err, &adapterErr) {
			return nil, r.err
		}
		return nil, &AdapterError{Source: adapter.Kind(), Message: "fetch failed", Cause: r.err}
	case <-actx.Done():
		// The adapter goroutine exits once its in-flight requests observe the cancellation
		return nil, &AdapterError{Source: adapter.Kind(), Message: fmt.Sprintf("no result within %s", timeout), Cause: ErrTimeout}
	}
}
