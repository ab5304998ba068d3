package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies provider failures
type ErrorKind string

const (
	// KindRateLimited is a quota or rate-limit rejection
	KindRateLimited ErrorKind = "rate_limited"
	// KindTimeout is a call that did not finish within its deadline
	KindTimeout ErrorKind = "timeout"
	// KindUnavailable is a transient server-side failure (5xx, overloaded)
	KindUnavailable ErrorKind = "unavailable"
	// KindInvalidResponse is a response that arrived but cannot be used
	KindInvalidResponse ErrorKind = "invalid_response"
	// KindAuth is a rejected credential
	KindAuth ErrorKind = "auth"
	// KindUnknown is anything else
	KindUnknown ErrorKind = "unknown"
)

// ProviderError represents a failed model call
type ProviderError struct {
	Provider   Provider
	Kind       ErrorKind
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure is transient
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindUnavailable:
		return true
	default:
		return false
	}
}

// RetryExhaustedError is returned when every attempt of a call failed with a transient error
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}

// InvalidResponse builds a ProviderError for a response that cannot be used
func InvalidResponse(provider Provider, message string) *ProviderError {
	return &ProviderError{Provider: provider, Kind: KindInvalidResponse, Message: message}
}

// AsProviderError returns err as a ProviderError, classifying unknown errors by
// their transport behavior.
func AsProviderError(provider Provider, err error) *ProviderError {
	if err == nil {
		return nil
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr
	}
	return &ProviderError{Provider: provider, Kind: classifyTransport(err), Cause: err}
}

// classifyStatus maps an HTTP status code onto an error kind
func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code >= 500:
		return KindUnavailable
	default:
		return KindUnknown
	}
}

// classifyTransport maps deadline and network errors onto an error kind
func classifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindUnknown
}
