package fetch

import (
	"errors"
	"fmt"
)

// ErrUnreachable marks a URL that stayed unavailable after all retry
// attempts. Callers decide whether that is fatal (the scope-defining first
// page) or merely reduces coverage (a later page or a detail page).
var ErrUnreachable = errors.New("unreachable after retries")

// TransportError wraps a network-level failure (DNS, TLS, timeout). Retried
// with exponential backoff.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimitedError reports an HTTP 429. Retried with a longer, linear wait.
type RateLimitedError struct {
	URL string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited fetching %s", e.URL)
}

// RequestError reports a request that could not be issued at all (malformed
// URL, disallowed scheme). Never retried; no number of attempts fixes a bad
// request.
type RequestError struct {
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("cannot request %s: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// StatusError reports any other non-2xx status. Never retried; an unexpected
// status signals a logic or auth problem, not transience.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// retryable reports whether the error class is worth another attempt.
func retryable(err error) bool {
	var te *TransportError
	var re *RateLimitedError
	return errors.As(err, &te) || errors.As(err, &re)
}
