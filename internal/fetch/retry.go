package fetch

import (
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"time"
)

// RetryPolicy decides how many attempts a fetch gets and how long to wait
// between them. Transport errors back off exponentially with jitter; rate
// limits wait a larger, linear-with-attempt interval.
type RetryPolicy struct {
	maxAttempts   int
	baseDelay     time.Duration
	maxDelay      time.Duration
	rateLimitStep time.Duration
}

// NewRetryPolicy builds a policy with sane defaults: three attempts,
// 250ms base delay capped at 5s, and a 5s-per-attempt rate-limit lane.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		maxAttempts:   3,
		baseDelay:     250 * time.Millisecond,
		maxDelay:      5 * time.Second,
		rateLimitStep: 5 * time.Second,
	}
}

// NewRetryPolicyWith builds a policy from explicit knobs, falling back to
// defaults for non-positive values.
func NewRetryPolicyWith(maxAttempts int, baseDelay, maxDelay, rateLimitStep time.Duration) *RetryPolicy {
	p := NewRetryPolicy()
	if maxAttempts > 0 {
		p.maxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		p.baseDelay = baseDelay
	}
	if maxDelay > 0 {
		p.maxDelay = maxDelay
	}
	if rateLimitStep > 0 {
		p.rateLimitStep = rateLimitStep
	}
	return p
}

// MaxAttempts returns the attempt bound.
func (p *RetryPolicy) MaxAttempts() int { return p.maxAttempts }

// ShouldRetry decides whether the error is retryable at the given attempt
// (1-based).
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	return retryable(err)
}

// Backoff returns the wait before the next attempt. Rate limits get the
// linear lane keyed to the attempt number; everything else gets jittered
// exponential backoff.
func (p *RetryPolicy) Backoff(err error, attempt int) time.Duration {
	var re *RateLimitedError
	if errors.As(err, &re) {
		return time.Duration(attempt)*p.rateLimitStep + p.randomJitter(3*time.Second)
	}
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	return time.Duration(delay/2) + p.randomJitter(time.Duration(delay)/2)
}

func (p *RetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
