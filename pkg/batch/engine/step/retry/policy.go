// Package retry implements the bounded, fixed-delay retry applied to row attempts.
package retry

import (
	"context"
	"time"

	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

// RetryPolicy decides whether a failed attempt is retried and how long to wait.
type RetryPolicy interface {
	// ShouldRetry reports whether err may succeed on another attempt.
	ShouldRetry(err error) bool
	// GetBackoffInterval returns the delay before the attempt following attempt (1-based).
	GetBackoffInterval(attempt int) time.Duration
	// GetMaxAttempts returns the total number of attempts, the first one included.
	GetMaxAttempts() int
}

// DefaultRetryPolicyFactory creates fixed-interval policies.
type DefaultRetryPolicyFactory struct{}

// NewDefaultRetryPolicyFactory creates a DefaultRetryPolicyFactory.
func NewDefaultRetryPolicyFactory() *DefaultRetryPolicyFactory {
	return &DefaultRetryPolicyFactory{}
}

// Create returns a policy allowing maxAttempts attempts spaced by interval.
// Transient errors are always retried; retryableExceptions adds registered error names.
func (f *DefaultRetryPolicyFactory) Create(maxAttempts int, interval time.Duration, retryableExceptions []string) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &defaultRetryPolicy{
		maxAttempts:         maxAttempts,
		interval:            interval,
		retryableExceptions: retryableExceptions,
	}
}

type defaultRetryPolicy struct {
	maxAttempts         int
	interval            time.Duration
	retryableExceptions []string
}

func (p *defaultRetryPolicy) GetMaxAttempts() int {
	return p.maxAttempts
}

func (p *defaultRetryPolicy) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if exception.IsTransient(err) {
		return true
	}
	for _, typeName := range p.retryableExceptions {
		if exception.IsErrorOfType(err, typeName) {
			return true
		}
	}
	return false
}

// GetBackoffInterval is constant: the delay does not grow with the attempt number.
func (p *defaultRetryPolicy) GetBackoffInterval(attempt int) time.Duration {
	return p.interval
}

// Do runs fn until it succeeds, fails with a non-retryable error, or exhausts the policy.
// It returns the last error together with the number of attempts made.
// Cancellation of ctx stops the wait between attempts.
func Do(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) (int, error) {
	var err error
	attempt := 0
	for attempt < policy.GetMaxAttempts() {
		attempt++
		if err = fn(ctx); err == nil {
			return attempt, nil
		}
		if !policy.ShouldRetry(err) || attempt >= policy.GetMaxAttempts() {
			break
		}

		delay := policy.GetBackoffInterval(attempt)
		logger.Debugf("Attempt %d/%d failed, retrying in %s: %v", attempt, policy.GetMaxAttempts(), delay, err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, err
		case <-timer.C:
		}
	}
	return attempt, err
}

var _ RetryPolicy = (*defaultRetryPolicy)(nil)
