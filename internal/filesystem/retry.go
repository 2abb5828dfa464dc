// Package filesystem provides retry, error classification and atomic
// publication helpers for the shared media filesystem.
package filesystem

import (
	"context"
	"fmt"
	"os"
	"time"

	"media-variants/internal/logging"
	"media-variants/internal/metrics"
)

// Policy configures retry behavior for a fallible operation.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy returns sensible defaults for plain filesystem calls
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
	}
}

// ImagePolicy is used around image variant rendering.
func ImagePolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// VideoPolicy is used around ffmpeg frame extraction and transcoding.
func VideoPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Delay returns the sleep before the attempt following attempt (1-based):
// min(MaxDelay, BaseDelay * 2^(attempt-1)).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, returns a non-retryable error, or the policy
// runs out of attempts. label names the operation in logs and metrics and
// must be low cardinality.
func Do(ctx context.Context, label string, p Policy, fn func(attempt int) error) error {
	_, err := DoValue(ctx, label, p, func(attempt int) (struct{}, error) {
		return struct{}{}, fn(attempt)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, label string, p Policy, fn func(attempt int) (T, error)) (T, error) {
	start := time.Now()
	defer func() {
		metrics.RetryDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logging.Info("%s succeeded on attempt %d", label, attempt)
				metrics.RetrySuccess.WithLabelValues(label).Inc()
			}
			return v, nil
		}

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt >= maxAttempts {
			logging.Warn("%s failed after %d attempts: %v", label, attempt, err)
			metrics.RetryFailures.WithLabelValues(label).Inc()
			return zero, fmt.Errorf("%s failed after %d attempts: %w", label, attempt, err)
		}

		delay := p.Delay(attempt)
		metrics.RetryAttempts.WithLabelValues(label).Inc()
		logging.Debug("%s: %s error %v, retrying in %v (attempt %d/%d)",
			label, KindOf(err), err, delay, attempt, maxAttempts)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%s interrupted: %w", label, ctx.Err())
		case <-timer.C:
		}
	}
}

// StatWithRetry performs os.Stat, retrying transient failures
func StatWithRetry(ctx context.Context, path string, p Policy) (os.FileInfo, error) {
	return DoValue(ctx, "stat", p, func(int) (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// OpenWithRetry performs os.Open, retrying transient failures
func OpenWithRetry(ctx context.Context, path string, p Policy) (*os.File, error) {
	return DoValue(ctx, "open", p, func(int) (*os.File, error) {
		return os.Open(path)
	})
}
