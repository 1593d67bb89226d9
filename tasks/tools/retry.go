package tools

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"research-orchestrator/logger"
)

// RetryPolicy retries an operation a bounded number of times with a fixed delay.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	// Retryable decides whether an error is worth another attempt.
	// When nil, IsRetryable is used.
	Retryable func(error) bool
	Logger    *logger.Logger
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempts
// run out, or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	if p.MaxAttempts <= 1 {
		return fn(ctx)
	}

	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%s: %w (last error: %v)", operation, err, lastErr)
			}
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		p.Logger.Debug("retrying tool call", map[string]any{
			"operation": operation,
			"attempt":   attempt,
			"error":     err.Error(),
		})

		timer := time.NewTimer(p.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w (last error: %v)", operation, ctx.Err(), lastErr)
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, p.MaxAttempts, lastErr)
}

// IsRetryable reports transport failures, server errors and rate limiting.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
