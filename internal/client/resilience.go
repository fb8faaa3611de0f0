package client

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

const (
	DefaultAttempts        = 3
	DefaultBaseDelay       = 2 * time.Second
	DefaultCallTimeout     = 15 * time.Second
	DefaultAnalysisTimeout = 45 * time.Second
)

// RetryConfig controls CallWithResilience.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
	// Timeout bounds each individual call.
	Timeout time.Duration
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is told about each failed attempt that will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig returns 3 attempts, a 2s base delay and a 15s call timeout.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: DefaultAttempts, BaseDelay: DefaultBaseDelay, Timeout: DefaultCallTimeout}
}

// CallWithResilience runs fn with a per-call timeout. Only timeout-classified
// failures are retried; the delay grows linearly (base, 2*base, ...). When
// the budget is spent the last error is returned.
func CallWithResilience[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCallTimeout
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		out, err := callOnce(ctx, cfg.Timeout, fn)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !IsTimeout(err) || ctx.Err() != nil {
			return zero, err
		}
		if attempt == cfg.Attempts-1 {
			break
		}

		delay := cfg.BaseDelay * time.Duration(attempt+1)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

func callOnce[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}

// IsTimeout classifies an error as a timeout or abort. A decoded server
// answer is never one, whatever its message says.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var failed *AnalysisFailedError
	var apiErr *APIError
	if errors.As(err, &failed) || errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "abort")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
