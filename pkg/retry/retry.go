package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "wikiglossary/pkg/errors"
	"wikiglossary/pkg/logger"
)

// ErrRetriesExhausted marks a failure after every allowed attempt was used.
// The pipeline treats it as fatal.
var ErrRetriesExhausted = errors.New("retry budget exhausted")

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Config holds retry configuration
type Config struct {
	// MaxAttempts bounds attempts that fail for ordinary transient reasons
	// (0 means unlimited)
	MaxAttempts int
	// MaxThrottleRetries bounds retries after throttling signals. Throttled
	// attempts never count against MaxAttempts. (0 means unlimited)
	MaxThrottleRetries int
	// Backoff is used for ordinary transient failures
	Backoff BackoffStrategy
	// ThrottleBackoff is used after throttling signals
	ThrottleBackoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// IsThrottled identifies throttling errors
	IsThrottled func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context for cancellation
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:        3,
		MaxThrottleRetries: 8,
		Backoff:            DefaultExponentialBackoff(),
		ThrottleBackoff:    DefaultThrottleBackoff(),
		RetryIf:            DefaultRetryIf,
		IsThrottled:        errs.IsThrottled,
		Context:            context.Background(),
		Logger:             logger.GetLogger(),
	}
}

// WithContext returns a copy of the config bound to ctx
func (c *Config) WithContext(ctx context.Context) *Config {
	cfg := *c
	cfg.Context = ctx
	return &cfg
}

// DefaultRetryIf is the default retry predicate
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}

	// Default to retrying unknown errors
	return true
}

// Do executes an operation with retry logic
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	attempts := 0
	throttles := 0

	for {
		err := op()
		if err == nil {
			if (attempts > 0 || throttles > 0) && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempts":  attempts + 1,
					"throttles": throttles,
				})
			}
			return nil
		}

		if !retryIf(err) {
			return err
		}

		var delay time.Duration
		if cfg.IsThrottled != nil && cfg.IsThrottled(err) {
			throttles++
			if cfg.MaxThrottleRetries > 0 && throttles > cfg.MaxThrottleRetries {
				logExhausted(cfg, "throttle", throttles-1, err)
				return fmt.Errorf("%w: throttled %d times: %w", ErrRetriesExhausted, throttles, err)
			}
			delay = nextDelay(cfg.ThrottleBackoff, DefaultThrottleBackoff(), throttles)
			if after := errs.RetryAfterOf(err); after > delay {
				delay = after
			}
		} else {
			attempts++
			if cfg.MaxAttempts > 0 && attempts >= cfg.MaxAttempts {
				logExhausted(cfg, "transient", attempts, err)
				return fmt.Errorf("%w: max retry attempts (%d) exceeded: %w", ErrRetriesExhausted, cfg.MaxAttempts, err)
			}
			delay = nextDelay(cfg.Backoff, DefaultExponentialBackoff(), attempts)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempts+throttles, err, delay)
		}

		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempts,
				"throttles":    throttles,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": cfg.MaxAttempts,
			})
		}

		if err := Wait(ctx, delay); err != nil {
			if cfg.Logger != nil {
				cfg.Logger.WarnWithFields("retry cancelled", map[string]interface{}{
					"attempt": attempts,
					"reason":  err.Error(),
				})
			}
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)

	return result, err
}

func nextDelay(strategy, fallback BackoffStrategy, attempt int) time.Duration {
	if strategy == nil {
		strategy = fallback
	}
	return strategy.NextDelay(attempt)
}

func logExhausted(cfg *Config, kind string, attempts int, err error) {
	if cfg.Logger == nil {
		return
	}
	cfg.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
		"kind":       kind,
		"attempts":   attempts,
		"last_error": err.Error(),
	})
}
