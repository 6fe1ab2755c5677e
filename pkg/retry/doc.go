// Package retry provides exponential backoff and retry logic for handling
// transient failures in wiki API calls.
//
// Two budgets are tracked independently:
//   - ordinary transient failures (network errors, 5xx) are bounded by
//     MaxAttempts and wait on Backoff
//   - throttling signals (HTTP 429, MediaWiki ratelimited/maxlag) are bounded
//     by MaxThrottleRetries and wait on ThrottleBackoff, or longer if the
//     server sent Retry-After
//
// Exhausting either budget returns an error wrapping ErrRetriesExhausted.
//
// Basic usage:
//
//	err := retry.Do(func() error {
//		return client.getOnce(ctx, params, &out)
//	}, retry.DefaultConfig().WithContext(ctx))
//
//	if errors.Is(err, retry.ErrRetriesExhausted) {
//		// abort the crawl
//	}
package retry
