// Package retry runs an operation with exponential backoff.
//
// Features:
//   - jitter strategies (None, Equal, Decorrelated)
//   - attempt and elapsed-time budgets
//   - network error detection (DefaultRetryable)
//   - server-imposed delays through errors implementing DelayHinter
//   - an OnRetry hook and injectable clock for tests
//
// Usage:
//
//	cfg := retry.DefaultConfig()
//	cfg.OnRetry = func(attempt int, err error, d time.Duration) {
//	    log.Warn("retrying", "attempt", attempt, "delay", d, "error", err)
//	}
//	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
//	    return call(ctx)
//	})
//
// internal/platform/httpclient builds its HTTP retries on this package and
// internal/platform/sqlite uses it to retry SQLITE_BUSY transactions.
package retry
