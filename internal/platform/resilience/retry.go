package resilience

import (
	"context"
	"math/rand"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/match-tracker/internal/platform/logging"
)

type transientMarker struct{ err error }

func (t *transientMarker) Error() string { return t.err.Error() }
func (t *transientMarker) Unwrap() error { return t.err }

// MarkTransient tags an error as retryable. Retry only re-attempts
// operations whose error carries this tag.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientMarker{err: err}
}

func IsTransient(err error) bool {
	var m *transientMarker
	return crerr.As(err, &m)
}

// Retry runs fn up to cfg.MaxAttempts times, sleeping with exponential
// backoff between attempts. Non-transient errors abort immediately.
func Retry(ctx context.Context, cfg RetryConfig, logger *logging.Logger, op string, fn func(ctx context.Context) error) error {
	cfg = NormalizeRetryConfig(cfg)
	if logger == nil {
		logger = logging.Default()
	}

	backoff := cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := backoff
		if cfg.Jitter {
			// up to 10% of the base wait, so concurrent retriers spread out
			wait += time.Duration(rand.Int63n(int64(backoff)/10 + 1))
		}

		logger.WarnContext(ctx, "retrying after transient failure",
			"operation", op,
			"attempt", attempt,
			"wait", wait,
			"error", lastErr,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return crerr.Wrapf(lastErr, "%s: retries exhausted after %d attempts", op, cfg.MaxAttempts)
}
