// Package reliability wraps stores with retry-with-backoff and ships
// SQLite snapshots to object storage.
package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/rs/zerolog"
)

// RetryPolicy bounds how often and how slowly a store call is retried
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	// MaxDelay caps the backoff between attempts; zero means no cap
	MaxDelay time.Duration
}

// delay returns the backoff before attempt n (n >= 1)
func (p RetryPolicy) delay(n int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < n && i < 32; i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// retry runs fn until it succeeds, returns a permanent error, or attempts run out.
// Exhaustion is reported as domain.ErrStoreUnavailable wrapping the last error.
func retry(ctx context.Context, policy RetryPolicy, log zerolog.Logger, op string, fn func(ctx context.Context) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := policy.delay(attempt)
			log.Debug().
				Err(lastErr).
				Str("op", op).
				Int("attempt", attempt+1).
				Dur("backoff", wait).
				Msg("Retrying store call")

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, ctx.Err())
			case <-timer.C:
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if domain.IsPermanentStoreError(err) {
			return err
		}
		lastErr = err
	}

	log.Warn().Err(lastErr).Str("op", op).Int("attempts", attempts).Msg("Store call failed after retries")
	return fmt.Errorf("%w: %s failed after %d attempts: %v", domain.ErrStoreUnavailable, op, attempts, lastErr)
}
