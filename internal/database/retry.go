package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/locvowork/tasktracker/internal/logger"
)

// ConstantBackoff returns a backoff function that always returns the same duration.
func ConstantBackoff(d time.Duration) func(int) time.Duration {
	return func(_ int) time.Duration {
		return d
	}
}

// ExponentialBackoff returns a backoff function that increases the duration exponentially.
// backoff = initial * 2^(attempt-1)
func ExponentialBackoff(initial time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt <= 1 {
			return initial
		}
		return initial * time.Duration(1<<(attempt-1))
	}
}

// pingWithRetry checks connectivity, retrying up to maxRetries extra times.
// Only startup uses this; request-time failures are never retried.
func pingWithRetry(ctx context.Context, db *sql.DB, maxRetries int, backoff func(int) time.Duration) error {
	err := db.PingContext(ctx)
	for attempt := 1; err != nil && attempt <= maxRetries; attempt++ {
		wait := backoff(attempt)
		logger.WarnLog(ctx, "database ping failed (attempt %d/%d), retrying in %s: %v", attempt, maxRetries, wait, err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		err = db.PingContext(ctx)
	}
	return err
}
