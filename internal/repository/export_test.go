package repository

import (
	"context"
	"time"
)

// SetClock overrides the clock of a SQL-backed repository.
func SetClock(r SummaryRepository, now func() time.Time) {
	r.(*sqlSummaryRepo).now = now
}

// PurgeExpired runs expired-row cleanup on a SQL-backed repository.
func PurgeExpired(ctx context.Context, r SummaryRepository) (int64, error) {
	return r.(*sqlSummaryRepo).Purge(ctx)
}
