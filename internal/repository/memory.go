package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/joseph-ayodele/docverify/internal/entity"
)

type memorySummaryRepo struct {
	cache  *cache.Cache
	logger *slog.Logger
}

// NewMemorySummaryRepository keeps summaries in process memory for ttl.
func NewMemorySummaryRepository(ttl time.Duration, logger *slog.Logger) SummaryRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	// purge expired items every 10 minutes
	return &memorySummaryRepo{cache: cache.New(ttl, 10*time.Minute), logger: logger}
}

func (r *memorySummaryRepo) Get(_ context.Context, key string) (entity.PageSummary, bool, error) {
	if x, found := r.cache.Get(key); found {
		return cloneSummary(x.(entity.PageSummary)), true, nil
	}
	return entity.PageSummary{}, false, nil
}

func (r *memorySummaryRepo) Put(_ context.Context, key string, summary entity.PageSummary) error {
	r.cache.Set(key, cloneSummary(summary), cache.DefaultExpiration)
	return nil
}

func (r *memorySummaryRepo) Close() error {
	r.cache.Flush()
	return nil
}

func cloneSummary(s entity.PageSummary) entity.PageSummary {
	s.KeyPoints = append([]string(nil), s.KeyPoints...)
	return s
}
