package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/docverify/internal/entity"
)

const redisKeyPrefix = "docverify:summary:"

type redisSummaryRepo struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func newRedisSummaryRepository(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *redisSummaryRepo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisSummaryRepo{rdb: rdb, ttl: ttl, logger: logger}
}

// RedisKey namespaces a summary cache key.
func RedisKey(key string) string { return redisKeyPrefix + key }

func (r *redisSummaryRepo) Get(ctx context.Context, key string) (entity.PageSummary, bool, error) {
	raw, err := r.rdb.Get(ctx, RedisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity.PageSummary{}, false, nil
	}
	if err != nil {
		r.logger.Error("repository.summaries.get_failed", "backend", "redis", "key", key, "error", err)
		return entity.PageSummary{}, false, err
	}
	var s entity.PageSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return entity.PageSummary{}, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return s, true, nil
}

func (r *redisSummaryRepo) Put(ctx context.Context, key string, summary entity.PageSummary) error {
	b, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := r.rdb.Set(ctx, RedisKey(key), b, r.ttl).Err(); err != nil {
		r.logger.Error("repository.summaries.put_failed", "backend", "redis", "key", key, "error", err)
		return err
	}
	return nil
}

func (r *redisSummaryRepo) Close() error {
	return r.rdb.Close()
}
