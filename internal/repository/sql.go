package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/docverify/internal/entity"
)

const summariesTable = "page_summaries"

const createSummariesTable = `CREATE TABLE IF NOT EXISTS page_summaries (
	cache_key   TEXT PRIMARY KEY,
	page_number INTEGER NOT NULL,
	payload     TEXT NOT NULL,
	created_at  BIGINT NOT NULL,
	expires_at  BIGINT NOT NULL
)`

// sqlSummaryRepo stores summaries in a relational table. Statements are
// built with ent's SQL builder so one implementation serves both dialects.
type sqlSummaryRepo struct {
	db      *sql.DB
	dialect string
	ttl     time.Duration
	logger  *slog.Logger
	closeFn func() error
	now     func() time.Time
}

func newSQLSummaryRepository(ctx context.Context, db *sql.DB, dialectName string, ttl time.Duration, closeFn func() error, logger *slog.Logger) (*sqlSummaryRepo, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if closeFn == nil {
		closeFn = db.Close
	}
	if _, err := db.ExecContext(ctx, createSummariesTable); err != nil {
		logger.Error("repository.summaries.migrate_failed", "dialect", dialectName, "error", err)
		return nil, fmt.Errorf("create %s: %w", summariesTable, err)
	}
	return &sqlSummaryRepo{
		db:      db,
		dialect: dialectName,
		ttl:     ttl,
		logger:  logger,
		closeFn: closeFn,
		now:     time.Now,
	}, nil
}

func (r *sqlSummaryRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.dialect)
}

func (r *sqlSummaryRepo) Get(ctx context.Context, key string) (entity.PageSummary, bool, error) {
	query, args := r.builder().
		Select("payload").
		From(r.builder().Table(summariesTable)).
		Where(entsql.And(
			entsql.EQ("cache_key", key),
			entsql.GT("expires_at", r.now().Unix()),
		)).
		Query()

	var payload string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.PageSummary{}, false, nil
	}
	if err != nil {
		r.logger.Error("repository.summaries.get_failed", "key", key, "error", err)
		return entity.PageSummary{}, false, err
	}

	var s entity.PageSummary
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return entity.PageSummary{}, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return s, true, nil
}

func (r *sqlSummaryRepo) Put(ctx context.Context, key string, summary entity.PageSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	now := r.now()
	query, args := r.builder().
		Insert(summariesTable).
		Columns("cache_key", "page_number", "payload", "created_at", "expires_at").
		Values(key, summary.PageNumber, string(payload), now.Unix(), now.Add(r.ttl).Unix()).
		OnConflict(
			entsql.ConflictColumns("cache_key"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("repository.summaries.put_failed", "key", key, "page", summary.PageNumber, "error", err)
		return err
	}
	return nil
}

// Purge deletes expired rows and reports how many were removed.
func (r *sqlSummaryRepo) Purge(ctx context.Context) (int64, error) {
	query, args := r.builder().
		Delete(summariesTable).
		Where(entsql.LTE("expires_at", r.now().Unix())).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sqlSummaryRepo) Close() error {
	return r.closeFn()
}
