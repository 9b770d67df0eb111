package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/docverify/internal/common"
)

const dialTimeout = 3 * time.Second

// Open returns the summary cache selected by cfg.Driver.
func Open(ctx context.Context, cfg common.CacheConfig, logger *slog.Logger) (SummaryRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("repository.summaries.open", "driver", cfg.Driver, "ttl", cfg.TTL.String())

	switch cfg.Driver {
	case "", "none":
		return NewNopSummaryRepository(), nil
	case "memory":
		return NewMemorySummaryRepository(cfg.TTL, logger), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.DSN, cfg.TTL, logger)
	case "postgres":
		return openPostgres(ctx, cfg.DSN, cfg.TTL, logger)
	case "redis":
		return openRedis(ctx, cfg.DSN, cfg.TTL, logger)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// OpenSQLite opens (or creates) a SQLite-backed summary cache at dsn.
func OpenSQLite(ctx context.Context, dsn string, ttl time.Duration, logger *slog.Logger) (SummaryRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to open sqlite cache", "error", err)
		return nil, err
	}
	// one writer avoids SQLITE_BUSY under fan-out
	db.SetMaxOpenConns(1)
	if err := HealthCheck(ctx, db, dialTimeout, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := newSQLSummaryRepository(ctx, db, dialect.SQLite, ttl, nil, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// openPostgres creates a pgx pool and wraps it as *sql.DB for the SQL builder.
func openPostgres(ctx context.Context, dsn string, ttl time.Duration, logger *slog.Logger) (SummaryRepository, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("failed to parse postgres dsn", "error", err)
		return nil, err
	}
	pc.MaxConns = 10
	pc.MinConns = 1
	pc.MaxConnLifetime = 30 * time.Minute
	pc.MaxConnIdleTime = 5 * time.Minute
	pc.ConnConfig.RuntimeParams["application_name"] = "docverify"

	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	closeAll := func() error {
		err := db.Close()
		pool.Close()
		return err
	}
	if err := HealthCheck(ctx, db, dialTimeout, logger); err != nil {
		_ = closeAll()
		return nil, err
	}
	repo, err := newSQLSummaryRepository(ctx, db, dialect.Postgres, ttl, closeAll, logger)
	if err != nil {
		_ = closeAll()
		return nil, err
	}
	logger.Info("successfully connected to database")
	return repo, nil
}

func openRedis(ctx context.Context, url string, ttl time.Duration, logger *slog.Logger) (SummaryRepository, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		logger.Error("failed to parse redis url", "error", err)
		return nil, err
	}
	rdb := redis.NewClient(opt)

	pctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		logger.Error("failed to ping redis", "error", err)
		return nil, err
	}
	return newRedisSummaryRepository(rdb, ttl, logger), nil
}

// HealthCheck pings the database to catch DSN issues early.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}
