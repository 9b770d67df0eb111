package server

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/repository"
)

// ConnectCache opens the page-summary cache selected by cfg.Driver.
func ConnectCache(ctx context.Context, cfg common.CacheConfig, logger *slog.Logger) (repository.SummaryRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to summary cache", "driver", cfg.Driver)
	repo, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open summary cache", "driver", cfg.Driver, "error", err)
		return nil, common.WrapError(err, "open summary cache")
	}
	logger.Info("summary cache ready", "driver", cfg.Driver, "ttl", cfg.TTL)
	return repo, nil
}

// CloseCache releases the cache's connections.
func CloseCache(repo repository.SummaryRepository, logger *slog.Logger) {
	if repo == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing summary cache")
	if err := repo.Close(); err != nil {
		logger.Error("failed to close summary cache", "error", err)
		return
	}
	logger.Info("summary cache closed")
}
