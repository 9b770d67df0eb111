package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/async"
	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/llm"
	"github.com/joseph-ayodele/docverify/internal/repository"
)

// SummarizeStage condenses every page concurrently.
//
// By default a page whose summary fails is dropped and the run continues as
// long as one page succeeded. With Strict set, any page failure aborts.
type SummarizeStage struct {
	Gateway     llm.Gateway
	Retry       RetryPolicy
	Cache       repository.SummaryRepository
	Model       string
	Workers     int
	CallTimeout time.Duration
	Strict      bool
	Logger      *slog.Logger
}

func NewSummarizeStage(gw llm.Gateway, cfg Config, cache repository.SummaryRepository, logger *slog.Logger) *SummarizeStage {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = repository.NewNopSummaryRepository()
	}
	return &SummarizeStage{
		Gateway:     gw,
		Retry:       cfg.Retry,
		Cache:       cache,
		Model:       cfg.Model,
		Workers:     cfg.Concurrency,
		CallTimeout: cfg.CallTimeout,
		Strict:      cfg.StrictSummaries,
		Logger:      logger,
	}
}

func (s *SummarizeStage) Name() constants.Stage { return constants.StageSummarize }
func (s *SummarizeStage) Writes() Field         { return FieldSummaries }

func (s *SummarizeStage) Run(ctx context.Context, sess entity.Session) (Update, error) {
	if len(sess.Pages) == 0 {
		return Update{}, ErrNoPages
	}

	outcomes := async.RunAll(ctx, sess.Pages, s.summarizePage,
		async.WithWorkers(s.Workers),
		async.WithTaskTimeout(s.CallTimeout),
		async.WithLogger(s.Logger),
		async.WithName(string(constants.StageSummarize)),
	)

	if s.Strict {
		if err := async.FirstError(outcomes); err != nil {
			return Update{}, fmt.Errorf("summarize pages: %w", err)
		}
	}
	summaries := async.Values(outcomes)
	if len(summaries) == 0 {
		if err := async.FirstError(outcomes); err != nil {
			return Update{}, fmt.Errorf("%w: %v", ErrNoSummaries, err)
		}
		return Update{}, ErrNoSummaries
	}

	s.Logger.Info("pipeline.summarize.done", "pages", len(sess.Pages), "summaries", len(summaries))

	var u Update
	u.SetSummaries(summaries)
	return u, nil
}

func (s *SummarizeStage) summarizePage(ctx context.Context, page entity.PageContent) (entity.PageSummary, error) {
	if strings.TrimSpace(page.RawText) == "" {
		s.Logger.Debug("pipeline.summarize.blank_page", "page", page.PageNumber)
		return entity.PageSummary{}, async.ErrSkip
	}

	key := repository.SummaryKey(s.Model, page)
	if cached, ok, err := s.Cache.Get(ctx, key); err != nil {
		s.Logger.Warn("pipeline.summarize.cache_get_failed", "page", page.PageNumber, "error", err)
	} else if ok {
		s.Logger.Debug("pipeline.summarize.cache_hit", "page", page.PageNumber)
		return cached, nil
	}

	matchesPage := func(p llm.PageSummaryPayload) error {
		if p.PageNumber != page.PageNumber {
			return fmt.Errorf("%w: want %d, got %d", ErrPageMismatch, page.PageNumber, p.PageNumber)
		}
		return nil
	}
	payload, err := Call[llm.PageSummaryPayload](ctx, s.Gateway, s.Retry, llm.BuildSummaryPrompt(page), s.Logger, matchesPage)
	if err != nil {
		return entity.PageSummary{}, fmt.Errorf("page %d: %w", page.PageNumber, err)
	}

	summary := payload.ToEntity()
	if err := s.Cache.Put(ctx, key, summary); err != nil {
		s.Logger.Warn("pipeline.summarize.cache_put_failed", "page", page.PageNumber, "error", err)
	}
	return summary, nil
}
