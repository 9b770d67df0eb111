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
)

// VerifiedResultsHeader starts the final assistant message.
const VerifiedResultsHeader = "Verified Results:\n\n"

// VerifyStage checks every search result against the raw text of its claimed page.
// Results with an unknown page, an unparseable verdict or a negative verdict are dropped.
type VerifyStage struct {
	Gateway     llm.Gateway
	Retry       RetryPolicy
	Workers     int
	CallTimeout time.Duration
	Logger      *slog.Logger
}

func NewVerifyStage(gw llm.Gateway, cfg Config, logger *slog.Logger) *VerifyStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerifyStage{
		Gateway:     gw,
		Retry:       cfg.Retry,
		Workers:     cfg.Concurrency,
		CallTimeout: cfg.CallTimeout,
		Logger:      logger,
	}
}

func (s *VerifyStage) Name() constants.Stage { return constants.StageVerify }
func (s *VerifyStage) Writes() Field         { return FieldVerifiedResults }

func (s *VerifyStage) Run(ctx context.Context, sess entity.Session) (Update, error) {
	if len(sess.Pages) == 0 {
		return Update{}, ErrNoPagesToVerify
	}
	pages := sess.PageIndex()

	verify := func(ctx context.Context, r entity.SearchResult) (entity.VerificationRecord, error) {
		text, ok := pages[r.ClaimedPage]
		if !ok {
			s.Logger.Info("pipeline.verify.unknown_page", "claimed_page", r.ClaimedPage, "content", r.Content)
			return entity.VerificationRecord{}, fmt.Errorf("page %d not in document: %w", r.ClaimedPage, async.ErrSkip)
		}
		verdict, err := Call[llm.VerificationPayload](ctx, s.Gateway, s.Retry, llm.BuildVerifyPrompt(r, text), s.Logger)
		if err != nil {
			return entity.VerificationRecord{}, fmt.Errorf("verify claim on page %d: %w", r.ClaimedPage, err)
		}
		if !verdict.Valid {
			s.Logger.Debug("pipeline.verify.rejected", "claimed_page", r.ClaimedPage, "explanation", verdict.Explanation)
			return entity.VerificationRecord{}, fmt.Errorf("claim rejected: %w", async.ErrSkip)
		}
		return entity.VerificationRecord{
			Content:     r.Content,
			SourcePage:  entity.SourceLabel(r.ClaimedPage),
			PageNumber:  r.ClaimedPage,
			Explanation: verdict.Explanation,
		}, nil
	}

	outcomes := async.RunAll(ctx, sess.SearchResults, verify,
		async.WithWorkers(s.Workers),
		async.WithTaskTimeout(s.CallTimeout),
		async.WithLogger(s.Logger),
		async.WithName(string(constants.StageVerify)),
	)
	verified := async.Values(outcomes)

	s.Logger.Info("pipeline.verify.done", "candidates", len(sess.SearchResults), "verified", len(verified))

	var u Update
	u.SetVerifiedResults(verified)
	u.AppendMessage(entity.AssistantMessage(FormatVerifiedResults(verified)))
	return u, nil
}

// FormatVerifiedResults renders the user-facing answer.
func FormatVerifiedResults(records []entity.VerificationRecord) string {
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = fmt.Sprintf("%s (Source: %s)", r.Content, r.SourcePage)
	}
	return VerifiedResultsHeader + strings.Join(lines, "\n\n")
}
