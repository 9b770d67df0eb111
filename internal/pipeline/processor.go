package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/async"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/llm"
	"github.com/joseph-ayodele/docverify/internal/repository"
)

const tracerName = "github.com/joseph-ayodele/docverify/internal/pipeline"

var _ async.Runner = (*Processor)(nil)

// Processor runs the stages in order over one session.
type Processor struct {
	Logger *slog.Logger
	Stages []Stage
}

func NewProcessor(logger *slog.Logger, stages ...Stage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Stages: stages}
}

// NewDefaultProcessor wires interpret, extract, summarize, search and verify.
func NewDefaultProcessor(cfg Config, gw llm.Gateway, ex extract.PageExtractor, cache repository.SummaryRepository, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return NewProcessor(logger,
		NewInterpretStage(gw, cfg.Retry, logger),
		NewExtractStage(ex, logger),
		NewSummarizeStage(gw, cfg, cache, logger),
		NewSearchStage(gw, cfg.Retry, cfg.MaxSearchResults, logger),
		NewVerifyStage(gw, cfg, logger),
	)
}

// Run starts a fresh session from userInput and drives it through every stage.
// On failure the session as it stood before the failing stage is returned
// together with a *common.FatalStageError.
func (p *Processor) Run(ctx context.Context, userInput string) (entity.Session, error) {
	now := time.Now().UTC()
	sess := entity.Session{
		ID:        uuid.New(),
		Messages:  []entity.Message{entity.UserMessage(userInput)},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return p.RunSession(ctx, sess)
}

// RunSession drives an already seeded session through every stage.
func (p *Processor) RunSession(ctx context.Context, sess entity.Session) (entity.Session, error) {
	runID := sess.ID.String()
	ctx = common.WithRunID(ctx, runID)
	logger := common.LoggerFromContext(ctx, p.Logger)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer span.End()

	started := time.Now()
	var written Field
	for _, st := range p.Stages {
		name := st.Name()
		if err := ctx.Err(); err != nil {
			logger.Warn("pipeline.cancelled", "stage", name, "err", err)
			span.SetStatus(codes.Error, err.Error())
			return sess, common.NewFatalStageError(name, err)
		}

		next, err := p.runStage(ctx, logger, st, sess, written)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("run.failed_stage", string(name)))
			logger.Error("pipeline.aborted", "status", constants.RunStatusFailed, "stage", name,
				"elapsed_ms", time.Since(started).Milliseconds())
			return sess, common.NewFatalStageError(name, err)
		}
		sess = next
		written |= st.Writes()
	}

	logger.Info("pipeline.completed",
		"status", constants.RunStatusCompleted,
		"verified", len(sess.VerifiedResults),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	span.SetStatus(codes.Ok, "")
	return sess, nil
}

func (p *Processor) runStage(ctx context.Context, logger *slog.Logger, st Stage, sess entity.Session, written Field) (entity.Session, error) {
	name := st.Name()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline."+string(name),
		trace.WithAttributes(attribute.String("stage.writes", st.Writes().String())))
	defer span.End()

	start := time.Now()
	logger.Info(fmt.Sprintf("pipeline.%s.start", name))

	u, err := st.Run(ctx, sess.Clone())
	if err == nil {
		err = checkUpdate(st, u, written)
	}
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		logger.Error(fmt.Sprintf("pipeline.%s.failed", name), "elapsed_ms", elapsed, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return sess, err
	}

	out := apply(sess, u)
	logger.Info(fmt.Sprintf("pipeline.%s.ok", name), "elapsed_ms", elapsed, "fields", u.Fields.String())
	span.SetAttributes(attribute.String("stage.fields", u.Fields.String()))
	return out, nil
}

func checkUpdate(st Stage, u Update, written Field) error {
	if extra := u.Fields &^ st.Writes(); extra != 0 {
		return fmt.Errorf("%w: %s", ErrFieldNotOwned, extra)
	}
	if again := u.Fields & written; again != 0 {
		return fmt.Errorf("%w: %s", ErrFieldRewritten, again)
	}
	return nil
}

func apply(sess entity.Session, u Update) entity.Session {
	out := sess.Clone()
	if u.Fields&FieldDocumentPath != 0 {
		out.DocumentPath = u.DocumentPath
	}
	if u.Fields&FieldQuery != 0 {
		out.Query = u.Query
	}
	if u.Fields&FieldPages != 0 {
		out.Pages = u.Pages
	}
	if u.Fields&FieldSummaries != 0 {
		out.Summaries = u.Summaries
	}
	if u.Fields&FieldSearchResults != 0 {
		out.SearchResults = u.SearchResults
	}
	if u.Fields&FieldVerifiedResults != 0 {
		out.VerifiedResults = u.VerifiedResults
	}
	out.Messages = append(out.Messages, u.Messages...)
	out.UpdatedAt = time.Now().UTC()
	return out
}
