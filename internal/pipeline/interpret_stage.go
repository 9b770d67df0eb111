package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/llm"
)

// InterpretStage extracts the document path and query from the latest user message.
type InterpretStage struct {
	Gateway llm.Gateway
	Retry   RetryPolicy
	Logger  *slog.Logger
}

func NewInterpretStage(gw llm.Gateway, retry RetryPolicy, logger *slog.Logger) *InterpretStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &InterpretStage{Gateway: gw, Retry: retry, Logger: logger}
}

func (s *InterpretStage) Name() constants.Stage { return constants.StageInterpret }
func (s *InterpretStage) Writes() Field         { return FieldDocumentPath | FieldQuery }

func (s *InterpretStage) Run(ctx context.Context, sess entity.Session) (Update, error) {
	msg, ok := sess.LatestUserMessage()
	if !ok || strings.TrimSpace(msg.Content) == "" {
		return Update{}, ErrNoInput
	}

	in, err := Call[llm.InputPayload](ctx, s.Gateway, s.Retry, llm.BuildInterpretPrompt(msg.Content), s.Logger)
	if err != nil {
		return Update{}, fmt.Errorf("interpret user input: %w", err)
	}

	s.Logger.Info("pipeline.interpret.parsed", "document_path", in.DocumentPath, "query", in.Query)

	var u Update
	u.SetDocumentPath(strings.TrimSpace(in.DocumentPath))
	u.SetQuery(strings.TrimSpace(in.Query))
	return u, nil
}
