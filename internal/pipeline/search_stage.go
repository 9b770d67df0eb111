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

// DefaultMaxSearchResults caps the claims kept from one search.
const DefaultMaxSearchResults = 10

// SearchStage asks for the claims most relevant to the query, from the summaries alone.
type SearchStage struct {
	Gateway    llm.Gateway
	Retry      RetryPolicy
	MaxResults int
	Logger     *slog.Logger
}

func NewSearchStage(gw llm.Gateway, retry RetryPolicy, maxResults int, logger *slog.Logger) *SearchStage {
	if logger == nil {
		logger = slog.Default()
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxSearchResults
	}
	return &SearchStage{Gateway: gw, Retry: retry, MaxResults: maxResults, Logger: logger}
}

func (s *SearchStage) Name() constants.Stage { return constants.StageSearch }
func (s *SearchStage) Writes() Field         { return FieldSearchResults }

func (s *SearchStage) Run(ctx context.Context, sess entity.Session) (Update, error) {
	if strings.TrimSpace(sess.Query) == "" {
		return Update{}, ErrMissingQuery
	}
	if len(sess.Summaries) == 0 {
		return Update{}, ErrNoSummaries
	}

	prompt := llm.BuildSearchPrompt(sess.Query, sess.Summaries, s.MaxResults)
	list, err := Call[llm.SearchResultListPayload](ctx, s.Gateway, s.Retry, prompt, s.Logger)
	if err != nil {
		return Update{}, fmt.Errorf("search summaries: %w", err)
	}

	results := make([]entity.SearchResult, 0, len(list.Results))
	for _, r := range list.Results {
		results = append(results, r.ToEntity())
	}
	if len(results) > s.MaxResults {
		s.Logger.Warn("pipeline.search.truncated", "returned", len(results), "kept", s.MaxResults)
		results = results[:s.MaxResults]
	}

	s.Logger.Info("pipeline.search.done", "query", sess.Query, "results", len(results))

	var u Update
	u.SetSearchResults(results)
	return u, nil
}
