package pipeline_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/llm"
	"github.com/joseph-ayodele/docverify/internal/llm/mock"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var fastRetry = pipeline.RetryPolicy{Attempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

// script routes each prompt to the handler for the stage that built it.
type script struct {
	interpret func() (string, error)
	summarize func(page int) (string, error)
	search    func() (string, error)
	verify    func(page int, prompt string) (string, error)
}

func (s script) gateway() *mock.Gateway {
	return &mock.Gateway{InvokeFn: func(_ context.Context, prompt string) (string, error) {
		var page int
		switch {
		case strings.HasPrefix(prompt, "You read a user's request"):
			if s.interpret != nil {
				return s.interpret()
			}
		case strings.HasPrefix(prompt, "Summarize page"):
			if _, err := fmt.Sscanf(prompt, "Summarize page %d", &page); err != nil {
				return "", err
			}
			if s.summarize != nil {
				return s.summarize(page)
			}
		case strings.HasPrefix(prompt, "Below are per-page summaries"):
			if s.search != nil {
				return s.search()
			}
		case strings.HasPrefix(prompt, "Check a claim"):
			if _, err := fmt.Sscanf(prompt, "Check a claim against the text of page %d", &page); err != nil {
				return "", err
			}
			if s.verify != nil {
				return s.verify(page, prompt)
			}
		}
		return "", fmt.Errorf("unexpected prompt: %.40q", prompt)
	}}
}

func inputJSON(path, query string) string {
	b, _ := json.Marshal(llm.InputPayload{DocumentPath: path, Query: query})
	return string(b)
}

func summaryJSON(page int, heading string) string {
	b, _ := json.Marshal(llm.PageSummaryPayload{
		PageNumber:      page,
		HeadingSentence: heading,
		KeyPoints:       []string{heading, "point two", "point three"},
	})
	return string(b)
}

func searchJSON(results ...entity.SearchResult) string {
	list := llm.SearchResultListPayload{Results: []llm.SearchResultPayload{}}
	for _, r := range results {
		list.Results = append(list.Results, llm.SearchResultPayload{Content: r.Content, ClaimedPage: r.ClaimedPage})
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func verdictJSON(valid bool, explanation string) string {
	b, _ := json.Marshal(llm.VerificationPayload{Valid: valid, Explanation: explanation})
	return string(b)
}

func pages(texts ...string) []entity.PageContent {
	out := make([]entity.PageContent, len(texts))
	for i, t := range texts {
		out[i] = entity.PageContent{PageNumber: i + 1, RawText: t}
	}
	return out
}

func testConfig() pipeline.Config {
	return pipeline.Config{
		Model:            "test-model",
		Concurrency:      4,
		CallTimeout:      time.Second,
		Retry:            fastRetry,
		MaxSearchResults: 10,
	}
}
