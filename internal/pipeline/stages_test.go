package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/llm"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
	"github.com/joseph-ayodele/docverify/internal/repository"
)

func sessionWith(input string) entity.Session {
	return entity.Session{Messages: []entity.Message{entity.UserMessage(input)}}
}

func TestInterpretStage(t *testing.T) {
	t.Parallel()

	t.Run("trims path and query", func(t *testing.T) {
		t.Parallel()
		gw := script{interpret: func() (string, error) { return inputJSON("  /tmp/a.pdf ", " revenue\n"), nil }}.gateway()
		st := pipeline.NewInterpretStage(gw, fastRetry, quietLogger)

		u, err := st.Run(context.Background(), sessionWith("look at /tmp/a.pdf for revenue"))
		require.NoError(t, err)
		assert.Equal(t, "/tmp/a.pdf", u.DocumentPath)
		assert.Equal(t, "revenue", u.Query)
		assert.Equal(t, pipeline.FieldDocumentPath|pipeline.FieldQuery, u.Fields)
	})

	t.Run("no user message", func(t *testing.T) {
		t.Parallel()
		gw := script{}.gateway()
		st := pipeline.NewInterpretStage(gw, fastRetry, quietLogger)

		_, err := st.Run(context.Background(), entity.Session{})
		assert.ErrorIs(t, err, pipeline.ErrNoInput)
		assert.Zero(t, gw.Calls())
	})

	t.Run("retries an unparseable reply", func(t *testing.T) {
		t.Parallel()
		calls := 0
		gw := script{interpret: func() (string, error) {
			calls++
			if calls == 1 {
				return "Sure! The path is a.pdf", nil
			}
			return "```json\n" + inputJSON("a.pdf", "q") + "\n```", nil
		}}.gateway()
		st := pipeline.NewInterpretStage(gw, fastRetry, quietLogger)

		u, err := st.Run(context.Background(), sessionWith("a.pdf q"))
		require.NoError(t, err)
		assert.Equal(t, "a.pdf", u.DocumentPath)
		assert.Equal(t, 2, gw.Calls())
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		t.Parallel()
		gw := script{interpret: func() (string, error) { return "", errors.New("upstream down") }}.gateway()
		st := pipeline.NewInterpretStage(gw, fastRetry, quietLogger)

		_, err := st.Run(context.Background(), sessionWith("a.pdf q"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream down")
		assert.Equal(t, fastRetry.Attempts, gw.Calls())
	})
}

func TestExtractStage(t *testing.T) {
	t.Parallel()

	sess := entity.Session{DocumentPath: "doc.pdf"}
	cases := []struct {
		name    string
		pages   []entity.PageContent
		err     error
		wantErr error
	}{
		{name: "ok", pages: pages("one", "")},
		{name: "extractor failure", err: errors.New("corrupt")},
		{name: "no pages", pages: []entity.PageContent{}, wantErr: pipeline.ErrNoPages},
		{name: "zero page number", pages: []entity.PageContent{{PageNumber: 0, RawText: "x"}}, wantErr: pipeline.ErrInvalidPages},
		{name: "duplicate page", pages: []entity.PageContent{{PageNumber: 1}, {PageNumber: 1}}, wantErr: pipeline.ErrInvalidPages},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ex := extract.Func(func(context.Context, string) ([]entity.PageContent, error) { return tc.pages, tc.err })
			u, err := pipeline.NewExtractStage(ex, quietLogger).Run(context.Background(), sess)
			switch {
			case tc.err != nil:
				assert.ErrorIs(t, err, tc.err)
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.pages, u.Pages)
				assert.Equal(t, pipeline.FieldPages, u.Fields)
			}
		})
	}

	t.Run("blank path", func(t *testing.T) {
		t.Parallel()
		ex := extract.Func(func(context.Context, string) ([]entity.PageContent, error) {
			t.Fatal("extractor must not run")
			return nil, nil
		})
		_, err := pipeline.NewExtractStage(ex, quietLogger).Run(context.Background(), entity.Session{DocumentPath: "  "})
		assert.ErrorIs(t, err, pipeline.ErrMissingDocumentPath)
	})
}

func TestSummarizeStage(t *testing.T) {
	t.Parallel()

	t.Run("one summary per non-blank page in page order", func(t *testing.T) {
		t.Parallel()
		gw := script{summarize: func(page int) (string, error) {
			// later pages answer first
			time.Sleep(time.Duration(4-page) * time.Millisecond)
			return summaryJSON(page, fmt.Sprintf("heading %d", page)), nil
		}}.gateway()
		st := pipeline.NewSummarizeStage(gw, testConfig(), nil, quietLogger)

		u, err := st.Run(context.Background(), entity.Session{Pages: pages("a", "   ", "c")})
		require.NoError(t, err)
		require.Len(t, u.Summaries, 2)
		assert.Equal(t, 1, u.Summaries[0].PageNumber)
		assert.Equal(t, 3, u.Summaries[1].PageNumber)
		assert.Len(t, u.Summaries[0].KeyPoints, llm.KeyPointCount)
		assert.Equal(t, 2, gw.Calls())
	})

	t.Run("page mismatch drops the page", func(t *testing.T) {
		t.Parallel()
		gw := script{summarize: func(page int) (string, error) {
			if page == 2 {
				return summaryJSON(7, "wrong page"), nil
			}
			return summaryJSON(page, "fine"), nil
		}}.gateway()
		st := pipeline.NewSummarizeStage(gw, testConfig(), nil, quietLogger)

		u, err := st.Run(context.Background(), entity.Session{Pages: pages("a", "b")})
		require.NoError(t, err)
		require.Len(t, u.Summaries, 1)
		assert.Equal(t, 1, u.Summaries[0].PageNumber)
		// page 2 is retried once
		assert.Equal(t, 3, gw.Calls())
	})

	t.Run("strict mode aborts on a page failure", func(t *testing.T) {
		t.Parallel()
		gw := script{summarize: func(page int) (string, error) {
			if page == 2 {
				return summaryJSON(7, "wrong page"), nil
			}
			return summaryJSON(page, "fine"), nil
		}}.gateway()
		cfg := testConfig()
		cfg.StrictSummaries = true
		st := pipeline.NewSummarizeStage(gw, cfg, nil, quietLogger)

		_, err := st.Run(context.Background(), entity.Session{Pages: pages("a", "b")})
		assert.ErrorIs(t, err, pipeline.ErrPageMismatch)
	})

	t.Run("all pages failing", func(t *testing.T) {
		t.Parallel()
		gw := script{summarize: func(int) (string, error) { return "{}", nil }}.gateway()
		cfg := testConfig()
		cfg.Retry = pipeline.NoRetry
		st := pipeline.NewSummarizeStage(gw, cfg, nil, quietLogger)

		_, err := st.Run(context.Background(), entity.Session{Pages: pages("a", "b")})
		assert.ErrorIs(t, err, pipeline.ErrNoSummaries)
	})

	t.Run("no pages", func(t *testing.T) {
		t.Parallel()
		st := pipeline.NewSummarizeStage(script{}.gateway(), testConfig(), nil, quietLogger)
		_, err := st.Run(context.Background(), entity.Session{})
		assert.ErrorIs(t, err, pipeline.ErrNoPages)
	})

	t.Run("cached summaries skip the model", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cache := repository.NewMemorySummaryRepository(time.Minute, quietLogger)
		doc := pages("cached page")
		want := entity.PageSummary{PageNumber: 1, HeadingSentence: "from cache", KeyPoints: []string{"a", "b", "c"}}
		require.NoError(t, cache.Put(context.Background(), repository.SummaryKey(cfg.Model, doc[0]), want))

		gw := script{}.gateway()
		u, err := pipeline.NewSummarizeStage(gw, cfg, cache, quietLogger).Run(context.Background(), entity.Session{Pages: doc})
		require.NoError(t, err)
		assert.Equal(t, []entity.PageSummary{want}, u.Summaries)
		assert.Zero(t, gw.Calls())
	})

	t.Run("fresh summaries are cached", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cache := repository.NewMemorySummaryRepository(time.Minute, quietLogger)
		doc := pages("text")
		gw := script{summarize: func(page int) (string, error) { return summaryJSON(page, "h"), nil }}.gateway()

		_, err := pipeline.NewSummarizeStage(gw, cfg, cache, quietLogger).Run(context.Background(), entity.Session{Pages: doc})
		require.NoError(t, err)
		got, ok, err := cache.Get(context.Background(), repository.SummaryKey(cfg.Model, doc[0]))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "h", got.HeadingSentence)
	})
}

func TestSearchStage(t *testing.T) {
	t.Parallel()

	summaries := []entity.PageSummary{{PageNumber: 1, HeadingSentence: "h", KeyPoints: []string{"a", "b", "c"}}}

	t.Run("truncates to the configured maximum", func(t *testing.T) {
		t.Parallel()
		gw := script{search: func() (string, error) {
			var rs []entity.SearchResult
			for i := 1; i <= 5; i++ {
				rs = append(rs, entity.SearchResult{Content: fmt.Sprintf("claim %d", i), ClaimedPage: 1})
			}
			return searchJSON(rs...), nil
		}}.gateway()

		u, err := pipeline.NewSearchStage(gw, fastRetry, 3, quietLogger).Run(context.Background(),
			entity.Session{Query: "q", Summaries: summaries})
		require.NoError(t, err)
		require.Len(t, u.SearchResults, 3)
		assert.Equal(t, "claim 1", u.SearchResults[0].Content)
		assert.Equal(t, pipeline.FieldSearchResults, u.Fields)
	})

	t.Run("empty result list is not an error", func(t *testing.T) {
		t.Parallel()
		gw := script{search: func() (string, error) { return searchJSON(), nil }}.gateway()

		u, err := pipeline.NewSearchStage(gw, fastRetry, 0, quietLogger).Run(context.Background(),
			entity.Session{Query: "q", Summaries: summaries})
		require.NoError(t, err)
		assert.NotNil(t, u.SearchResults)
		assert.Empty(t, u.SearchResults)
	})

	t.Run("prompt carries query and summaries", func(t *testing.T) {
		t.Parallel()
		gw := script{search: func() (string, error) { return searchJSON(), nil }}.gateway()

		_, err := pipeline.NewSearchStage(gw, fastRetry, 0, quietLogger).Run(context.Background(),
			entity.Session{Query: "quarterly revenue", Summaries: summaries})
		require.NoError(t, err)
		require.Len(t, gw.Prompts(), 1)
		assert.Contains(t, gw.Prompts()[0], "Query: quarterly revenue")
		assert.Contains(t, gw.Prompts()[0], llm.FormatSummaries(summaries))
	})

	t.Run("missing query", func(t *testing.T) {
		t.Parallel()
		_, err := pipeline.NewSearchStage(script{}.gateway(), fastRetry, 0, quietLogger).Run(context.Background(),
			entity.Session{Summaries: summaries})
		assert.ErrorIs(t, err, pipeline.ErrMissingQuery)
	})

	t.Run("missing summaries", func(t *testing.T) {
		t.Parallel()
		_, err := pipeline.NewSearchStage(script{}.gateway(), fastRetry, 0, quietLogger).Run(context.Background(),
			entity.Session{Query: "q"})
		assert.ErrorIs(t, err, pipeline.ErrNoSummaries)
	})
}

func TestVerifyStage(t *testing.T) {
	t.Parallel()

	t.Run("unknown page is dropped without a call", func(t *testing.T) {
		t.Parallel()
		gw := script{verify: func(int, string) (string, error) { return verdictJSON(true, "ok"), nil }}.gateway()
		sess := entity.Session{
			Pages: pages("Revenue grew 10%."),
			SearchResults: []entity.SearchResult{
				{Content: "Revenue grew 10%.", ClaimedPage: 1},
				{Content: "Costs fell.", ClaimedPage: 9},
			},
		}

		u, err := pipeline.NewVerifyStage(gw, testConfig(), quietLogger).Run(context.Background(), sess)
		require.NoError(t, err)
		require.Len(t, u.VerifiedResults, 1)
		assert.Equal(t, "Page 1", u.VerifiedResults[0].SourcePage)
		assert.Equal(t, 1, gw.Calls())
		require.Len(t, u.Messages, 1)
		assert.Equal(t, "Verified Results:\n\nRevenue grew 10%. (Source: Page 1)", u.Messages[0].Content)
	})

	t.Run("prompt carries the claimed page text", func(t *testing.T) {
		t.Parallel()
		gw := script{verify: func(_ int, prompt string) (string, error) {
			if !assert.Contains(t, prompt, "Second page body.") {
				return verdictJSON(false, "wrong page"), nil
			}
			return verdictJSON(true, "ok"), nil
		}}.gateway()
		sess := entity.Session{
			Pages:         pages("First page body.", "Second page body."),
			SearchResults: []entity.SearchResult{{Content: "claim", ClaimedPage: 2}},
		}

		u, err := pipeline.NewVerifyStage(gw, testConfig(), quietLogger).Run(context.Background(), sess)
		require.NoError(t, err)
		assert.Len(t, u.VerifiedResults, 1)
	})

	t.Run("no search results", func(t *testing.T) {
		t.Parallel()
		u, err := pipeline.NewVerifyStage(script{}.gateway(), testConfig(), quietLogger).Run(context.Background(),
			entity.Session{Pages: pages("x"), SearchResults: []entity.SearchResult{}})
		require.NoError(t, err)
		assert.Empty(t, u.VerifiedResults)
		assert.Equal(t, pipeline.VerifiedResultsHeader, u.Messages[0].Content)
	})

	t.Run("no pages", func(t *testing.T) {
		t.Parallel()
		_, err := pipeline.NewVerifyStage(script{}.gateway(), testConfig(), quietLogger).Run(context.Background(), entity.Session{})
		assert.ErrorIs(t, err, pipeline.ErrNoPagesToVerify)
	})
}

func TestFormatVerifiedResults(t *testing.T) {
	t.Parallel()
	got := pipeline.FormatVerifiedResults([]entity.VerificationRecord{
		{Content: "A", SourcePage: "Page 1"},
		{Content: "B", SourcePage: "Page 3"},
	})
	assert.Equal(t, "Verified Results:\n\nA (Source: Page 1)\n\nB (Source: Page 3)", got)
}
