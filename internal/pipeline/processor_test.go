package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
	"github.com/joseph-ayodele/docverify/internal/repository"
)

func twoPageDoc(_ context.Context, path string) ([]entity.PageContent, error) {
	if path != "report.pdf" {
		return nil, errors.New("no such file")
	}
	return pages("Revenue grew 10% in Q1.", "Customer satisfaction improved."), nil
}

func TestProcessor_Run_EndToEnd(t *testing.T) {
	t.Parallel()

	gw := script{
		interpret: func() (string, error) { return inputJSON("report.pdf", "financial performance"), nil },
		summarize: func(page int) (string, error) {
			if page == 1 {
				return summaryJSON(1, "Revenue grew 10% in Q1."), nil
			}
			return summaryJSON(2, "Customer satisfaction improved."), nil
		},
		search: func() (string, error) {
			return searchJSON(
				entity.SearchResult{Content: "Revenue grew 10% in Q1.", ClaimedPage: 1},
				entity.SearchResult{Content: "Profit doubled.", ClaimedPage: 2},
			), nil
		},
		verify: func(page int, _ string) (string, error) {
			if page == 1 {
				return verdictJSON(true, "stated on the page"), nil
			}
			return verdictJSON(false, "page 2 says nothing about profit"), nil
		},
	}.gateway()

	p := pipeline.NewDefaultProcessor(testConfig(), gw, extract.Func(twoPageDoc), repository.NewNopSummaryRepository(), quietLogger)
	sess, err := p.Run(context.Background(), "In report.pdf, how did the company do financially?")
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", sess.DocumentPath)
	assert.Equal(t, "financial performance", sess.Query)
	assert.Len(t, sess.Pages, 2)
	assert.Len(t, sess.Summaries, 2)
	assert.Len(t, sess.SearchResults, 2)
	require.Len(t, sess.VerifiedResults, 1)
	assert.Equal(t, entity.VerificationRecord{
		Content:     "Revenue grew 10% in Q1.",
		SourcePage:  "Page 1",
		PageNumber:  1,
		Explanation: "stated on the page",
	}, sess.VerifiedResults[0])

	require.Len(t, sess.Messages, 2)
	assert.Equal(t, constants.RoleUser, sess.Messages[0].Role)
	last, ok := sess.LastAssistantMessage()
	require.True(t, ok)
	assert.Equal(t, "Verified Results:\n\nRevenue grew 10% in Q1. (Source: Page 1)", last.Content)
	// interpret + 2 summaries + search + 2 verifications
	assert.Equal(t, 6, gw.Calls())
}

func TestProcessor_Run_EmptyPathAbortsAtExtract(t *testing.T) {
	t.Parallel()

	gw := script{
		interpret: func() (string, error) { return inputJSON("", "revenue"), nil },
	}.gateway()
	p := pipeline.NewDefaultProcessor(testConfig(), gw, extract.Func(twoPageDoc), nil, quietLogger)

	sess, err := p.Run(context.Background(), "what was the revenue?")
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrMissingDocumentPath)

	stage, ok := common.FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, constants.StageExtract, stage)

	assert.Empty(t, sess.DocumentPath)
	assert.Equal(t, "revenue", sess.Query)
	assert.Nil(t, sess.Pages)
	assert.Nil(t, sess.Summaries)
	assert.Len(t, sess.Messages, 1)
	assert.Equal(t, 1, gw.Calls())
}

func TestProcessor_Run_AllVerificationsUnparseable(t *testing.T) {
	t.Parallel()

	gw := script{
		interpret: func() (string, error) { return inputJSON("report.pdf", "financial performance"), nil },
		summarize: func(page int) (string, error) { return summaryJSON(page, "something"), nil },
		search: func() (string, error) {
			return searchJSON(
				entity.SearchResult{Content: "a", ClaimedPage: 1},
				entity.SearchResult{Content: "b", ClaimedPage: 2},
				entity.SearchResult{Content: "c", ClaimedPage: 1},
			), nil
		},
		verify: func(int, string) (string, error) { return "I think it is fine", nil },
	}.gateway()

	cfg := testConfig()
	cfg.Retry = pipeline.NoRetry
	p := pipeline.NewDefaultProcessor(cfg, gw, extract.Func(twoPageDoc), nil, quietLogger)

	sess, err := p.Run(context.Background(), "report.pdf financial performance")
	require.NoError(t, err)
	assert.Len(t, sess.SearchResults, 3)
	assert.NotNil(t, sess.VerifiedResults)
	assert.Empty(t, sess.VerifiedResults)
	last, ok := sess.LastAssistantMessage()
	require.True(t, ok)
	assert.Equal(t, "Verified Results:\n\n", last.Content)
}

func TestProcessor_Run_CancelledBeforeStart(t *testing.T) {
	t.Parallel()

	gw := script{}.gateway()
	p := pipeline.NewDefaultProcessor(testConfig(), gw, extract.Func(twoPageDoc), nil, quietLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	stage, _ := common.FailedStage(err)
	assert.Equal(t, constants.StageInterpret, stage)
	assert.Zero(t, gw.Calls())
}

// stubStage writes whatever Update it is given.
type stubStage struct {
	name   constants.Stage
	writes pipeline.Field
	update pipeline.Update
	seen   *entity.Session
}

func (s stubStage) Name() constants.Stage  { return s.name }
func (s stubStage) Writes() pipeline.Field { return s.writes }
func (s stubStage) Run(_ context.Context, sess entity.Session) (pipeline.Update, error) {
	if s.seen != nil {
		*s.seen = sess
	}
	return s.update, nil
}

func TestProcessor_FieldOwnership(t *testing.T) {
	t.Parallel()

	t.Run("write outside declared fields", func(t *testing.T) {
		t.Parallel()
		var u pipeline.Update
		u.SetQuery("q")
		u.SetPages(pages("x"))
		p := pipeline.NewProcessor(quietLogger, stubStage{name: constants.StageInterpret, writes: pipeline.FieldQuery, update: u})

		sess, err := p.Run(context.Background(), "hi")
		assert.ErrorIs(t, err, pipeline.ErrFieldNotOwned)
		assert.Empty(t, sess.Query)
	})

	t.Run("second write of a field", func(t *testing.T) {
		t.Parallel()
		var u pipeline.Update
		u.SetQuery("q")
		p := pipeline.NewProcessor(quietLogger,
			stubStage{name: constants.StageInterpret, writes: pipeline.FieldQuery, update: u},
			stubStage{name: constants.StageSearch, writes: pipeline.FieldQuery, update: u},
		)

		sess, err := p.Run(context.Background(), "hi")
		assert.ErrorIs(t, err, pipeline.ErrFieldRewritten)
		stage, _ := common.FailedStage(err)
		assert.Equal(t, constants.StageSearch, stage)
		assert.Equal(t, "q", sess.Query)
	})
}

func TestProcessor_StagesSeeEarlierWrites(t *testing.T) {
	t.Parallel()

	var first, second pipeline.Update
	first.SetDocumentPath("a.pdf")
	first.SetQuery("q")
	second.SetPages(pages("text"))

	var seen entity.Session
	p := pipeline.NewProcessor(quietLogger,
		stubStage{name: constants.StageInterpret, writes: pipeline.FieldDocumentPath | pipeline.FieldQuery, update: first},
		stubStage{name: constants.StageExtract, writes: pipeline.FieldPages, update: second, seen: &seen},
	)

	sess, err := p.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", seen.DocumentPath)
	assert.Nil(t, seen.Pages)
	assert.Equal(t, pages("text"), sess.Pages)
	assert.NotEqual(t, uuid.Nil, sess.ID)
}

func TestField_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "none", pipeline.Field(0).String())
	assert.Equal(t, "document_path|query", (pipeline.FieldDocumentPath | pipeline.FieldQuery).String())
}
