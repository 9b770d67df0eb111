package export_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/export"
)

func verifiedSession() entity.Session {
	return entity.Session{
		DocumentPath: "report.pdf",
		Query:        "financial performance",
		VerifiedResults: []entity.VerificationRecord{
			{Content: "Revenue grew 10% in Q1.", SourcePage: "Page 1", PageNumber: 1, Explanation: "stated verbatim"},
			{Content: "Margins held at 5%.", SourcePage: "Page 3", PageNumber: 3},
		},
	}
}

func TestVerifiedResultsXLSX(t *testing.T) {
	t.Parallel()

	data, err := export.NewService(nil).VerifiedResultsXLSX(verifiedSession())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Verified Results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"#", "Claim", "Source", "Page", "Explanation"}, rows[0])
	assert.Equal(t, []string{"1", "Revenue grew 10% in Q1.", "Page 1", "1", "stated verbatim"}, rows[1])
	assert.Equal(t, "Page 3", rows[2][2])
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	md := export.Markdown(verifiedSession())
	assert.Contains(t, md, "**Query:** financial performance")
	assert.Contains(t, md, "1. Revenue grew 10% in Q1. (Source: Page 1)")
	assert.Contains(t, md, "   > stated verbatim")
	assert.Contains(t, md, "2. Margins held at 5%. (Source: Page 3)\n")

	empty := export.Markdown(entity.Session{Query: "q"})
	assert.Contains(t, empty, "No claims could be verified")
}

func TestVerifiedResultsHTML(t *testing.T) {
	t.Parallel()

	sess := verifiedSession()
	sess.VerifiedResults[0].Content = "Revenue <b>grew</b>"
	out, err := export.NewService(nil).VerifiedResultsHTML(sess)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<h1>Verified Results</h1>")
	assert.Contains(t, html, "<ol>")
	assert.Contains(t, html, "(Source: Page 1)")
	assert.NotContains(t, html, "<b>grew</b>")
}
