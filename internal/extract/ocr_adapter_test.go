package extract_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/extract"
	"github.com/joseph-ayodele/docverify/internal/ocr"
)

type staticRunner string

func (s staticRunner) Run(context.Context, string, ...string) ([]byte, []byte, error) {
	return []byte(s), nil, nil
}

func TestOCRAdapter_Extract(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	var pe extract.PageExtractor = extract.NewOCRAdapter(
		ocr.NewExtractor(ocr.Config{}, nil, ocr.WithRunner(staticRunner("first\fsecond\f"))), nil)

	pages, err := pe.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []entity.PageContent{{PageNumber: 1, RawText: "first"}, {PageNumber: 2, RawText: "second"}}, pages)

	_, err = pe.Extract(context.Background(), "")
	assert.ErrorIs(t, err, ocr.ErrEmptyPath)
}
