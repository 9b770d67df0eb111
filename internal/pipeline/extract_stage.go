package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/extract"
)

// ExtractStage loads the document's pages.
type ExtractStage struct {
	Extractor extract.PageExtractor
	Logger    *slog.Logger
}

func NewExtractStage(ex extract.PageExtractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Extractor: ex, Logger: logger}
}

func (s *ExtractStage) Name() constants.Stage { return constants.StageExtract }
func (s *ExtractStage) Writes() Field         { return FieldPages }

func (s *ExtractStage) Run(ctx context.Context, sess entity.Session) (Update, error) {
	path := strings.TrimSpace(sess.DocumentPath)
	if path == "" {
		return Update{}, ErrMissingDocumentPath
	}

	pages, err := s.Extractor.Extract(ctx, path)
	if err != nil {
		return Update{}, fmt.Errorf("extract %s: %w", path, err)
	}
	if len(pages) == 0 {
		return Update{}, ErrNoPages
	}
	if err := validatePages(pages); err != nil {
		return Update{}, err
	}

	var u Update
	u.SetPages(pages)
	return u, nil
}

func validatePages(pages []entity.PageContent) error {
	seen := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		if p.PageNumber <= 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidPages, p.PageNumber)
		}
		if _, dup := seen[p.PageNumber]; dup {
			return fmt.Errorf("%w: page %d repeated", ErrInvalidPages, p.PageNumber)
		}
		seen[p.PageNumber] = struct{}{}
	}
	return nil
}
