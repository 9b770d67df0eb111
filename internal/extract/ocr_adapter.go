package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/ocr"
)

// OCRAdapter exposes ocr.Extractor as a PageExtractor.
type OCRAdapter struct {
	e      *ocr.Extractor
	logger *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, logger: logger}
}

func (a *OCRAdapter) Extract(ctx context.Context, path string) ([]entity.PageContent, error) {
	start := time.Now()
	pages, err := a.e.ExtractPages(ctx, path)
	if err != nil {
		a.logger.Error("extract.pages.failed", "path", path, "error", err)
		return nil, err
	}
	a.logger.Debug("extract.pages.ok", "path", path, "pages", len(pages), "elapsed_ms", time.Since(start).Milliseconds())
	return pages, nil
}
