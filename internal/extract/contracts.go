package extract

import (
	"context"

	"github.com/joseph-ayodele/docverify/internal/entity"
)

// PageExtractor turns a document path into its ordered pages.
type PageExtractor interface {
	Extract(ctx context.Context, path string) ([]entity.PageContent, error)
}

// Func adapts a plain function to PageExtractor.
type Func func(ctx context.Context, path string) ([]entity.PageContent, error)

func (f Func) Extract(ctx context.Context, path string) ([]entity.PageContent, error) {
	return f(ctx, path)
}
