package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/joseph-ayodele/docverify/internal/entity"
)

// SummaryRepository caches page summaries keyed by model and page text.
// Implementations must be safe for concurrent use.
type SummaryRepository interface {
	Get(ctx context.Context, key string) (entity.PageSummary, bool, error)
	Put(ctx context.Context, key string, summary entity.PageSummary) error
	Close() error
}

// SummaryKey derives the cache key for a page summarized by model.
func SummaryKey(model string, page entity.PageContent) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(page.PageNumber)))
	h.Write([]byte{0})
	h.Write([]byte(page.RawText))
	return hex.EncodeToString(h.Sum(nil))
}

// nopSummaryRepo never hits and drops writes.
type nopSummaryRepo struct{}

func NewNopSummaryRepository() SummaryRepository { return nopSummaryRepo{} }

func (nopSummaryRepo) Get(context.Context, string) (entity.PageSummary, bool, error) {
	return entity.PageSummary{}, false, nil
}
func (nopSummaryRepo) Put(context.Context, string, entity.PageSummary) error { return nil }
func (nopSummaryRepo) Close() error                                          { return nil }
