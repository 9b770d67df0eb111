package llm

import (
	"context"

	"github.com/joseph-ayodele/docverify/internal/entity"
)

// Gateway sends one prompt to a language model and returns its raw text reply.
// Implementations must be safe for concurrent use.
type Gateway interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// GatewayFunc adapts a plain function to Gateway.
type GatewayFunc func(ctx context.Context, prompt string) (string, error)

func (f GatewayFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Payload is implemented by every typed model output.
type Payload interface {
	Kind() Kind
}

// InputPayload is the interpreted user request.
type InputPayload struct {
	DocumentPath string `json:"pdf_path"`
	Query        string `json:"query"`
}

func (InputPayload) Kind() Kind { return KindInput }

// PageSummaryPayload is the model's condensation of one page.
type PageSummaryPayload struct {
	PageNumber      int      `json:"page_number"`
	HeadingSentence string   `json:"heading_sentence"`
	KeyPoints       []string `json:"key_points"`
}

func (PageSummaryPayload) Kind() Kind { return KindPageSummary }

func (p PageSummaryPayload) ToEntity() entity.PageSummary {
	return entity.PageSummary{
		PageNumber:      p.PageNumber,
		HeadingSentence: p.HeadingSentence,
		KeyPoints:       append([]string(nil), p.KeyPoints...),
	}
}

// SearchResultPayload is one claim attributed to a page.
type SearchResultPayload struct {
	Content     string `json:"content"`
	ClaimedPage int    `json:"claimed_page"`
}

func (SearchResultPayload) Kind() Kind { return KindSearchResult }

func (p SearchResultPayload) ToEntity() entity.SearchResult {
	return entity.SearchResult{Content: p.Content, ClaimedPage: p.ClaimedPage}
}

// SearchResultListPayload wraps the ranked claims returned by Search.
type SearchResultListPayload struct {
	Results []SearchResultPayload `json:"results"`
}

func (SearchResultListPayload) Kind() Kind { return KindSearchResultList }

// VerificationPayload is the model's verdict on one claim.
type VerificationPayload struct {
	Valid       bool   `json:"valid"`
	Explanation string `json:"explanation"`
}

func (VerificationPayload) Kind() Kind { return KindVerification }
