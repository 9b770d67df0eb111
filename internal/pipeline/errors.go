package pipeline

import "errors"

var (
	ErrNoInput             = errors.New("no user message to interpret")
	ErrMissingDocumentPath = errors.New("document path is empty")
	ErrNoPages             = errors.New("document has no pages")
	ErrInvalidPages        = errors.New("page numbers must be positive and unique")
	ErrMissingQuery        = errors.New("query is empty")
	ErrNoSummaries         = errors.New("no page summaries available")
	ErrNoPagesToVerify     = errors.New("no pages to verify against")
	ErrPageMismatch        = errors.New("summary page number does not match the input page")

	ErrFieldRewritten = errors.New("session field already written")
	ErrFieldNotOwned  = errors.New("stage wrote a field it does not own")
)
