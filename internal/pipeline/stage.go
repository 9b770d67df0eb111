package pipeline

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/entity"
)

// Field is a bit set of session fields a stage may write.
type Field uint8

const (
	FieldDocumentPath Field = 1 << iota
	FieldQuery
	FieldPages
	FieldSummaries
	FieldSearchResults
	FieldVerifiedResults
)

var fieldNames = []struct {
	f    Field
	name string
}{
	{FieldDocumentPath, "document_path"},
	{FieldQuery, "query"},
	{FieldPages, "pages"},
	{FieldSummaries, "summaries"},
	{FieldSearchResults, "search_results"},
	{FieldVerifiedResults, "verified_results"},
}

func (f Field) String() string {
	var names []string
	for _, fn := range fieldNames {
		if f&fn.f != 0 {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Stage is one step of the pipeline. Run receives a copy of the session and
// returns the fields it produced; it must not write outside Writes().
type Stage interface {
	Name() constants.Stage
	Writes() Field
	Run(ctx context.Context, sess entity.Session) (Update, error)
}

// Update is the partial session a stage returns. Only fields flagged in
// Fields are applied. Messages are appended.
type Update struct {
	Fields Field

	DocumentPath    string
	Query           string
	Pages           []entity.PageContent
	Summaries       []entity.PageSummary
	SearchResults   []entity.SearchResult
	VerifiedResults []entity.VerificationRecord
	Messages        []entity.Message
}

func (u *Update) SetDocumentPath(p string) { u.DocumentPath = p; u.Fields |= FieldDocumentPath }
func (u *Update) SetQuery(q string)        { u.Query = q; u.Fields |= FieldQuery }

func (u *Update) SetPages(p []entity.PageContent) { u.Pages = p; u.Fields |= FieldPages }

func (u *Update) SetSummaries(s []entity.PageSummary) { u.Summaries = s; u.Fields |= FieldSummaries }

func (u *Update) SetSearchResults(r []entity.SearchResult) {
	u.SearchResults = r
	u.Fields |= FieldSearchResults
}

func (u *Update) SetVerifiedResults(r []entity.VerificationRecord) {
	u.VerifiedResults = r
	u.Fields |= FieldVerifiedResults
}

func (u *Update) AppendMessage(m entity.Message) { u.Messages = append(u.Messages, m) }
