package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is the state carried through one pipeline run.
// Every data field is written by exactly one stage; Messages is append-only.
type Session struct {
	ID              uuid.UUID            `json:"id"`
	DocumentPath    string               `json:"document_path"`
	Query           string               `json:"query"`
	Pages           []PageContent        `json:"pages,omitempty"`
	Summaries       []PageSummary        `json:"summaries,omitempty"`
	SearchResults   []SearchResult       `json:"search_results,omitempty"`
	VerifiedResults []VerificationRecord `json:"verified_results,omitempty"`
	Messages        []Message            `json:"messages"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// LatestUserMessage returns the most recent user-authored message.
func (s Session) LatestUserMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].IsUser() {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// LastAssistantMessage returns the most recent assistant reply, if any.
func (s Session) LastAssistantMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if !s.Messages[i].IsUser() {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

// PageIndex maps page number to raw text.
func (s Session) PageIndex() map[int]string {
	idx := make(map[int]string, len(s.Pages))
	for _, p := range s.Pages {
		idx[p.PageNumber] = p.RawText
	}
	return idx
}

// Clone returns a copy whose slices do not alias the receiver's.
func (s Session) Clone() Session {
	out := s
	out.Pages = append([]PageContent(nil), s.Pages...)
	if s.Summaries != nil {
		out.Summaries = make([]PageSummary, len(s.Summaries))
		for i, sum := range s.Summaries {
			sum.KeyPoints = append([]string(nil), sum.KeyPoints...)
			out.Summaries[i] = sum
		}
	}
	out.SearchResults = append([]SearchResult(nil), s.SearchResults...)
	out.VerifiedResults = append([]VerificationRecord(nil), s.VerifiedResults...)
	out.Messages = append([]Message(nil), s.Messages...)
	return out
}
