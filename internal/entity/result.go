package entity

import "fmt"

// SearchResult is a candidate claim attributed to a single page.
type SearchResult struct {
	Content     string `json:"content"`
	ClaimedPage int    `json:"claimed_page"`
}

// VerificationRecord is a claim that survived verification against its page.
type VerificationRecord struct {
	Content     string `json:"content"`
	SourcePage  string `json:"source"`
	PageNumber  int    `json:"page_number"`
	Explanation string `json:"explanation"`
}

// SourceLabel renders a page reference as shown to users.
func SourceLabel(page int) string {
	return fmt.Sprintf("Page %d", page)
}
