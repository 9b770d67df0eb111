package entity

// PageContent is the raw text of one page. Page numbers start at 1.
type PageContent struct {
	PageNumber int    `json:"page_number"`
	RawText    string `json:"raw_text"`
}

// PageSummary condenses one page into a heading and exactly three key points.
type PageSummary struct {
	PageNumber      int      `json:"page_number"`
	HeadingSentence string   `json:"heading_sentence"`
	KeyPoints       []string `json:"key_points"`
}
