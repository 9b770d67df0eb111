package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/docverify/internal/entity"
)

// BuildInterpretPrompt asks the model to pull the document path and query out of free text.
func BuildInterpretPrompt(userInput string) string {
	parts := []string{
		"You read a user's request about a PDF document and extract two things:",
		"the filesystem path of the PDF (pdf_path) and what the user wants to find in it (query).",
		"Copy the path exactly as written. Do not invent a path if none is given; use an empty string.",
		"",
		FormatInstructions(KindInput),
		"",
		"User request:",
		strings.TrimSpace(userInput),
	}
	return strings.Join(parts, "\n")
}

// BuildSummaryPrompt asks for a heading sentence and exactly three key points for one page.
func BuildSummaryPrompt(page entity.PageContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize page %d of a document.\n", page.PageNumber)
	b.WriteString("Write one heading sentence that captures the main idea of the page, ")
	fmt.Fprintf(&b, "then exactly %d key points. ", KeyPointCount)
	b.WriteString("At least one key point must be qualitative and at least one must be quantitative ")
	b.WriteString("(keep numbers, units and percentages exactly as printed). ")
	fmt.Fprintf(&b, "Set page_number to %d.\n\n", page.PageNumber)
	b.WriteString(FormatInstructions(KindPageSummary))
	fmt.Fprintf(&b, "\n\nPage %d text:\n", page.PageNumber)
	b.WriteString(page.RawText)
	return b.String()
}

// FormatSummaries renders summaries as the context block used by the search prompt.
func FormatSummaries(summaries []entity.PageSummary) string {
	blocks := make([]string, 0, len(summaries))
	for _, s := range summaries {
		var b strings.Builder
		fmt.Fprintf(&b, "Page %d:\n", s.PageNumber)
		fmt.Fprintf(&b, "- **Heading Sentence**: %s\n", s.HeadingSentence)
		b.WriteString("- **Key Points**:")
		for i, kp := range s.KeyPoints {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, kp)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// BuildSearchPrompt asks for the claims most relevant to query, each tied to one page.
func BuildSearchPrompt(query string, summaries []entity.PageSummary, maxResults int) string {
	var b strings.Builder
	b.WriteString("Below are per-page summaries of a document.\n\n")
	b.WriteString(FormatSummaries(summaries))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Query: %s\n\n", strings.TrimSpace(query))
	fmt.Fprintf(&b, "List at most %d points from the summaries that are relevant to the query, most relevant first. ", maxResults)
	b.WriteString("Each point must come from exactly one page; put that page number in claimed_page. ")
	b.WriteString("Only use information present in the summaries.\n\n")
	b.WriteString(FormatInstructions(KindSearchResultList))
	return b.String()
}

// BuildVerifyPrompt asks whether pageText supports the claim.
func BuildVerifyPrompt(result entity.SearchResult, pageText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Check a claim against the text of page %d.\n\n", result.ClaimedPage)
	fmt.Fprintf(&b, "Claim: %s\n\n", result.Content)
	fmt.Fprintf(&b, "Page %d text:\n%s\n\n", result.ClaimedPage, pageText)
	b.WriteString("Rules:\n")
	b.WriteString("- Every number in the claim must appear on the page with the same value and unit.\n")
	b.WriteString("- Qualitative statements must be supported by the page, not merely compatible with it.\n")
	b.WriteString("- Anything the page does not state makes the claim invalid.\n\n")
	b.WriteString(FormatInstructions(KindVerification))
	return b.String()
}
