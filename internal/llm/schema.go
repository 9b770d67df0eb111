package llm

import (
	"encoding/json"
	"fmt"
)

// Kind names one of the fixed model output shapes.
type Kind string

const (
	KindInput            Kind = "input"
	KindPageSummary      Kind = "page_summary"
	KindSearchResult     Kind = "search_result"
	KindSearchResultList Kind = "search_result_list"
	KindVerification     Kind = "verification"
)

// Kinds lists every schema kind.
var Kinds = []Kind{KindInput, KindPageSummary, KindSearchResult, KindSearchResultList, KindVerification}

// KeyPointCount is the exact number of key points a page summary carries.
const KeyPointCount = 3

// Schema returns the JSON Schema (draft 2020-12 subset) for kind as a generic map.
// Unknown properties are tolerated and ignored on decode.
func Schema(kind Kind) (map[string]any, error) {
	switch kind {
	case KindInput:
		return object(map[string]any{
			"pdf_path": stringProp("Filesystem path of the PDF document to search."),
			"query":    stringProp("What the user wants to find in the document."),
		}, "pdf_path", "query"), nil
	case KindPageSummary:
		return pageSummarySchema(), nil
	case KindSearchResult:
		return searchResultSchema(), nil
	case KindSearchResultList:
		return object(map[string]any{
			"results": map[string]any{
				"type":        "array",
				"description": "Relevant claims, most relevant first.",
				"items":       searchResultSchema(),
			},
		}, "results"), nil
	case KindVerification:
		return object(map[string]any{
			"valid":       map[string]any{"type": "boolean", "description": "True only if the page supports the claim."},
			"explanation": stringProp("Why the claim is or is not supported."),
		}, "valid", "explanation"), nil
	default:
		return nil, fmt.Errorf("unknown schema kind %q", kind)
	}
}

func pageSummarySchema() map[string]any {
	return object(map[string]any{
		"page_number":      map[string]any{"type": "integer", "description": "Number of the summarized page."},
		"heading_sentence": stringProp("One sentence capturing the page's main idea."),
		"key_points": map[string]any{
			"type":        "array",
			"description": "Exactly three key points; at least one qualitative and one quantitative.",
			"items":       map[string]any{"type": "string"},
			"minItems":    KeyPointCount,
			"maxItems":    KeyPointCount,
		},
	}, "page_number", "heading_sentence", "key_points")
}

func searchResultSchema() map[string]any {
	return object(map[string]any{
		"content":      stringProp("The relevant statement, as found in the summaries."),
		"claimed_page": map[string]any{"type": "integer", "description": "The single page the statement comes from."},
	}, "content", "claimed_page")
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

// FormatInstructions tells the model how to shape its reply for kind.
// Callers embed the result verbatim in prompts.
func FormatInstructions(kind Kind) string {
	schema, err := Schema(kind)
	if err != nil {
		return ""
	}
	b, _ := json.MarshalIndent(schema, "", "  ")
	return "Respond with a single JSON object that validates against this JSON Schema. " +
		"Do not add commentary before or after it.\n```json\n" + string(b) + "\n```"
}
