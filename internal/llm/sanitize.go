package llm

import (
	"regexp"
	"strings"
)

var reFence = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\\n?(.*?)\\n?```$")

// StripEnvelope removes a surrounding markdown code fence from a model reply.
// Only the wrapper is touched; the JSON inside is returned as-is.
func StripEnvelope(raw string) string {
	s := strings.TrimSpace(raw)
	if m := reFence.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	return s
}
