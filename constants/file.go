package constants

import "strings"

// PDF is the only document format accepted by the extractor.
const PDF = "pdf"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDFExt reports whether ext (with or without the leading dot) names a PDF.
func IsPDFExt(ext string) bool {
	return NormalizeExt(ext) == PDF
}
