package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"

	"github.com/joseph-ayodele/docverify/internal/entity"
)

const sheetName = "Verified Results"

// Service renders a finished session as a downloadable report.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// VerifiedResultsXLSX returns a workbook with one row per verified claim.
func (s *Service) VerifiedResultsXLSX(sess entity.Session) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if index, _ := f.GetSheetIndex(sheetName); index == -1 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(activeIndex)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"#", "Claim", "Source", "Page", "Explanation"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for i, r := range sess.VerifiedResults {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		write(1, i+1)
		write(2, r.Content)
		write(3, r.SourcePage)
		write(4, r.PageNumber)
		write(5, truncate(r.Explanation, 500))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 5)
	_ = f.SetColWidth(sheetName, "B", "B", 60)
	_ = f.SetColWidth(sheetName, "C", "D", 10)
	_ = f.SetColWidth(sheetName, "E", "E", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"session_id", sess.ID.String(),
		"rows", len(sess.VerifiedResults),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// Markdown renders the session's query and verified claims as a markdown report.
func Markdown(sess entity.Session) string {
	var b strings.Builder
	b.WriteString("# Verified Results\n\n")
	if sess.DocumentPath != "" {
		fmt.Fprintf(&b, "**Document:** `%s`\n\n", sess.DocumentPath)
	}
	if sess.Query != "" {
		fmt.Fprintf(&b, "**Query:** %s\n\n", escapeMarkdown(sess.Query))
	}
	if len(sess.VerifiedResults) == 0 {
		b.WriteString("_No claims could be verified against the document._\n")
		return b.String()
	}
	for i, r := range sess.VerifiedResults {
		fmt.Fprintf(&b, "%d. %s (Source: %s)\n", i+1, escapeMarkdown(r.Content), r.SourcePage)
		if r.Explanation != "" {
			fmt.Fprintf(&b, "   > %s\n", escapeMarkdown(r.Explanation))
		}
	}
	return b.String()
}

// VerifiedResultsHTML converts Markdown(sess) to an HTML fragment.
func (s *Service) VerifiedResultsHTML(sess entity.Session) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(sess)), &buf); err != nil {
		return nil, fmt.Errorf("markdown to html: %w", err)
	}
	s.logger.Info("export.html.ok", "session_id", sess.ID.String(), "rows", len(sess.VerifiedResults))
	return buf.Bytes(), nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;", ">", "&gt;",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(strings.TrimSpace(s))
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
