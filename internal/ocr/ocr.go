package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/entity"
)

var (
	ErrEmptyPath   = errors.New("document path is empty")
	ErrUnsupported = errors.New("unsupported document format")
	ErrInvalidPath = errors.New("invalid document path")
	ErrOutsideRoot = errors.New("document is outside the document root")
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned pages, default 300
	MaxPages      int // 0 = no limit

	// OCRFallback rasterizes and OCRs pages whose text layer is empty.
	OCRFallback bool

	// DocumentRoot, when set, confines extraction to files under this directory
	// after symlinks are resolved.
	DocumentRoot string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner (tests use a fake).
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.DocumentRoot != "" {
		cfg.DocumentRoot = resolveRoot(cfg.DocumentRoot)
	}
	e := &Extractor{cfg: cfg, runner: ExecRunner{Logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExtractPages returns the text of every page of the PDF at path, numbered from 1.
// Pages without text are kept (with empty RawText) so numbering matches the document.
func (e *Extractor) ExtractPages(ctx context.Context, path string) ([]entity.PageContent, error) {
	start := time.Now()
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	if strings.HasPrefix(path, "-") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if !constants.IsPDFExt(filepath.Ext(path)) {
		e.logger.Error("ocr.unsupported_extension", "path", path)
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, filepath.Ext(path))
	}
	path, err := e.resolve(path)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("open document: %s is a directory", path)
	}

	text, err := e.pdfToText(ctx, path)
	if err != nil {
		return nil, err
	}
	raw := SplitPages(text)
	if e.cfg.MaxPages > 0 && len(raw) > e.cfg.MaxPages {
		e.logger.Warn("ocr.page_limit", "path", path, "pages", len(raw), "max_pages", e.cfg.MaxPages)
		raw = raw[:e.cfg.MaxPages]
	}

	pages := make([]entity.PageContent, 0, len(raw))
	var ocrPages int
	for i, r := range raw {
		n := i + 1
		txt := Normalize(r)
		if txt == "" && e.cfg.OCRFallback {
			ocrTxt, err := e.ocrPage(ctx, path, n)
			if err != nil {
				e.logger.Warn("ocr.page_fallback_failed", "path", path, "page", n, "error", err)
			} else {
				txt = Normalize(ocrTxt)
				ocrPages++
			}
		}
		pages = append(pages, entity.PageContent{PageNumber: n, RawText: txt})
	}

	e.logger.Info("ocr.extract.ok",
		"path", path,
		"pages", len(pages),
		"ocr_pages", ocrPages,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

// resolve returns the absolute, symlink-free form of path and enforces DocumentRoot.
func (e *Extractor) resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	if !constants.IsPDFExt(filepath.Ext(resolved)) {
		e.logger.Error("ocr.unsupported_extension", "path", path, "resolved", resolved)
		return "", fmt.Errorf("%w: %q", ErrUnsupported, filepath.Ext(resolved))
	}
	if root := e.cfg.DocumentRoot; root != "" && !within(root, resolved) {
		e.logger.Warn("ocr.outside_root", "path", path, "root", root)
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return resolved, nil
}

func resolveRoot(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}

// ocrPage rasterizes page n and runs tesseract over the image.
func (e *Extractor) ocrPage(ctx context.Context, path string, n int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "docverify-pp-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.tmp_cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	page := fmt.Sprintf("%d", n)
	// pdftoppm -f n -l n -r 300 -png -singlefile <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", page, "-l", page, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", "-singlefile", path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	return e.tesseract(ctx, prefix+".png")
}

func (e *Extractor) tesseract(ctx context.Context, img string) (string, error) {
	args := []string{img, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(string(errb)))
	}
	return string(out), nil
}

// ConfigFromCommon maps the process OCR settings onto an extractor Config.
func ConfigFromCommon(c common.OCRConfig) Config {
	return Config{
		Pdftotext:     c.Pdftotext,
		Pdftoppm:      c.Pdftoppm,
		Tesseract:     c.Tesseract,
		TesseractLang: c.Lang,
		TessdataDir:   c.TessdataDir,
		DPI:           c.DPI,
		MaxPages:      c.MaxPages,
		OCRFallback:   c.OCRFallback,
		DocumentRoot:  c.DocumentRoot,
	}
}
