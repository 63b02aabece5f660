package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/archive"
	"github.com/anubhav-nekko/cw-dns/internal/common"
)

// RawDocument is the normalized page-level text of one source document.
// Empty pages are preserved as empty strings so page indices stay meaningful
// for zone provenance. Immutable once loaded.
type RawDocument struct {
	SourceID    string
	Pages       []string
	Method      string // "pdf-text" | "pdf-ocr" | "txt"
	ExtractedAt time.Time
}

// Text joins all pages with form-feed separators.
func (d *RawDocument) Text() string {
	return strings.Join(d.Pages, "\n\f\n")
}

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	DPI        int // rasterization DPI for scanned PDFs, default 300
	MaxPages   int // 0 = no limit
	OCRTimeout time.Duration
}

// Loader obtains raw page text from a source document.
type Loader struct {
	cfg     Config
	runner  Runner
	archive archive.Store
	logger  *slog.Logger
}

// NewLoader builds a Loader. arch may be nil; archival failures are never fatal.
func NewLoader(cfg Config, arch archive.Store, logger *slog.Logger) *Loader {
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
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = 2 * time.Minute
	}
	return &Loader{cfg: cfg, runner: toolRunner{logger: logger}, archive: arch, logger: logger}
}

// Load picks a strategy based on file extension and returns page-level text.
// Returns ErrUnsupportedFormat for non-document inputs and
// ErrUnreadableDocument when no page yields any text.
func (l *Loader) Load(ctx context.Context, path string) (*RawDocument, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	format := constants.MapExtToFormat(ext)
	l.logger.Debug("loading document", "path", path, "ext", ext, "format", format)

	var (
		pages  []string
		method string
		err    error
	)
	switch format {
	case constants.PDF:
		pages, method, err = l.loadPDF(ctx, path)
		if err != nil {
			return nil, err
		}
	case constants.TXT:
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil, fmt.Errorf("read %s: %w", path, rerr)
		}
		pages, method = splitPages(string(b)), "txt"
	default:
		return nil, fmt.Errorf("%w: extension %q", common.ErrUnsupportedFormat, ext)
	}

	if allBlank(pages) {
		l.logger.Error("document produced no text", "path", path, "method", method)
		return nil, fmt.Errorf("%w: %s", common.ErrUnreadableDocument, filepath.Base(path))
	}

	doc := &RawDocument{
		SourceID:    filepath.Base(path),
		Pages:       pages,
		Method:      method,
		ExtractedAt: time.Now().UTC(),
	}

	// Raw-text archival is best-effort: failures are logged and ignored.
	if l.archive != nil {
		if aerr := l.archive.Put(ctx, doc.SourceID, doc.Text()); aerr != nil {
			l.logger.Warn("raw text archival failed", "source_id", doc.SourceID, "error", aerr)
		}
	}

	l.logger.Info("document loaded",
		"source_id", doc.SourceID,
		"pages", len(doc.Pages),
		"method", method,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// splitPages splits extracted text on the form-feed page separator.
func splitPages(text string) []string {
	raw := strings.Split(text, "\f")
	pages := make([]string, len(raw))
	for i, p := range raw {
		pages[i] = strings.Trim(p, "\n")
	}
	return pages
}

func allBlank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}
