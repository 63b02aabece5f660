package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/anubhav-nekko/cw-dns/internal/common"
)

// loadPDF tries the native text layer first, then falls back to
// rasterize-and-OCR for scanned documents. The OCR pass runs under
// cfg.OCRTimeout and aborts with ErrUnreadableDocument rather than hanging.
func (l *Loader) loadPDF(ctx context.Context, path string) ([]string, string, error) {
	pages, err := l.pdfToText(ctx, path)
	if err == nil && !allBlank(pages) {
		return pages, "pdf-text", nil
	}
	if err != nil {
		l.logger.Warn("pdftotext failed, trying ocr", "path", path, "error", err)
	} else {
		l.logger.Info("pdf has no text layer, trying ocr", "path", path)
	}

	ocrCtx, cancel := context.WithTimeout(ctx, l.cfg.OCRTimeout)
	defer cancel()
	pages, err = l.pdfToOCR(ocrCtx, path)
	if err != nil {
		return nil, "pdf-ocr", fmt.Errorf("%w: %v", common.ErrUnreadableDocument, err)
	}
	return pages, "pdf-ocr", nil
}

func (l *Loader) pdfToText(ctx context.Context, path string) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := l.runner.Run(ctx, l.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %v: %s", err, clip(string(errb), 512))
	}
	// A form-feed \f is used as page separator by default
	return splitPages(string(out)), nil
}

func (l *Loader) pdfToOCR(ctx context.Context, path string) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "cwdns-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if rerr := os.RemoveAll(path); rerr != nil {
			l.logger.Warn("failed to remove temp dir", "path", path, "error", rerr)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := l.runner.Run(ctx, l.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", l.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %v: %s", err, clip(string(errb), 512))
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if l.cfg.MaxPages > 0 && len(matches) > l.cfg.MaxPages {
		matches = matches[:l.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}

	// Per-page OCR failures leave an empty page string so page indices
	// stay aligned with the source document.
	pages := make([]string, 0, len(matches))
	for _, img := range matches {
		txt, oerr := l.tesseractOCR(ctx, img)
		if oerr != nil {
			l.logger.Warn("page ocr failed", "image", filepath.Base(img), "error", oerr)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

func (l *Loader) tesseractOCR(ctx context.Context, imgPath string) (string, error) {
	// tesseract <img> stdout
	out, errb, err := l.runner.Run(ctx, l.cfg.Tesseract, imgPath, "stdout")
	if err != nil {
		return "", fmt.Errorf("tesseract: %v: %s", err, clip(string(errb), 512))
	}
	return string(out), nil
}
