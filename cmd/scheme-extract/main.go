package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/anubhav-nekko/cw-dns/internal/archive"
	"github.com/anubhav-nekko/cw-dns/internal/common"
	"github.com/anubhav-nekko/cw-dns/internal/document"
	"github.com/anubhav-nekko/cw-dns/internal/fields"
	"github.com/anubhav-nekko/cw-dns/internal/pipeline"
	"github.com/anubhav-nekko/cw-dns/internal/review"
)

// scheme-extract runs the extraction pipeline over one document and prints
// the staged ticket as JSON. Useful for eyeballing drafts before wiring a
// document into the service.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "scheme-extract <document-path>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := common.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var arch archive.Store
	if cfg.Loader.ArchiveDBPath != "" {
		st, err := archive.OpenSQLite(cfg.Loader.ArchiveDBPath, logger)
		if err != nil {
			logger.Error("open archive store", "error", err)
			os.Exit(1)
		}
		defer st.Close()
		arch = st
	}

	var catalog fields.Catalog
	if cfg.Pipeline.CatalogPath != "" {
		var err error
		catalog, err = fields.LoadCatalog(cfg.Pipeline.CatalogPath)
		if err != nil {
			logger.Error("load product catalog", "error", err)
			os.Exit(1)
		}
	}

	loader := document.NewLoader(document.Config{
		Pdftotext:  cfg.Loader.Pdftotext,
		Pdftoppm:   cfg.Loader.Pdftoppm,
		Tesseract:  cfg.Loader.Tesseract,
		DPI:        cfg.Loader.DPI,
		MaxPages:   cfg.Loader.MaxPages,
		OCRTimeout: cfg.Loader.OCRTimeout,
	}, arch, logger)

	staging := review.NewStore(logger)
	pipe := pipeline.NewPipeline(logger, pipeline.Config{
		MinConfidence: cfg.Pipeline.MinConfidence,
	}, loader, nil, staging, catalog)

	ticket, err := pipe.Run(ctx, path)
	if err != nil {
		logger.Error("pipeline failed", "path", path, "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ticket); err != nil {
		logger.Error("encode ticket", "error", err)
		os.Exit(1)
	}
}
