package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/anubhav-nekko/cw-dns/internal/archive"
	"github.com/anubhav-nekko/cw-dns/internal/commit"
	"github.com/anubhav-nekko/cw-dns/internal/common"
	"github.com/anubhav-nekko/cw-dns/internal/document"
	"github.com/anubhav-nekko/cw-dns/internal/export"
	"github.com/anubhav-nekko/cw-dns/internal/fields"
	"github.com/anubhav-nekko/cw-dns/internal/pipeline"
	"github.com/anubhav-nekko/cw-dns/internal/review"
	"github.com/anubhav-nekko/cw-dns/internal/server"
)

func main() {
	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	// Env
	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		log.Fatal("DB_URL env var is required")
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	// DB pool
	pool, err := commit.NewPool(ctx, cfg.Database, slogger)
	if err != nil {
		log.Fatalf("creating DB pool: %v", err)
	}
	defer pool.Close()

	if err := commit.HealthCheck(ctx, pool, slogger); err != nil {
		log.Fatalf("DB health failed: %v", err)
	}
	if err := commit.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("ensuring schema: %v", err)
	}
	log.Infow("DB ready")

	// Archival store for raw document text
	arch, err := archive.OpenSQLite(cfg.Loader.ArchiveDBPath, slogger)
	if err != nil {
		log.Fatalf("opening archive store: %v", err)
	}
	defer arch.Close()

	// Product catalog (optional)
	var catalog fields.Catalog
	if cfg.Pipeline.CatalogPath != "" {
		catalog, err = fields.LoadCatalog(cfg.Pipeline.CatalogPath)
		if err != nil {
			log.Fatalf("loading product catalog: %v", err)
		}
		log.Infow("product catalog loaded", "entries", len(catalog))
	}

	// Pipeline and review surface
	loader := document.NewLoader(document.Config{
		Pdftotext:  cfg.Loader.Pdftotext,
		Pdftoppm:   cfg.Loader.Pdftoppm,
		Tesseract:  cfg.Loader.Tesseract,
		DPI:        cfg.Loader.DPI,
		MaxPages:   cfg.Loader.MaxPages,
		OCRTimeout: cfg.Loader.OCRTimeout,
	}, arch, slogger)

	staging := review.NewStore(slogger)
	gateway := commit.NewGateway(pool, staging, slogger)
	exporter := export.NewService(gateway, slogger)
	pipe := pipeline.NewPipeline(slogger, pipeline.Config{
		MinConfidence: cfg.Pipeline.MinConfidence,
	}, loader, nil, staging, catalog)

	srv := server.NewServer(pipe, staging, gateway, exporter, arch, log)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("HTTP serving on %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http shutdown: %v", err)
	}
	fmt.Println("stopped.")
}
