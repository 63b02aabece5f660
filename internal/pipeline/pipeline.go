// Package pipeline coordinates one document's pass through load, segment,
// extract, reconcile, and staging. Each run is short-lived and sequential;
// the extractor variants run concurrently over the immutable zones.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/anubhav-nekko/cw-dns/internal/document"
	"github.com/anubhav-nekko/cw-dns/internal/fields"
	"github.com/anubhav-nekko/cw-dns/internal/reconcile"
	"github.com/anubhav-nekko/cw-dns/internal/review"
	"github.com/anubhav-nekko/cw-dns/internal/segment"
)

// Config holds thresholds and behavior flags for the pipeline.
type Config struct {
	MinConfidence float32 // default 0.60
}

type Pipeline struct {
	Logger     *slog.Logger
	Cfg        Config
	Loader     *document.Loader
	Extractors []fields.Extractor
	Staging    *review.Store
	Catalog    fields.Catalog
}

func NewPipeline(
	logger *slog.Logger,
	cfg Config,
	loader *document.Loader,
	extractors []fields.Extractor,
	staging *review.Store,
	catalog fields.Catalog,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.60
	}
	if len(extractors) == 0 {
		extractors = fields.DefaultExtractors()
	}
	return &Pipeline{
		Logger:     logger,
		Cfg:        cfg,
		Loader:     loader,
		Extractors: extractors,
		Staging:    staging,
		Catalog:    catalog,
	}
}

// Run processes one source document end to end and stages the resulting
// draft for review. Only loader-level errors propagate; extraction issues
// surface as flags on the staged draft, never as failures.
func (p *Pipeline) Run(ctx context.Context, path string) (*review.Ticket, error) {
	doc, err := p.Loader.Load(ctx, path)
	if err != nil {
		p.Logger.Error("pipeline.load.failed", "path", path, "err", err)
		return nil, fmt.Errorf("load document: %w", err)
	}

	zones := segment.Segment(doc)
	p.Logger.Info("pipeline.segment.ok",
		"source_id", doc.SourceID, "zones", len(zones))

	run := fields.NewRun(p.Catalog, p.Cfg.MinConfidence)
	candidates := p.extract(ctx, run, zones)

	draft := reconcile.Reconcile(run, doc.SourceID, candidates)
	ticket := p.Staging.Stage(run, draft, candidates)

	p.Logger.Info("pipeline.ok",
		"source_id", doc.SourceID,
		"run_id", run.ID,
		"ticket_id", ticket.ID,
		"candidates", len(candidates),
		"tiers", len(draft.Tiers),
		"free_items", len(draft.FreeItems),
		"needs_review", draft.NeedsReview,
	)
	return ticket, nil
}

// extract fans the extractor variants out over the zones. Extractors are
// pure over immutable zones, so the only shared state is the result slice.
func (p *Pipeline) extract(ctx context.Context, run fields.Run, zones []segment.Zone) []fields.CandidateField {
	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		candidates []fields.CandidateField
	)
	for _, ex := range p.Extractors {
		wg.Add(1)
		go func(ex fields.Extractor) {
			defer wg.Done()
			var (
				local              []fields.CandidateField
				tierRows, freeRows int
			)
			for _, z := range zones {
				if !ex.Accepts(z.Category) {
					continue
				}
				cs := ex.Extract(ctx, run, z)
				// Row indices restart at zero per zone; shift them so a
				// table split across zones keeps distinct rows.
				cs, tierRows, freeRows = fields.Renumber(cs, tierRows, freeRows)
				local = append(local, cs...)
			}
			if len(local) == 0 {
				return
			}
			mu.Lock()
			candidates = append(candidates, local...)
			mu.Unlock()
		}(ex)
	}
	wg.Wait()
	return candidates
}
