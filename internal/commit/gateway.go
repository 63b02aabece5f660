// Package commit writes finalized scheme drafts into the persistent store
// as a single atomic unit: either every row is visible to subsequent reads
// or none are.
package commit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anubhav-nekko/cw-dns/internal/common"
	"github.com/anubhav-nekko/cw-dns/internal/reconcile"
	"github.com/anubhav-nekko/cw-dns/internal/review"
)

// Scheme is a committed, read-only scheme as seen by downstream consumers
// (e.g. the sales-simulation engine).
type Scheme struct {
	ID                uuid.UUID             `json:"id"`
	Name              string                `json:"name"`
	ValidFrom         *time.Time            `json:"valid_from,omitempty"`
	ValidTo           *time.Time            `json:"valid_to,omitempty"`
	Region            string                `json:"region,omitempty"`
	DealerEligibility string                `json:"dealer_eligibility,omitempty"`
	SourceID          string                `json:"source_id,omitempty"`
	Products          []reconcile.ProductRef `json:"products,omitempty"`
	Tiers             []reconcile.Tier      `json:"tiers,omitempty"`
	FreeItems         []reconcile.FreeItem  `json:"free_items,omitempty"`
}

// Gateway commits approved tickets transactionally.
type Gateway struct {
	pool    Pool
	staging *review.Store
	logger  *slog.Logger
}

func NewGateway(pool Pool, staging *review.Store, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{pool: pool, staging: staging, logger: logger}
}

// Health pings the underlying store.
func (g *Gateway) Health(ctx context.Context) error {
	return HealthCheck(ctx, g.pool, g.logger)
}

// Commit writes the ticket's final draft (header plus dependent rows) in
// one transaction and marks the ticket superseded. Storage failures roll
// back and leave the ticket approved, so retry is safe and idempotent per
// ticket; a concurrent or repeated commit fails with ErrCommitConflict.
func (g *Gateway) Commit(ctx context.Context, ticketID uuid.UUID) (uuid.UUID, error) {
	t, err := g.staging.BeginCommit(ticketID)
	if err != nil {
		return uuid.Nil, err
	}

	schemeID := uuid.New()
	if err := g.insertScheme(ctx, schemeID, &t.Draft); err != nil {
		if ferr := g.staging.FinishCommit(ticketID, uuid.Nil, false); ferr != nil {
			g.logger.Error("release commit marker failed", "ticket_id", ticketID, "error", ferr)
		}
		return uuid.Nil, fmt.Errorf("commit scheme: %w", err)
	}
	if err := g.staging.FinishCommit(ticketID, schemeID, true); err != nil {
		return uuid.Nil, err
	}

	g.logger.Info("scheme committed",
		"ticket_id", ticketID,
		"scheme_id", schemeID,
		"committed_by", common.ReviewerFromContext(ctx),
		"tiers", len(t.Draft.Tiers),
		"free_items", len(t.Draft.FreeItems),
	)
	return schemeID, nil
}

func (g *Gateway) insertScheme(ctx context.Context, schemeID uuid.UUID, d *reconcile.SchemeDraft) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `
		INSERT INTO schemes (id, name, valid_from, valid_to, region, dealer_eligibility, source_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		schemeID, d.Name, d.ValidFrom, d.ValidTo, d.Region, d.DealerEligibility, d.SourceID,
	); err != nil {
		return fmt.Errorf("insert scheme: %w", err)
	}

	for _, p := range d.Products {
		if _, err := tx.Exec(ctx, `
			INSERT INTO scheme_products (scheme_id, sku, product_name)
			VALUES ($1, $2, $3)`,
			schemeID, p.SKU, p.Name,
		); err != nil {
			return fmt.Errorf("insert product %s: %w", p.SKU, err)
		}
	}

	for i, tier := range d.Tiers {
		var upper *string
		if tier.Upper != nil {
			s := tier.Upper.String()
			upper = &s
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO scheme_tiers (scheme_id, position, lower_bound, upper_bound, unit, payout)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			schemeID, i, tier.Lower.String(), upper, tier.Unit, tier.Payout.String(),
		); err != nil {
			return fmt.Errorf("insert tier %d: %w", i, err)
		}
	}

	for i, fi := range d.FreeItems {
		var value *string
		if fi.Value != nil {
			s := fi.Value.String()
			value = &s
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO scheme_free_items (scheme_id, position, trigger_on, item, item_value)
			VALUES ($1, $2, $3, $4, $5)`,
			schemeID, i, fi.Trigger, fi.Item, value,
		); err != nil {
			return fmt.Errorf("insert free item %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Scheme reads back a committed scheme with all dependent rows.
func (g *Gateway) Scheme(ctx context.Context, id uuid.UUID) (*Scheme, error) {
	s := &Scheme{ID: id}
	err := g.pool.QueryRow(ctx, `
		SELECT name, valid_from, valid_to, region, dealer_eligibility, source_id
		FROM schemes WHERE id = $1`, id,
	).Scan(&s.Name, &s.ValidFrom, &s.ValidTo, &s.Region, &s.DealerEligibility, &s.SourceID)
	if err != nil {
		return nil, fmt.Errorf("load scheme %s: %w", id, err)
	}

	if err := g.loadProducts(ctx, s); err != nil {
		return nil, err
	}
	if err := g.loadTiers(ctx, s); err != nil {
		return nil, err
	}
	if err := g.loadFreeItems(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (g *Gateway) loadProducts(ctx context.Context, s *Scheme) error {
	rows, err := g.pool.Query(ctx, `
		SELECT sku, product_name FROM scheme_products
		WHERE scheme_id = $1 ORDER BY sku`, s.ID)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p reconcile.ProductRef
		if err := rows.Scan(&p.SKU, &p.Name); err != nil {
			return fmt.Errorf("scan product: %w", err)
		}
		s.Products = append(s.Products, p)
	}
	return rows.Err()
}

func (g *Gateway) loadTiers(ctx context.Context, s *Scheme) error {
	rows, err := g.pool.Query(ctx, `
		SELECT lower_bound, upper_bound, unit, payout FROM scheme_tiers
		WHERE scheme_id = $1 ORDER BY position`, s.ID)
	if err != nil {
		return fmt.Errorf("load tiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			tier         reconcile.Tier
			lower, payout string
			upper        *string
		)
		if err := rows.Scan(&lower, &upper, &tier.Unit, &payout); err != nil {
			return fmt.Errorf("scan tier: %w", err)
		}
		if tier.Lower, err = decimal.NewFromString(lower); err != nil {
			return fmt.Errorf("tier lower bound: %w", err)
		}
		if upper != nil {
			u, uerr := decimal.NewFromString(*upper)
			if uerr != nil {
				return fmt.Errorf("tier upper bound: %w", uerr)
			}
			tier.Upper = &u
		}
		if tier.Payout, err = decimal.NewFromString(payout); err != nil {
			return fmt.Errorf("tier payout: %w", err)
		}
		s.Tiers = append(s.Tiers, tier)
	}
	return rows.Err()
}

func (g *Gateway) loadFreeItems(ctx context.Context, s *Scheme) error {
	rows, err := g.pool.Query(ctx, `
		SELECT trigger_on, item, item_value FROM scheme_free_items
		WHERE scheme_id = $1 ORDER BY position`, s.ID)
	if err != nil {
		return fmt.Errorf("load free items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			fi    reconcile.FreeItem
			value *string
		)
		if err := rows.Scan(&fi.Trigger, &fi.Item, &value); err != nil {
			return fmt.Errorf("scan free item: %w", err)
		}
		if value != nil {
			v, verr := decimal.NewFromString(*value)
			if verr != nil {
				return fmt.Errorf("free item value: %w", verr)
			}
			fi.Value = &v
		}
		s.FreeItems = append(s.FreeItems, fi)
	}
	return rows.Err()
}
