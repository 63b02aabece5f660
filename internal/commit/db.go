package commit

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anubhav-nekko/cw-dns/internal/common"
)

// Pool is the subset of pgxpool.Pool the gateway needs; pgxmock satisfies
// it in tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// NewPool creates a pgx pool from database configuration.
func NewPool(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("invalid database DSN", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "cw-dns"

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	logger.Info("successfully connected to database")
	return pool, nil
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool Pool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("pinging database")
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// Schema DDL for the persistent scheme tables.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS schemes (
	id                 UUID PRIMARY KEY,
	name               TEXT NOT NULL,
	valid_from         DATE,
	valid_to           DATE,
	region             TEXT,
	dealer_eligibility TEXT,
	source_id          TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS scheme_products (
	scheme_id    UUID NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
	sku          TEXT NOT NULL,
	product_name TEXT,
	PRIMARY KEY (scheme_id, sku)
);
CREATE TABLE IF NOT EXISTS scheme_tiers (
	scheme_id   UUID NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
	position    INT  NOT NULL,
	lower_bound NUMERIC(14,2) NOT NULL,
	upper_bound NUMERIC(14,2),
	unit        TEXT,
	payout      NUMERIC(14,2) NOT NULL,
	PRIMARY KEY (scheme_id, position)
);
CREATE TABLE IF NOT EXISTS scheme_free_items (
	scheme_id  UUID NOT NULL REFERENCES schemes(id) ON DELETE CASCADE,
	position   INT  NOT NULL,
	trigger_on TEXT,
	item       TEXT NOT NULL,
	item_value NUMERIC(14,2),
	PRIMARY KEY (scheme_id, position)
);`

// EnsureSchema creates the scheme tables if they do not exist.
func EnsureSchema(ctx context.Context, pool Pool) error {
	_, err := pool.Exec(ctx, schemaDDL)
	return err
}
