package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const ddl = `
CREATE TABLE IF NOT EXISTS raw_documents (
	source_id   TEXT PRIMARY KEY,
	raw_text    TEXT NOT NULL,
	archived_at TIMESTAMP NOT NULL
);`

// SQLiteStore is a file-backed Store for raw document text.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenSQLite opens (and initializes) the archival database at path.
// Use "file::memory:?cache=shared" for an in-memory store.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	logger.Info("archive store ready", "path", path)
	return &SQLiteStore{db: db, log: logger}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_documents (source_id, raw_text, archived_at)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			raw_text = excluded.raw_text,
			archived_at = excluded.archived_at`,
		key, text, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("archive put %q: %w", key, err)
	}
	s.log.Debug("archived raw text", "source_id", key, "bytes", len(text))
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT raw_text FROM raw_documents WHERE source_id = ?`, key).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("archive get %q: %w", key, err)
	}
	return text, true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
