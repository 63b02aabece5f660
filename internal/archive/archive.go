package archive

import "context"

// Store caches raw extracted document text keyed by source identifier.
// Put is an idempotent overwrite. Failures here are non-fatal to the
// extraction pipeline: callers log and proceed.
type Store interface {
	Put(ctx context.Context, key, text string) error
	Get(ctx context.Context, key string) (string, bool, error)
}
