package archive

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "archive.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "scheme.pdf", "raw scheme text"))

	got, ok, err := s.Get(ctx, "scheme.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "raw scheme text", got)
}

func TestGetMissingKey(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get(context.Background(), "nope.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutOverwritesExistingText(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "scheme.pdf", "first pass"))
	require.NoError(t, s.Put(ctx, "scheme.pdf", "re-extracted text"))

	got, ok, err := s.Get(ctx, "scheme.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "re-extracted text", got)
}
