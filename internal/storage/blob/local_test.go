package blob

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/landgraph/landcrawler/internal/land"
)

// TestLocalArchiveRoundTrip stores and reloads a page under the object
// layout shared with the GCS archive.
func TestLocalArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive, err := NewLocalArchive(filepath.Join(dir, "pages"))
	require.NoError(t, err)

	ctx := context.Background()
	hash := land.HashURL("https://example.com/a")
	require.NoError(t, archive.Store(ctx, 3, hash, []byte("<html>body</html>")))

	data, err := archive.Load(ctx, 3, hash)
	require.NoError(t, err)
	require.Equal(t, "<html>body</html>", string(data))

	_, err = archive.Load(ctx, 3, land.HashURL("https://example.com/missing"))
	require.ErrorIs(t, err, land.ErrNotFound)
}

// TestLocalArchiveRejectsEmptyDir covers the constructor guard.
func TestLocalArchiveRejectsEmptyDir(t *testing.T) {
	t.Parallel()

	_, err := NewLocalArchive("  ")
	require.Error(t, err)
}

// TestNoopArchiveNeverStores asserts the disabled archive always misses.
func TestNoopArchiveNeverStores(t *testing.T) {
	t.Parallel()

	var archive NoopArchive
	ctx := context.Background()
	require.NoError(t, archive.Store(ctx, 1, "abc", []byte("x")))
	_, err := archive.Load(ctx, 1, "abc")
	require.ErrorIs(t, err, land.ErrNotFound)
}
