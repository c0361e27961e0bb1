package blob

import (
	"context"

	"github.com/landgraph/landcrawler/internal/land"
)

// NoopArchive discards stores and never finds anything. Used when raw-HTML
// archiving is disabled; consolidation then falls back to stored readable
// text.
type NoopArchive struct{}

// Store implements land.ArchiveStore.
func (NoopArchive) Store(context.Context, int64, string, []byte) error { return nil }

// Load implements land.ArchiveStore.
func (NoopArchive) Load(context.Context, int64, string) ([]byte, error) {
	return nil, land.ErrNotFound
}
