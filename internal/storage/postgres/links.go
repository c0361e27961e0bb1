package postgres

import (
	"context"
	"fmt"

	"github.com/landgraph/landcrawler/internal/land"
)

// LinkStore persists edges of the expression graph.
type LinkStore struct {
	db *DB
}

// NewLinkStore constructs a LinkStore.
func NewLinkStore(db *DB) *LinkStore {
	return &LinkStore{db: db}
}

// CreateIfAbsent implements land.LinkStore. The unique constraint on
// (source_id, target_id) makes repeated discovery idempotent.
func (s *LinkStore) CreateIfAbsent(ctx context.Context, link land.Link) (bool, error) {
	tag, err := s.db.q(ctx).Exec(ctx, `
INSERT INTO links (source_id, target_id, anchor_text, link_type, rel)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (source_id, target_id) DO NOTHING`,
		link.SourceID, link.TargetID, link.AnchorText, string(link.Type), link.Rel)
	if err != nil {
		return false, fmt.Errorf("insert link: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAllForSource implements land.LinkStore.
func (s *LinkStore) DeleteAllForSource(ctx context.Context, sourceID int64) error {
	if _, err := s.db.q(ctx).Exec(ctx,
		`DELETE FROM links WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("delete links: %w", err)
	}
	return nil
}
