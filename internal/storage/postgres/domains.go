package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/landgraph/landcrawler/internal/land"
)

// DomainStore resolves site-level groupings, created lazily on first use.
type DomainStore struct {
	db *DB
}

// NewDomainStore constructs a DomainStore.
func NewDomainStore(db *DB) *DomainStore {
	return &DomainStore{db: db}
}

// GetOrCreate implements land.DomainStore. Race-safe via the unique
// constraint on (land_id, name).
func (s *DomainStore) GetOrCreate(ctx context.Context, landID int64, name string) (land.Domain, error) {
	d := land.Domain{LandID: landID, Name: name}
	err := s.db.q(ctx).QueryRow(ctx, `
INSERT INTO domains (land_id, name)
VALUES ($1, $2)
ON CONFLICT (land_id, name) DO NOTHING
RETURNING id`, landID, name).Scan(&d.ID)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return land.Domain{}, fmt.Errorf("insert domain: %w", err)
	}

	err = s.db.q(ctx).QueryRow(ctx, `
SELECT id FROM domains WHERE land_id = $1 AND name = $2`, landID, name).Scan(&d.ID)
	if err != nil {
		return land.Domain{}, fmt.Errorf("select domain after conflict: %w", err)
	}
	return d, nil
}
