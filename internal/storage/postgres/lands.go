package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/landgraph/landcrawler/internal/land"
)

// LandStore reads land configuration and dictionaries.
type LandStore struct {
	db *DB
}

// NewLandStore constructs a LandStore.
func NewLandStore(db *DB) *LandStore {
	return &LandStore{db: db}
}

// Get implements land.LandStore.
func (s *LandStore) Get(ctx context.Context, landID int64) (land.Land, error) {
	var ld land.Land
	err := s.db.q(ctx).QueryRow(ctx, `
SELECT id, name, start_urls, max_depth, max_items, languages
FROM lands
WHERE id = $1`, landID).Scan(
		&ld.ID, &ld.Name, &ld.StartURLs, &ld.MaxDepth, &ld.MaxItems, &ld.Languages,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return land.Land{}, fmt.Errorf("land %d: %w", landID, land.ErrNotFound)
	}
	if err != nil {
		return land.Land{}, fmt.Errorf("select land: %w", err)
	}
	return ld, nil
}

// GetDictionary implements land.LandStore.
func (s *LandStore) GetDictionary(ctx context.Context, landID int64) (land.Dictionary, error) {
	rows, err := s.db.q(ctx).Query(ctx, `
SELECT lemma, weight
FROM land_dictionary
WHERE land_id = $1`, landID)
	if err != nil {
		return nil, fmt.Errorf("select dictionary: %w", err)
	}
	defer rows.Close()

	dict := make(land.Dictionary)
	for rows.Next() {
		var (
			lemma  string
			weight float64
		)
		if err := rows.Scan(&lemma, &weight); err != nil {
			return nil, fmt.Errorf("scan dictionary row: %w", err)
		}
		dict[lemma] = weight
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dictionary rows: %w", err)
	}
	return dict, nil
}
