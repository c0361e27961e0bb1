package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/landgraph/landcrawler/internal/land"
)

// MediaStore persists harvested media references. The analysis payload
// (palette, websafe shares, EXIF subset) lives in jsonb columns.
type MediaStore struct {
	db *DB
}

// NewMediaStore constructs a MediaStore.
func NewMediaStore(db *DB) *MediaStore {
	return &MediaStore{db: db}
}

// Exists implements land.MediaStore.
func (s *MediaStore) Exists(ctx context.Context, expressionID int64, url string) (bool, error) {
	var exists bool
	err := s.db.q(ctx).QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM media WHERE expression_id = $1 AND url = $2
)`, expressionID, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check media existence: %w", err)
	}
	return exists, nil
}

// Create implements land.MediaStore.
func (s *MediaStore) Create(ctx context.Context, media land.Media) error {
	dominant, err := jsonOrNil(media.DominantColors)
	if err != nil {
		return fmt.Errorf("marshal dominant colors: %w", err)
	}
	websafe, err := jsonOrNil(media.WebsafeColors)
	if err != nil {
		return fmt.Errorf("marshal websafe colors: %w", err)
	}
	exifJSON, err := jsonOrNil(media.EXIF)
	if err != nil {
		return fmt.Errorf("marshal exif: %w", err)
	}

	_, err = s.db.q(ctx).Exec(ctx, `
INSERT INTO media (
	expression_id, url, media_type, width, height, format, color_mode,
	file_size, aspect_ratio, content_hash, perceptual_hash,
	dominant_colors, websafe_colors, exif, is_processed, analysis_error
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)
ON CONFLICT (expression_id, url) DO NOTHING`,
		media.ExpressionID, media.URL, string(media.Type), media.Width,
		media.Height, media.Format, media.ColorMode, media.FileSize,
		media.AspectRatio, media.ContentHash, media.PerceptualHash,
		dominant, websafe, exifJSON, media.IsProcessed, media.AnalysisError)
	if err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

// DeleteAllForExpression implements land.MediaStore.
func (s *MediaStore) DeleteAllForExpression(ctx context.Context, expressionID int64) error {
	if _, err := s.db.q(ctx).Exec(ctx,
		`DELETE FROM media WHERE expression_id = $1`, expressionID); err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}

// jsonOrNil marshals v, mapping empty values to SQL NULL.
func jsonOrNil(v any) (any, error) {
	switch val := v.(type) {
	case []land.ColorShare:
		if len(val) == 0 {
			return nil, nil
		}
	case map[string]float64:
		if len(val) == 0 {
			return nil, nil
		}
	case *land.EXIFSubset:
		if val == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
