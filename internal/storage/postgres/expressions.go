package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/landgraph/landcrawler/internal/land"
)

const expressionColumns = `
id, land_id, COALESCE(domain_id, 0), url, url_hash, depth,
COALESCE(http_status, 0), COALESCE(title, ''), COALESCE(description, ''),
COALESCE(keywords, ''), COALESCE(lang, ''), COALESCE(readable, ''),
relevance, fetched_at, readable_at, approved_at, created_at`

// ExpressionStore persists crawl units.
type ExpressionStore struct {
	db *DB
}

// NewExpressionStore constructs an ExpressionStore.
func NewExpressionStore(db *DB) *ExpressionStore {
	return &ExpressionStore{db: db}
}

// GetOrCreate implements land.ExpressionStore. The unique constraint on
// (land_id, url_hash) makes concurrent creates race-safe: the losing insert
// falls through to the select.
func (s *ExpressionStore) GetOrCreate(ctx context.Context, landID int64, url string, depth int, domainID int64) (land.Expression, bool, error) {
	hash := land.HashURL(url)
	var id int64
	err := s.db.q(ctx).QueryRow(ctx, `
INSERT INTO expressions (land_id, url, url_hash, depth, domain_id)
VALUES ($1, $2, $3, $4, NULLIF($5, 0))
ON CONFLICT (land_id, url_hash) DO NOTHING
RETURNING id`, landID, url, hash, depth, domainID).Scan(&id)
	switch {
	case err == nil:
		expr, err := s.Get(ctx, id)
		return expr, true, err
	case errors.Is(err, pgx.ErrNoRows):
		expr, err := s.Find(ctx, landID, hash)
		return expr, false, err
	default:
		return land.Expression{}, false, fmt.Errorf("insert expression: %w", err)
	}
}

// Find implements land.ExpressionStore.
func (s *ExpressionStore) Find(ctx context.Context, landID int64, urlHash string) (land.Expression, error) {
	row := s.db.q(ctx).QueryRow(ctx, `
SELECT `+expressionColumns+`
FROM expressions
WHERE land_id = $1 AND url_hash = $2`, landID, urlHash)
	expr, err := scanExpression(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return land.Expression{}, land.ErrNotFound
	}
	if err != nil {
		return land.Expression{}, fmt.Errorf("select expression by hash: %w", err)
	}
	return expr, nil
}

// Get implements land.ExpressionStore.
func (s *ExpressionStore) Get(ctx context.Context, id int64) (land.Expression, error) {
	row := s.db.q(ctx).QueryRow(ctx, `
SELECT `+expressionColumns+`
FROM expressions
WHERE id = $1`, id)
	expr, err := scanExpression(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return land.Expression{}, fmt.Errorf("expression %d: %w", id, land.ErrNotFound)
	}
	if err != nil {
		return land.Expression{}, fmt.Errorf("select expression: %w", err)
	}
	return expr, nil
}

// Update implements land.ExpressionStore.
func (s *ExpressionStore) Update(ctx context.Context, expr land.Expression) error {
	tag, err := s.db.q(ctx).Exec(ctx, `
UPDATE expressions SET
	domain_id = NULLIF($2, 0),
	http_status = $3,
	title = $4,
	description = $5,
	keywords = $6,
	lang = $7,
	readable = $8,
	relevance = $9,
	fetched_at = $10,
	readable_at = $11,
	approved_at = $12
WHERE id = $1`,
		expr.ID, expr.DomainID, expr.HTTPStatus, expr.Title, expr.Description,
		expr.Keywords, expr.Lang, expr.Readable, expr.Relevance,
		expr.FetchedAt, expr.ReadableAt, expr.ApprovedAt)
	if err != nil {
		return fmt.Errorf("update expression: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("expression %d: %w", expr.ID, land.ErrNotFound)
	}
	return nil
}

// ListCandidates implements land.ExpressionStore: unfetched expressions, or
// expressions whose recorded status matches the filter, ordered by depth
// then id so batches expand breadth-first.
func (s *ExpressionStore) ListCandidates(ctx context.Context, filter land.CandidateFilter) ([]land.Expression, error) {
	var (
		conds = []string{"land_id = $1"}
		args  = []any{filter.LandID}
	)
	if filter.HTTPStatus != "" {
		args = append(args, filter.HTTPStatus)
		conds = append(conds, fmt.Sprintf("http_status::text = $%d", len(args)))
	} else {
		conds = append(conds, "fetched_at IS NULL")
	}
	if filter.Depth != nil {
		args = append(args, *filter.Depth)
		conds = append(conds, fmt.Sprintf("depth = $%d", len(args)))
	}

	query := `
SELECT ` + expressionColumns + `
FROM expressions
WHERE ` + strings.Join(conds, " AND ") + `
ORDER BY depth, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return s.list(ctx, query, args...)
}

// ListReadable implements land.ExpressionStore.
func (s *ExpressionStore) ListReadable(ctx context.Context, landID int64, depth *int, limit int) ([]land.Expression, error) {
	var (
		conds = []string{"land_id = $1", "readable_at IS NOT NULL"}
		args  = []any{landID}
	)
	if depth != nil {
		args = append(args, *depth)
		conds = append(conds, fmt.Sprintf("depth = $%d", len(args)))
	}

	query := `
SELECT ` + expressionColumns + `
FROM expressions
WHERE ` + strings.Join(conds, " AND ") + `
ORDER BY depth, id`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return s.list(ctx, query, args...)
}

// CountByLand implements land.ExpressionStore.
func (s *ExpressionStore) CountByLand(ctx context.Context, landID int64) (int, error) {
	var n int
	err := s.db.q(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM expressions WHERE land_id = $1`, landID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expressions: %w", err)
	}
	return n, nil
}

func (s *ExpressionStore) list(ctx context.Context, query string, args ...any) ([]land.Expression, error) {
	rows, err := s.db.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select expressions: %w", err)
	}
	defer rows.Close()

	var out []land.Expression
	for rows.Next() {
		expr, err := scanExpression(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expression row: %w", err)
		}
		out = append(out, expr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expression rows: %w", err)
	}
	return out, nil
}

func scanExpression(row pgx.Row) (land.Expression, error) {
	var expr land.Expression
	err := row.Scan(
		&expr.ID, &expr.LandID, &expr.DomainID, &expr.URL, &expr.URLHash,
		&expr.Depth, &expr.HTTPStatus, &expr.Title, &expr.Description,
		&expr.Keywords, &expr.Lang, &expr.Readable, &expr.Relevance,
		&expr.FetchedAt, &expr.ReadableAt, &expr.ApprovedAt, &expr.CreatedAt,
	)
	return expr, err
}
