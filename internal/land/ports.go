package land

import (
	"context"
	"time"
)

// CandidateFilter selects expressions eligible for crawling.
type CandidateFilter struct {
	LandID     int64
	Depth      *int
	HTTPStatus string
	Limit      int
}

// LandStore resolves land configuration and dictionaries.
type LandStore interface {
	Get(ctx context.Context, landID int64) (Land, error)
	GetDictionary(ctx context.Context, landID int64) (Dictionary, error)
}

// ExpressionStore persists crawl units. GetOrCreate must be race-safe under
// concurrent workers: a duplicate insert on (land_id, url_hash) resolves to
// the existing row instead of failing. domainID associates the expression
// with its host's site-level grouping at creation; zero leaves it unset.
type ExpressionStore interface {
	GetOrCreate(ctx context.Context, landID int64, url string, depth int, domainID int64) (Expression, bool, error)
	Find(ctx context.Context, landID int64, urlHash string) (Expression, error)
	Get(ctx context.Context, id int64) (Expression, error)
	Update(ctx context.Context, expr Expression) error
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]Expression, error)
	ListReadable(ctx context.Context, landID int64, depth *int, limit int) ([]Expression, error)
	CountByLand(ctx context.Context, landID int64) (int, error)
}

// DomainStore resolves site-level groupings, created lazily on first reference.
type DomainStore interface {
	GetOrCreate(ctx context.Context, landID int64, name string) (Domain, error)
}

// LinkStore persists edges of the expression graph.
type LinkStore interface {
	CreateIfAbsent(ctx context.Context, link Link) (bool, error)
	DeleteAllForSource(ctx context.Context, sourceID int64) error
}

// MediaStore persists harvested media references.
type MediaStore interface {
	Exists(ctx context.Context, expressionID int64, url string) (bool, error)
	Create(ctx context.Context, media Media) error
	DeleteAllForExpression(ctx context.Context, expressionID int64) error
}

// Tx runs fn inside a single storage transaction when the backing store
// supports one. Each crawled item's writes form one such unit of work so a
// mid-item failure rolls back cleanly.
type Tx interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ArchiveStore keeps raw fetched HTML so consolidation can re-derive links
// and media without a network fetch. Load returns ErrNotFound when no
// snapshot was archived for the key.
type ArchiveStore interface {
	Store(ctx context.Context, landID int64, urlHash string, html []byte) error
	Load(ctx context.Context, landID int64, urlHash string) ([]byte, error)
}

// JobStore tracks job lifecycle transitions and results.
type JobStore interface {
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, result *JobResult, errText string) error
	GetJob(ctx context.Context, jobID string) (Job, error)
}

// Batch is an independently dispatchable unit of crawl work.
type Batch struct {
	JobID        string  `json:"job_id"`
	LandID       int64   `json:"land_id"`
	Expressions  []int64 `json:"expression_ids"`
	AnalyzeMedia bool    `json:"analyze_media"`
}

// BatchQueue dispatches sub-batches for distributed execution and collects
// their results. Dispatch is fire-and-collect: Await blocks until every
// dispatched batch for the job reports back.
type BatchQueue interface {
	Dispatch(ctx context.Context, batch Batch) error
	Await(ctx context.Context, jobID string, batches int) ([]JobResult, error)
}

// Clock returns the current time; injected so tests control durations.
type Clock interface {
	Now() time.Time
}
