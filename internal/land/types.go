// Package land defines the core domain types shared across the crawl pipeline.
package land

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Land is a crawl project scoping its own dictionary, seeds and limits.
type Land struct {
	ID        int64
	Name      string
	StartURLs []string
	MaxDepth  int
	MaxItems  int
	Languages []string
}

// Dictionary maps a lemma to its topical weight for one land.
type Dictionary map[string]float64

// Expression is one crawled or discovered URL within a land.
type Expression struct {
	ID          int64
	LandID      int64
	DomainID    int64
	URL         string
	URLHash     string
	Depth       int
	HTTPStatus  int
	Title       string
	Description string
	Keywords    string
	Lang        string
	Readable    string
	Relevance   *float64
	FetchedAt   *time.Time
	ReadableAt  *time.Time
	ApprovedAt  *time.Time
	CreatedAt   time.Time
}

// Approved reports whether the expression scored above zero.
func (e *Expression) Approved() bool {
	return e.Relevance != nil && *e.Relevance > 0
}

// Domain is the site-level grouping an expression belongs to.
type Domain struct {
	ID     int64
	LandID int64
	Name   string
}

// LinkType classifies an edge relative to its source host.
type LinkType string

// Link edge classifications.
const (
	LinkInternal LinkType = "internal"
	LinkExternal LinkType = "external"
)

// Link is a directed edge between two expressions of the same land.
type Link struct {
	ID         int64
	SourceID   int64
	TargetID   int64
	AnchorText string
	Type       LinkType
	Rel        string
}

// MediaType classifies a harvested media reference.
type MediaType string

// Supported media classifications.
const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaAudio    MediaType = "audio"
	MediaDocument MediaType = "document"
)

// ColorShare is one dominant-color cluster: RGB centroid plus area percentage.
type ColorShare struct {
	R          uint8   `json:"r"`
	G          uint8   `json:"g"`
	B          uint8   `json:"b"`
	Percentage float64 `json:"percentage"`
}

// EXIFSubset is the small fixed set of EXIF fields kept per image.
type EXIFSubset struct {
	ImageWidth  int    `json:"image_width,omitempty"`
	ImageLength int    `json:"image_length,omitempty"`
	Make        string `json:"make,omitempty"`
	Model       string `json:"model,omitempty"`
	DateTime    string `json:"date_time,omitempty"`
}

// Media is one media reference discovered on an expression, with optional
// analysis results filled in when image analysis is enabled.
type Media struct {
	ID             int64
	ExpressionID   int64
	URL            string
	Type           MediaType
	Width          int
	Height         int
	Format         string
	ColorMode      string
	FileSize       int64
	AspectRatio    float64
	ContentHash    string
	PerceptualHash string
	DominantColors []ColorShare
	WebsafeColors  map[string]float64
	EXIF           *EXIFSubset
	IsProcessed    bool
	AnalysisError  string
}

// JobStatus represents the lifecycle state of a crawl or consolidation job.
type JobStatus string

// Job status values persisted through the job port.
const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobParams captures the input contract of a crawl job.
type JobParams struct {
	LandID       int64  `json:"land_id"`
	Limit        int    `json:"limit"`
	Depth        *int   `json:"depth,omitempty"`
	HTTPStatus   string `json:"http_status,omitempty"`
	AnalyzeMedia bool   `json:"analyze_media"`
}

// JobResult is the output contract of a crawl or consolidation job.
type JobResult struct {
	ProcessedCount  int            `json:"processed_count"`
	ErrorCount      int            `json:"error_count"`
	HTTPStatusCount map[string]int `json:"http_status_histogram"`
	Duration        time.Duration  `json:"-"`
	DurationSeconds float64        `json:"duration_seconds"`
}

// Merge folds another result into r, summing counts and histograms.
func (r *JobResult) Merge(other JobResult) {
	r.ProcessedCount += other.ProcessedCount
	r.ErrorCount += other.ErrorCount
	if r.HTTPStatusCount == nil {
		r.HTTPStatusCount = make(map[string]int)
	}
	for code, n := range other.HTTPStatusCount {
		r.HTTPStatusCount[code] += n
	}
}

// Job is the stored lifecycle state of one crawl or consolidation job.
type Job struct {
	ID      string     `json:"id"`
	Status  JobStatus  `json:"status"`
	Result  *JobResult `json:"result,omitempty"`
	Error   string     `json:"error,omitempty"`
	Updated time.Time  `json:"updated_at"`
}

// ErrorBucket is the synthetic histogram key for failed fetches.
const ErrorBucket = "error"

// HashURL returns the hex SHA-256 digest used for expression dedup keys.
func HashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
