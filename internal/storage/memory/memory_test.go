package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/landgraph/landcrawler/internal/land"
)

// TestGetOrCreateIsIdempotent asserts the same URL within a land resolves to
// one expression no matter how often it is created.
func TestGetOrCreateIsIdempotent(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()

	first, created, err := store.GetOrCreate(ctx, 1, "https://example.com/a", 0, 7)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, land.HashURL("https://example.com/a"), first.URLHash)
	require.Equal(t, int64(7), first.DomainID)

	second, created, err := store.GetOrCreate(ctx, 1, "https://example.com/a", 3, 9)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 0, second.Depth, "existing row keeps its original depth")
	require.Equal(t, int64(7), second.DomainID, "existing row keeps its original domain")

	// the same URL in another land is a distinct expression
	other, created, err := store.GetOrCreate(ctx, 2, "https://example.com/a", 0, 7)
	require.NoError(t, err)
	require.True(t, created)
	require.NotEqual(t, first.ID, other.ID)
}

// TestListCandidatesOrderAndFilters covers the frontier query: unfetched
// rows ordered depth then id, the status re-crawl filter, and the limit.
func TestListCandidatesOrderAndFilters(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	now := time.Now()

	deep, _, err := store.GetOrCreate(ctx, 1, "https://example.com/deep", 2, 0)
	require.NoError(t, err)
	_, _, err = store.GetOrCreate(ctx, 1, "https://example.com/shallow", 0, 0)
	require.NoError(t, err)
	fetched, _, err := store.GetOrCreate(ctx, 1, "https://example.com/done", 0, 0)
	require.NoError(t, err)

	fetched.HTTPStatus = 503
	fetched.FetchedAt = &now
	require.NoError(t, store.Update(ctx, fetched))

	candidates, err := store.ListCandidates(ctx, land.CandidateFilter{LandID: 1})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, "https://example.com/shallow", candidates[0].URL)
	require.Equal(t, "https://example.com/deep", candidates[1].URL)

	// the status filter re-selects fetched rows
	retries, err := store.ListCandidates(ctx, land.CandidateFilter{LandID: 1, HTTPStatus: "503"})
	require.NoError(t, err)
	require.Len(t, retries, 1)
	require.Equal(t, fetched.ID, retries[0].ID)

	// depth filter plus limit
	depth := 2
	limited, err := store.ListCandidates(ctx, land.CandidateFilter{LandID: 1, Depth: &depth, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	require.Equal(t, deep.ID, limited[0].ID)
}

// TestListReadable asserts only rows with extracted content come back.
func TestListReadable(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	now := time.Now()

	readable, _, err := store.GetOrCreate(ctx, 1, "https://example.com/read", 0, 0)
	require.NoError(t, err)
	readable.ReadableAt = &now
	require.NoError(t, store.Update(ctx, readable))
	_, _, err = store.GetOrCreate(ctx, 1, "https://example.com/frontier", 1, 0)
	require.NoError(t, err)

	rows, err := store.ListReadable(ctx, 1, nil, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, readable.ID, rows[0].ID)
}

// TestLinkLifecycle covers edge dedup and delete-by-source.
func TestLinkLifecycle(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()

	created, err := store.CreateIfAbsent(ctx, land.Link{SourceID: 1, TargetID: 2})
	require.NoError(t, err)
	require.True(t, created)

	created, err = store.CreateIfAbsent(ctx, land.Link{SourceID: 1, TargetID: 2, AnchorText: "again"})
	require.NoError(t, err)
	require.False(t, created)
	require.Len(t, store.Links(), 1)

	require.NoError(t, store.DeleteAllForSource(ctx, 1))
	require.Empty(t, store.Links())
}

// TestMediaLifecycle covers existence checks and delete-by-expression.
func TestMediaLifecycle(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, land.Media{ExpressionID: 5, URL: "https://example.com/a.png"}))
	exists, err := store.Exists(ctx, 5, "https://example.com/a.png")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = store.Exists(ctx, 5, "https://example.com/other.png")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, store.DeleteAllForExpression(ctx, 5))
	require.Empty(t, store.Media(5))
}

// TestJobLifecycle walks the status transitions through the job port.
func TestJobLifecycle(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()

	_, err := store.GetJob(ctx, "missing")
	require.ErrorIs(t, err, land.ErrNotFound)

	require.NoError(t, store.UpdateStatus(ctx, "j1", land.JobRunning, nil, ""))
	result := land.JobResult{ProcessedCount: 3, HTTPStatusCount: map[string]int{"200": 3}}
	require.NoError(t, store.UpdateStatus(ctx, "j1", land.JobCompleted, &result, ""))

	job, err := store.GetJob(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, land.JobCompleted, job.Status)
	require.Equal(t, 3, job.Result.ProcessedCount)
}

// TestArchiveRoundTrip covers the raw-HTML archive port.
func TestArchiveRoundTrip(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	hash := land.HashURL("https://example.com/a")

	_, err := store.Load(ctx, 1, hash)
	require.ErrorIs(t, err, land.ErrNotFound)

	require.NoError(t, store.Store(ctx, 1, hash, []byte("<html></html>")))
	html, err := store.Load(ctx, 1, hash)
	require.NoError(t, err)
	require.Equal(t, "<html></html>", string(html))
}

// TestLandsView asserts the adapter resolves lands and dictionaries and maps
// misses onto the domain sentinel.
func TestLandsView(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	store.AddLand(land.Land{ID: 1, Name: "climate"}, land.Dictionary{"test": 1.0})
	lands := store.Lands()

	ld, err := lands.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "climate", ld.Name)

	dict, err := lands.GetDictionary(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, land.Dictionary{"test": 1.0}, dict)

	_, err = lands.Get(ctx, 2)
	require.ErrorIs(t, err, land.ErrNotFound)
	_, err = lands.GetDictionary(ctx, 2)
	require.ErrorIs(t, err, land.ErrNotFound)
}

// TestDomainsView asserts the adapter dedups by land and name.
func TestDomainsView(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	domains := store.Domains()

	first, err := domains.GetOrCreate(ctx, 1, "example.com")
	require.NoError(t, err)
	second, err := domains.GetOrCreate(ctx, 1, "example.com")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	other, err := domains.GetOrCreate(ctx, 2, "example.com")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)
}
