package linkgraph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/landgraph/landcrawler/internal/dom"
	"github.com/landgraph/landcrawler/internal/land"
	"github.com/landgraph/landcrawler/internal/storage/memory"
)

func newTestBuilder(store *memory.Store) *Builder {
	return New(store, store.Domains(), store, 0, nil)
}

func mustParse(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.Parse(html)
	require.NoError(t, err)
	return doc
}

func mustCreate(t *testing.T, store *memory.Store, landID int64, url string, depth int) land.Expression {
	t.Helper()
	expr, _, err := store.GetOrCreate(context.Background(), landID, url, depth, 0)
	require.NoError(t, err)
	return expr
}

// TestDiscoverDedupAcrossSources verifies the same normalized target found
// from two source pages yields exactly one expression and two distinct edges.
func TestDiscoverDedupAcrossSources(t *testing.T) {
	t.Parallel()

	store := memory.New()
	builder := newTestBuilder(store)
	ctx := context.Background()

	a := mustCreate(t, store, 1, "https://example.com/a", 0)
	b := mustCreate(t, store, 1, "https://example.com/b", 0)

	docA := mustParse(t, `<a href="/page?utm_source=x&id=5#frag">target</a>`)
	docB := mustParse(t, `<a href="/page?id=5">target</a>`)

	statsA, err := builder.Discover(ctx, docA, a, 3)
	require.NoError(t, err)
	require.Equal(t, 1, statsA.ItemsCreated)
	require.Equal(t, 1, statsA.EdgesCreated)

	statsB, err := builder.Discover(ctx, docB, b, 3)
	require.NoError(t, err)
	require.Equal(t, 0, statsB.ItemsCreated, "second source must reuse the existing expression")
	require.Equal(t, 1, statsB.EdgesCreated)

	target, err := store.Find(ctx, 1, land.HashURL("https://example.com/page?id=5"))
	require.NoError(t, err)

	links := store.Links()
	require.Len(t, links, 2)
	for _, link := range links {
		require.Equal(t, target.ID, link.TargetID)
	}
	require.NotEqual(t, links[0].SourceID, links[1].SourceID)
}

// TestDiscoverChildDepth asserts every created child sits one level below
// its source.
func TestDiscoverChildDepth(t *testing.T) {
	t.Parallel()

	store := memory.New()
	builder := newTestBuilder(store)
	ctx := context.Background()

	source := mustCreate(t, store, 1, "https://example.com/", 1)
	doc := mustParse(t, `<a href="/deeper">go</a>`)

	_, err := builder.Discover(ctx, doc, source, 3)
	require.NoError(t, err)

	child, err := store.Find(ctx, 1, land.HashURL("https://example.com/deeper"))
	require.NoError(t, err)
	require.Equal(t, source.Depth+1, child.Depth)
}

// TestDiscoverDepthCap asserts no expression is created past the land's
// maximum depth, and no dangling edge either.
func TestDiscoverDepthCap(t *testing.T) {
	t.Parallel()

	store := memory.New()
	builder := newTestBuilder(store)
	ctx := context.Background()

	source := mustCreate(t, store, 1, "https://example.com/leaf", 2)
	doc := mustParse(t, `<a href="/beyond">too deep</a>`)

	stats, err := builder.Discover(ctx, doc, source, 2)
	require.NoError(t, err)
	require.Zero(t, stats.ItemsCreated)
	require.Zero(t, stats.EdgesCreated)

	_, err = store.Find(ctx, 1, land.HashURL("https://example.com/beyond"))
	require.ErrorIs(t, err, land.ErrNotFound)
}

// TestDiscoverDepthCapLinksExistingTarget verifies a past-cap target that
// already exists still gets the edge.
func TestDiscoverDepthCapLinksExistingTarget(t *testing.T) {
	t.Parallel()

	store := memory.New()
	builder := newTestBuilder(store)
	ctx := context.Background()

	source := mustCreate(t, store, 1, "https://example.com/leaf", 2)
	mustCreate(t, store, 1, "https://example.com/known", 0)
	doc := mustParse(t, `<a href="/known">known</a>`)

	stats, err := builder.Discover(ctx, doc, source, 2)
	require.NoError(t, err)
	require.Zero(t, stats.ItemsCreated)
	require.Equal(t, 1, stats.EdgesCreated)
}

// TestDiscoverAssignsDomain verifies every created target carries the domain
// of its host.
func TestDiscoverAssignsDomain(t *testing.T) {
	t.Parallel()

	store := memory.New()
	builder := newTestBuilder(store)
	ctx := context.Background()

	source := mustCreate(t, store, 1, "https://example.com/", 0)
	doc := mustParse(t, `<a href="https://other.org/page">away</a>`)

	_, err := builder.Discover(ctx, doc, source, 2)
	require.NoError(t, err)

	domain, err := store.Domains().GetOrCreate(ctx, 1, "other.org")
	require.NoError(t, err)
	child, err := store.Find(ctx, 1, land.HashURL("https://other.org/page"))
	require.NoError(t, err)
	require.Equal(t, domain.ID, child.DomainID)
}

// TestSeedCreatesDepthZeroWithDomain covers the start-URL path: depth 0 and
// the host's domain attached.
func TestSeedCreatesDepthZeroWithDomain(t *testing.T) {
	t.Parallel()

	store := memory.New()
	builder := newTestBuilder(store)
	ctx := context.Background()

	seed, created, err := builder.Seed(ctx, 1, "https://example.com/start")
	require.NoError(t, err)
	require.True(t, created)
	require.Zero(t, seed.Depth)
	require.NotZero(t, seed.DomainID)

	domain, err := store.Domains().GetOrCreate(ctx, 1, "example.com")
	require.NoError(t, err)
	require.Equal(t, domain.ID, seed.DomainID)
}

// TestDiscoverSkipsInvalidHrefs asserts malformed and non-navigational
// targets are skipped silently, never failing the pass.
func TestDiscoverSkipsInvalidHrefs(t *testing.T) {
	t.Parallel()

	store := memory.New()
	builder := newTestBuilder(store)
	ctx := context.Background()

	source := mustCreate(t, store, 1, "https://example.com/", 0)
	doc := mustParse(t, `
		<a href="#section">anchor</a>
		<a href="mailto:someone@example.com">mail</a>
		<a href="javascript:void(0)">js</a>
		<a href="/photo.jpg">binary</a>
		<a href="/ok">fine</a>`)

	stats, err := builder.Discover(ctx, doc, source, 2)
	require.NoError(t, err)
	require.Equal(t, 1, stats.ItemsCreated)
	require.Equal(t, 1, stats.EdgesCreated)
	require.Equal(t, 4, stats.Skipped)
}

// TestDiscoverSelfLink asserts a page linking to itself creates no edge.
func TestDiscoverSelfLink(t *testing.T) {
	t.Parallel()

	store := memory.New()
	builder := newTestBuilder(store)
	ctx := context.Background()

	source := mustCreate(t, store, 1, "https://example.com/self", 0)
	doc := mustParse(t, `<a href="/self">me</a>`)

	stats, err := builder.Discover(ctx, doc, source, 2)
	require.NoError(t, err)
	require.Zero(t, stats.EdgesCreated)
	require.Empty(t, store.Links())
}

// TestDiscoverLinkTypeAndAnchor covers internal/external classification, the
// anchor placeholder and anchor truncation.
func TestDiscoverLinkTypeAndAnchor(t *testing.T) {
	t.Parallel()

	store := memory.New()
	builder := New(store, store.Domains(), store, 10, nil)
	ctx := context.Background()

	source := mustCreate(t, store, 1, "https://example.com/", 0)
	doc := mustParse(t, `
		<a href="/internal"></a>
		<a href="https://other.org/external">`+strings.Repeat("x", 40)+`</a>`)

	_, err := builder.Discover(ctx, doc, source, 2)
	require.NoError(t, err)

	links := store.Links()
	require.Len(t, links, 2)
	require.Equal(t, land.LinkInternal, links[0].Type)
	require.Equal(t, "[no text]", links[0].AnchorText)
	require.Equal(t, land.LinkExternal, links[1].Type)
	require.Equal(t, strings.Repeat("x", 10), links[1].AnchorText)
}
