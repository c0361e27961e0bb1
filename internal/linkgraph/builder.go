package linkgraph

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/dom"
	"github.com/landgraph/landcrawler/internal/land"
	"github.com/landgraph/landcrawler/internal/metrics"
)

// anchorPlaceholder fills the anchor text when a link carries none.
const anchorPlaceholder = "[no text]"

// defaultAnchorMaxLen bounds stored anchor text.
const defaultAnchorMaxLen = 255

// Stats summarizes one discovery pass.
type Stats struct {
	ItemsCreated int
	EdgesCreated int
	Skipped      int
}

// Builder persists discovered links as frontier expressions and edges.
type Builder struct {
	expressions  land.ExpressionStore
	domains      land.DomainStore
	links        land.LinkStore
	anchorMaxLen int
	logger       *zap.Logger
}

// New constructs a Builder.
func New(
	expressions land.ExpressionStore,
	domains land.DomainStore,
	links land.LinkStore,
	anchorMaxLen int,
	logger *zap.Logger,
) *Builder {
	if anchorMaxLen <= 0 {
		anchorMaxLen = defaultAnchorMaxLen
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		expressions:  expressions,
		domains:      domains,
		links:        links,
		anchorMaxLen: anchorMaxLen,
		logger:       logger,
	}
}

// Discover walks every hyperlink of the parsed document, creating frontier
// expressions up to maxDepth and idempotent edges to their targets.
// Malformed and disallowed URLs are skipped silently; only storage failures
// are returned.
func (b *Builder) Discover(
	ctx context.Context,
	doc *dom.Document,
	source land.Expression,
	maxDepth int,
) (Stats, error) {
	var stats Stats
	sourceHost := hostOf(source.URL)
	seen := make(map[string]struct{})

	for _, ref := range doc.Links() {
		if isSkippableHref(ref.Href) {
			stats.Skipped++
			continue
		}
		absolute, err := Resolve(source.URL, ref.Href)
		if err != nil {
			stats.Skipped++
			continue
		}
		normalized, err := Normalize(absolute)
		if err != nil || !IsCrawlable(normalized) {
			stats.Skipped++
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}

		created, edged, err := b.linkTarget(ctx, source, sourceHost, normalized, ref, maxDepth)
		if err != nil {
			return stats, err
		}
		if created {
			stats.ItemsCreated++
		}
		if edged {
			stats.EdgesCreated++
			metrics.TotalLinksCreated.Inc()
		}
	}
	return stats, nil
}

// linkTarget resolves or creates the target expression and records the edge.
// Targets past the land's depth cap are linked only when they already exist.
func (b *Builder) linkTarget(
	ctx context.Context,
	source land.Expression,
	sourceHost string,
	normalized string,
	ref dom.LinkRef,
	maxDepth int,
) (createdItem bool, createdEdge bool, err error) {
	host := hostOf(normalized)
	domain, err := b.domains.GetOrCreate(ctx, source.LandID, host)
	if err != nil {
		return false, false, err
	}

	target, err := b.expressions.Find(ctx, source.LandID, land.HashURL(normalized))
	switch {
	case err == nil:
	case errors.Is(err, land.ErrNotFound):
		childDepth := source.Depth + 1
		if childDepth > maxDepth {
			return false, false, nil
		}
		target, createdItem, err = b.expressions.GetOrCreate(ctx, source.LandID, normalized, childDepth, domain.ID)
		if err != nil {
			return false, false, err
		}
	default:
		return false, false, err
	}

	if target.ID == source.ID {
		return createdItem, false, nil
	}

	linkType := land.LinkExternal
	if host == sourceHost {
		linkType = land.LinkInternal
	}

	createdEdge, err = b.links.CreateIfAbsent(ctx, land.Link{
		SourceID:   source.ID,
		TargetID:   target.ID,
		AnchorText: b.anchorText(ref.Anchor),
		Type:       linkType,
		Rel:        ref.Rel,
	})
	if err != nil {
		return createdItem, false, err
	}
	return createdItem, createdEdge, nil
}

// Seed creates the depth-0 expression for a start URL, associated with its
// host's domain.
func (b *Builder) Seed(ctx context.Context, landID int64, url string) (land.Expression, bool, error) {
	domain, err := b.domains.GetOrCreate(ctx, landID, hostOf(url))
	if err != nil {
		return land.Expression{}, false, err
	}
	return b.expressions.GetOrCreate(ctx, landID, url, 0, domain.ID)
}

func (b *Builder) anchorText(anchor string) string {
	if anchor == "" {
		return anchorPlaceholder
	}
	runes := []rune(anchor)
	if len(runes) > b.anchorMaxLen {
		return string(runes[:b.anchorMaxLen])
	}
	return anchor
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
