// Package pipeline sequences fetch, extraction, scoring, link discovery and
// media harvesting into crawl and consolidation jobs.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/dom"
	"github.com/landgraph/landcrawler/internal/extract"
	"github.com/landgraph/landcrawler/internal/fetch"
	"github.com/landgraph/landcrawler/internal/land"
	"github.com/landgraph/landcrawler/internal/linkgraph"
	"github.com/landgraph/landcrawler/internal/media"
	"github.com/landgraph/landcrawler/internal/metrics"
	"github.com/landgraph/landcrawler/internal/relevance"
)

// Fetcher retrieves a page. A failed fetch is a valid Result, not an error.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) fetch.Result
}

// Processor runs the per-item portion of a job: one expression in, one
// updated expression plus its links and media out.
type Processor struct {
	tx          land.Tx
	expressions land.ExpressionStore
	links       land.LinkStore
	mediaStore  land.MediaStore
	archive     land.ArchiveStore

	fetcher   Fetcher
	extractor *extract.Extractor
	scorer    *relevance.Scorer
	builder   *linkgraph.Builder
	harvester *media.Harvester

	clock  land.Clock
	logger *zap.Logger
}

// ProcessorDeps bundles the collaborators of a Processor. Archive and Clock
// are optional.
type ProcessorDeps struct {
	Tx          land.Tx
	Expressions land.ExpressionStore
	Links       land.LinkStore
	Media       land.MediaStore
	Archive     land.ArchiveStore
	Fetcher     Fetcher
	Extractor   *extract.Extractor
	Scorer      *relevance.Scorer
	Builder     *linkgraph.Builder
	Harvester   *media.Harvester
	Clock       land.Clock
	Logger      *zap.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(deps ProcessorDeps) *Processor {
	if deps.Clock == nil {
		deps.Clock = systemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Processor{
		tx:          deps.Tx,
		expressions: deps.Expressions,
		links:       deps.Links,
		mediaStore:  deps.Media,
		archive:     deps.Archive,
		fetcher:     deps.Fetcher,
		extractor:   deps.Extractor,
		scorer:      deps.Scorer,
		builder:     deps.Builder,
		harvester:   deps.Harvester,
		clock:       deps.Clock,
		logger:      deps.Logger,
	}
}

// CrawlOne fetches and fully processes one expression. The returned bucket
// keys the job's http-status histogram. A non-nil error counts the item as
// failed; storage failures come back wrapped as fatal so the caller can
// abort the job instead of burning through the batch.
func (p *Processor) CrawlOne(
	ctx context.Context,
	ld land.Land,
	dict land.Dictionary,
	expr land.Expression,
	analyzeMedia bool,
) (string, error) {
	res := p.fetcher.Fetch(ctx, expr.URL)
	now := p.clock.Now()

	if !res.Succeeded() {
		bucket := land.ErrorBucket
		if res.Status != 0 {
			bucket = strconv.Itoa(res.Status)
		}
		expr.HTTPStatus = res.Status
		expr.FetchedAt = &now
		if err := p.expressions.Update(ctx, expr); err != nil {
			return land.ErrorBucket, land.Fatalf("record failed fetch", err)
		}
		metrics.TotalExpressionErrors.Inc()
		return bucket, fmt.Errorf("fetch failed for %s (status %d)", expr.URL, res.Status)
	}

	doc, err := dom.Parse(res.HTML)
	if err != nil {
		metrics.TotalExpressionErrors.Inc()
		return land.ErrorBucket, fmt.Errorf("parse %s: %w", expr.URL, err)
	}

	extraction := p.extractor.Extract(res.HTML, doc, expr.URL)
	meta := extract.ExtractMetadata(doc, expr.URL)
	score := p.scorer.Score(dict, meta.Title, extraction.Text, meta.Lang)

	expr.HTTPStatus = res.Status
	expr.Title = meta.Title
	expr.Description = meta.Description
	expr.Keywords = meta.Keywords
	expr.Lang = meta.Lang
	expr.Readable = extraction.Text
	expr.Relevance = &score
	expr.FetchedAt = &now
	expr.ReadableAt = &now
	if score > 0 && expr.ApprovedAt == nil {
		expr.ApprovedAt = &now
	}

	err = p.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := p.expressions.Update(ctx, expr); err != nil {
			return fmt.Errorf("update expression: %w", err)
		}
		if err := p.links.DeleteAllForSource(ctx, expr.ID); err != nil {
			return fmt.Errorf("clear links: %w", err)
		}
		_, err := p.builder.Discover(ctx, doc, expr, ld.MaxDepth)
		return err
	})
	if err != nil {
		metrics.TotalExpressionErrors.Inc()
		return land.ErrorBucket, land.Fatalf("persist "+expr.URL, err)
	}

	// media rows are individually idempotent, so the harvest runs outside
	// the expression's transaction; it may download during analysis
	if err := p.mediaStore.DeleteAllForExpression(ctx, expr.ID); err != nil {
		metrics.TotalExpressionErrors.Inc()
		return land.ErrorBucket, land.Fatalf("clear media", err)
	}
	if _, err := p.harvester.Harvest(ctx, doc, expr, analyzeMedia); err != nil {
		metrics.TotalExpressionErrors.Inc()
		return land.ErrorBucket, fmt.Errorf("harvest media for %s: %w", expr.URL, err)
	}

	p.archiveHTML(ctx, expr, res.HTML)

	metrics.TotalExpressionsProcessed.Inc()
	return strconv.Itoa(res.Status), nil
}

// ConsolidateOne re-derives relevance, links and media for an expression
// from stored content, with no network fetch. When the raw HTML was
// archived the full downstream chain reruns; otherwise only the score is
// recomputed from the stored readable text.
func (p *Processor) ConsolidateOne(
	ctx context.Context,
	ld land.Land,
	dict land.Dictionary,
	expr land.Expression,
) error {
	now := p.clock.Now()

	html := p.loadArchived(ctx, expr)
	if html == "" {
		score := p.scorer.Score(dict, expr.Title, expr.Readable, expr.Lang)
		expr.Relevance = &score
		if score > 0 && expr.ApprovedAt == nil {
			expr.ApprovedAt = &now
		}
		if err := p.expressions.Update(ctx, expr); err != nil {
			return land.Fatalf("update expression", err)
		}
		metrics.TotalExpressionsProcessed.Inc()
		return nil
	}

	doc, err := dom.Parse(html)
	if err != nil {
		return fmt.Errorf("parse archived html for %s: %w", expr.URL, err)
	}

	extraction := p.extractor.Extract(html, doc, expr.URL)
	meta := extract.ExtractMetadata(doc, expr.URL)
	score := p.scorer.Score(dict, meta.Title, extraction.Text, meta.Lang)

	expr.Title = meta.Title
	expr.Description = meta.Description
	expr.Keywords = meta.Keywords
	expr.Lang = meta.Lang
	expr.Readable = extraction.Text
	expr.Relevance = &score
	expr.ReadableAt = &now
	if score > 0 && expr.ApprovedAt == nil {
		expr.ApprovedAt = &now
	}

	err = p.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := p.expressions.Update(ctx, expr); err != nil {
			return fmt.Errorf("update expression: %w", err)
		}
		if err := p.links.DeleteAllForSource(ctx, expr.ID); err != nil {
			return fmt.Errorf("clear links: %w", err)
		}
		_, err := p.builder.Discover(ctx, doc, expr, ld.MaxDepth)
		return err
	})
	if err != nil {
		return land.Fatalf("persist "+expr.URL, err)
	}

	if err := p.mediaStore.DeleteAllForExpression(ctx, expr.ID); err != nil {
		return land.Fatalf("clear media", err)
	}
	// analysis stays off during consolidation: it would download media
	if _, err := p.harvester.Harvest(ctx, doc, expr, false); err != nil {
		return fmt.Errorf("harvest media for %s: %w", expr.URL, err)
	}

	metrics.TotalExpressionsProcessed.Inc()
	return nil
}

func (p *Processor) archiveHTML(ctx context.Context, expr land.Expression, html string) {
	if p.archive == nil {
		return
	}
	if err := p.archive.Store(ctx, expr.LandID, expr.URLHash, []byte(html)); err != nil {
		p.logger.Debug("raw html archive failed",
			zap.String("url", expr.URL), zap.Error(err))
	}
}

func (p *Processor) loadArchived(ctx context.Context, expr land.Expression) string {
	if p.archive == nil {
		return ""
	}
	html, err := p.archive.Load(ctx, expr.LandID, expr.URLHash)
	if err != nil {
		return ""
	}
	return string(html)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
