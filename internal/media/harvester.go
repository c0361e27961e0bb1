// Package media discovers embedded media references and optionally analyzes
// images (dimensions, palette, perceptual hash, EXIF subset).
package media

import (
	"context"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/dom"
	"github.com/landgraph/landcrawler/internal/land"
	"github.com/landgraph/landcrawler/internal/metrics"
)

var extensionTypes = map[string]land.MediaType{
	".jpg": land.MediaImage, ".jpeg": land.MediaImage, ".png": land.MediaImage,
	".gif": land.MediaImage, ".bmp": land.MediaImage, ".webp": land.MediaImage,
	".svg": land.MediaImage, ".ico": land.MediaImage,
	".mp4": land.MediaVideo, ".avi": land.MediaVideo, ".mov": land.MediaVideo,
	".wmv": land.MediaVideo, ".flv": land.MediaVideo, ".webm": land.MediaVideo,
	".mkv": land.MediaVideo,
	".mp3": land.MediaAudio, ".wav": land.MediaAudio, ".ogg": land.MediaAudio,
	".flac": land.MediaAudio, ".aac": land.MediaAudio, ".m4a": land.MediaAudio,
	".pdf": land.MediaDocument, ".doc": land.MediaDocument, ".docx": land.MediaDocument,
}

// DynamicSource renders a page and reports media URLs injected by scripts
// or hidden behind lazy-load attributes. Implementations are best-effort.
type DynamicSource interface {
	MediaURLs(ctx context.Context, pageURL string) ([]string, error)
}

// Harvester persists the media references of an expression.
type Harvester struct {
	store    land.MediaStore
	analyzer *Analyzer
	dynamic  DynamicSource
	logger   *zap.Logger
}

// New constructs a Harvester. analyzer and dynamic may be nil to disable
// image analysis and the dynamic pass respectively.
func New(store land.MediaStore, analyzer *Analyzer, dynamic DynamicSource, logger *zap.Logger) *Harvester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{store: store, analyzer: analyzer, dynamic: dynamic, logger: logger}
}

// Harvest collects media references from the parsed document, then runs the
// optional dynamic pass. Already-recorded URLs are skipped so a second pass
// over the same document inserts nothing. Returns the number of records
// created; only storage failures abort the harvest.
func (h *Harvester) Harvest(ctx context.Context, doc *dom.Document, source land.Expression, analyze bool) (int, error) {
	added := 0
	seen := make(map[string]struct{})

	for _, ref := range doc.MediaElements() {
		created, err := h.harvestOne(ctx, source, ref.Src, ref.Tag, seen, analyze)
		if err != nil {
			return added, err
		}
		if created {
			added++
		}
	}

	if h.dynamic != nil {
		urls, err := h.dynamic.MediaURLs(ctx, source.URL)
		if err != nil {
			// the dynamic pass never affects the outcome of the static one
			h.logger.Debug("dynamic media pass failed", zap.String("url", source.URL), zap.Error(err))
		}
		for _, u := range urls {
			created, err := h.harvestOne(ctx, source, u, "img", seen, analyze)
			if err != nil {
				return added, err
			}
			if created {
				added++
			}
		}
	}

	return added, nil
}

func (h *Harvester) harvestOne(
	ctx context.Context,
	source land.Expression,
	src, tag string,
	seen map[string]struct{},
	analyze bool,
) (bool, error) {
	if src == "" || strings.HasPrefix(src, "data:") {
		return false, nil
	}
	absolute, err := resolveURL(source.URL, src)
	if err != nil {
		return false, nil
	}
	if _, dup := seen[absolute]; dup {
		return false, nil
	}
	seen[absolute] = struct{}{}

	exists, err := h.store.Exists(ctx, source.ID, absolute)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	record := land.Media{
		ExpressionID: source.ID,
		URL:          absolute,
		Type:         classify(absolute, tag),
	}

	if analyze && h.analyzer != nil && record.Type == land.MediaImage {
		h.analyzer.Analyze(ctx, absolute, &record)
		if record.AnalysisError != "" {
			metrics.TotalMediaAnalysisErrors.Inc()
		}
	}

	if err := h.store.Create(ctx, record); err != nil {
		return false, err
	}
	metrics.TotalMediaHarvested.Inc()
	return true, nil
}

// classify maps a URL to a media type by its file extension, falling back
// to the source element's tag. Extensionless URLs default to image; many
// image URLs carry none.
func classify(rawURL, tag string) land.MediaType {
	u, err := url.Parse(rawURL)
	if err == nil {
		ext := strings.ToLower(path.Ext(u.Path))
		if t, ok := extensionTypes[ext]; ok {
			return t
		}
	}
	switch tag {
	case "video":
		return land.MediaVideo
	case "audio":
		return land.MediaAudio
	}
	return land.MediaImage
}

func resolveURL(baseURL, ref string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return base.ResolveReference(rel).String(), nil
}
