// Package extract turns raw HTML into readable text plus page metadata using
// a tiered cascade of strategies.
package extract

import (
	"net/url"
	"strings"

	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/dom"
)

// Method identifies which cascade stage produced the readable text.
type Method string

// Cascade stages in priority order.
const (
	MethodTrafilatura Method = "trafilatura"
	MethodHeuristic   Method = "heuristic"
	MethodRaw         Method = "raw"
)

const (
	// minContentLen is the threshold below which the next stage is attempted.
	minContentLen = 200
	// minParagraphLen filters boilerplate paragraphs in the heuristic stage.
	minParagraphLen = 50
)

// contentSelectors probe common semantic and CMS content containers, most
// specific first.
var contentSelectors = []string{
	"article", `[role="main"]`, "main", ".content", ".post-content",
	".entry-content", ".article-content", ".post-body", ".story-body",
	"#content", "#main-content", ".main-content", ".article-body",
}

// Result carries the extracted readable text and the stage that produced it.
type Result struct {
	Text   string
	Method Method
}

// Extractor implements the readable-content cascade.
type Extractor struct {
	logger *zap.Logger
}

// New constructs an Extractor.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract runs the cascade over the raw HTML. The parsed document is reused
// for the heuristic and raw stages so the page is only parsed once. The
// returned text may be empty when every stage comes up short; that is an
// extraction miss, not an error.
func (e *Extractor) Extract(html string, doc *dom.Document, pageURL string) Result {
	if text := e.trafilaturaText(html, pageURL); len(text) > minContentLen {
		return Result{Text: text, Method: MethodTrafilatura}
	}

	if text := heuristicText(doc); len(text) > minContentLen {
		e.logger.Debug("readable content extracted with selector heuristics", zap.String("url", pageURL))
		return Result{Text: text, Method: MethodHeuristic}
	}

	e.logger.Debug("cascade fell through to raw text", zap.String("url", pageURL))
	return Result{Text: doc.CleanedText(), Method: MethodRaw}
}

func (e *Extractor) trafilaturaText(html, pageURL string) string {
	opts := trafilatura.Options{
		ExcludeComments: true,
		Focus:           trafilatura.FavorPrecision,
	}
	if parsed, err := url.Parse(pageURL); err == nil {
		opts.OriginalURL = parsed
	}
	result, err := trafilatura.Extract(strings.NewReader(html), opts)
	if err != nil || result == nil {
		if err != nil {
			e.logger.Debug("trafilatura extraction failed", zap.String("url", pageURL), zap.Error(err))
		}
		return ""
	}
	return strings.TrimSpace(result.ContentText)
}

// heuristicText probes the selector priority list, keeping the largest
// matching element, then falls back to concatenating substantial paragraphs.
func heuristicText(doc *dom.Document) string {
	for _, selector := range contentSelectors {
		texts := doc.SelectionTexts(selector)
		if len(texts) == 0 {
			continue
		}
		largest := ""
		for _, t := range texts {
			if len(t) > len(largest) {
				largest = t
			}
		}
		if len(largest) > minContentLen {
			return largest
		}
	}

	var kept []string
	for _, p := range doc.ParagraphTexts() {
		if len(p) > minParagraphLen {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
