// Package fetch retrieves raw HTML for crawl targets, with a direct HTTP
// strategy and an archival-snapshot fallback.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/metrics"
)

// Config controls fetch behavior.
type Config struct {
	UserAgent       string
	Timeout         time.Duration
	ArchiveTimeout  time.Duration
	SnapshotTimeout time.Duration
}

// Result is the outcome of a fetch attempt. A zero Status means the network
// never produced a response; empty HTML with a non-zero Status records the
// original HTTP error. Neither case is a Go error: a failed fetch is a valid
// per-item outcome.
type Result struct {
	HTML        string
	Status      int
	FinalURL    string
	UsedArchive bool
}

// Succeeded reports whether any strategy produced usable HTML.
func (r Result) Succeeded() bool {
	return r.HTML != ""
}

// Client fetches pages via colly and falls back to the Wayback Machine.
type Client struct {
	cfg       Config
	collector *colly.Collector
	archive   *waybackClient
	logger    *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = 10 * time.Second
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "landcrawler/0.1"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          128,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.Timeout)

	return &Client{
		cfg:       cfg,
		collector: base,
		archive: newWaybackClient(
			cfg.UserAgent,
			cfg.ArchiveTimeout,
			cfg.SnapshotTimeout,
		),
		logger: logger,
	}
}

// Fetch retrieves the page at rawURL. The direct strategy requires a 2xx
// HTML response; anything else falls through to the archival lookup.
func (c *Client) Fetch(ctx context.Context, rawURL string) Result {
	metrics.TotalFetches.Inc()

	direct := c.fetchDirect(ctx, rawURL)
	if direct.Succeeded() {
		return direct
	}

	c.logger.Debug("direct fetch failed, trying archive",
		zap.String("url", rawURL),
		zap.Int("status", direct.Status),
	)
	metrics.TotalArchiveFallbacks.Inc()

	archived, err := c.archive.fetchSnapshot(ctx, rawURL)
	if err == nil && archived.Succeeded() {
		return archived
	}
	if err != nil {
		c.logger.Debug("archive fallback failed", zap.String("url", rawURL), zap.Error(err))
	}

	metrics.TotalFetchErrors.Inc()
	// keep the original error code; 0 only when the network itself failed
	return Result{Status: direct.Status, FinalURL: direct.FinalURL}
}

func (c *Client) fetchDirect(_ context.Context, rawURL string) Result {
	collector := c.collector.Clone()

	resultCh := make(chan Result, 1)
	var once sync.Once
	send := func(res Result) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		res := Result{
			Status:   r.StatusCode,
			FinalURL: r.Request.URL.String(),
		}
		if isHTML(r.Headers.Get("Content-Type")) {
			res.HTML = string(r.Body)
		}
		send(res)
	})

	collector.OnError(func(r *colly.Response, err error) {
		res := Result{FinalURL: rawURL}
		if r != nil {
			res.Status = r.StatusCode
			if res.FinalURL == "" && r.Request != nil {
				res.FinalURL = r.Request.URL.String()
			}
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(res)
	})

	if err := collector.Visit(rawURL); err != nil {
		return Result{FinalURL: rawURL}
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		return res
	default:
		return Result{FinalURL: rawURL}
	}
}

func isHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
