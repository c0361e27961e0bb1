package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Downloader retrieves media resources with a size ceiling and its own
// timeout, separate from page fetches.
type Downloader struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewDownloader constructs a Downloader.
func NewDownloader(userAgent string, timeout time.Duration, maxBytes int64) *Downloader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Downloader{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Download fetches the resource at rawURL, rejecting bodies above the
// configured ceiling.
func (d *Downloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media fetch status %d", resp.StatusCode)
	}
	if resp.ContentLength > d.maxBytes {
		return nil, fmt.Errorf("media size %d exceeds limit %d", resp.ContentLength, d.maxBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, d.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read media body: %w", err)
	}
	if int64(len(body)) > d.maxBytes {
		return nil, fmt.Errorf("media size exceeds limit %d", d.maxBytes)
	}
	return body, nil
}
