package media

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// lazyMediaJS collects sources that only exist after script execution:
// rendered src attributes plus the common lazy-load attribute variants.
const lazyMediaJS = `
(() => {
	const urls = new Set();
	const attrs = ['src', 'data-src', 'data-lazy-src', 'data-original'];
	for (const el of document.querySelectorAll('img, video, audio, source')) {
		for (const attr of attrs) {
			const v = el.getAttribute(attr);
			if (v && !v.startsWith('data:')) {
				urls.add(new URL(v, document.baseURI).href);
			}
		}
	}
	return Array.from(urls);
})()`

// RenderedSource discovers script-injected and lazy-loaded media by
// rendering the page with headless Chrome.
type RenderedSource struct {
	navTimeout  time.Duration
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewRenderedSource creates a RenderedSource backed by chromedp.
func NewRenderedSource(userAgent string, navTimeout time.Duration) *RenderedSource {
	if navTimeout <= 0 {
		navTimeout = 25 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &RenderedSource{
		navTimeout:  navTimeout,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close cancels the allocator context.
func (r *RenderedSource) Close() {
	r.allocCancel()
}

// MediaURLs renders pageURL and returns every media source found in the
// live DOM.
func (r *RenderedSource) MediaURLs(ctx context.Context, pageURL string) ([]string, error) {
	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.navTimeout)
	defer cancel()

	var urls []string
	actions := []chromedp.Action{
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Evaluate(lazyMediaJS, &urls),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}

	// honor the caller's cancellation even though chromedp ran detached
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}
