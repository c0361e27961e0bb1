// Package linkgraph discovers, normalizes and persists outbound hyperlinks
// as frontier expressions and graph edges.
package linkgraph

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are stripped during normalization; any utm_* key is dropped
// as well.
var trackingParams = map[string]struct{}{
	"fbclid":   {},
	"gclid":    {},
	"ref":      {},
	"source":   {},
	"campaign": {},
}

// binaryExtensions are link targets that are never crawlable pages.
var binaryExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp",
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".csv", ".txt",
	".zip", ".gz", ".tar", ".rar", ".css", ".js",
}

// skippedSchemes filters non-navigational hrefs before resolution.
func isSkippableHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:")
}

// Resolve turns href into an absolute URL against the source page URL.
func Resolve(baseURL, href string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Normalize standardizes a URL so discovery dedup works: lowercased scheme
// and host, default ports removed, fragment dropped, tracking query
// parameters stripped and the remaining query sorted.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	q := u.Query()
	for key := range q {
		if _, tracked := trackingParams[key]; tracked || strings.HasPrefix(key, "utm_") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// IsCrawlable reports whether a normalized URL may become a frontier
// expression: http(s) scheme, non-empty host, not an obvious binary target.
func IsCrawlable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range binaryExtensions {
		if strings.HasSuffix(path, ext) {
			return false
		}
	}
	return true
}
