package linkgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNormalizeStripsTrackingAndFragment asserts the tracking-parameter and
// fragment rules: the decorated URL collapses onto the bare URL plus its
// meaningful query.
func TestNormalizeStripsTrackingAndFragment(t *testing.T) {
	t.Parallel()

	decorated, err := Normalize("https://example.com/page?utm_source=x&id=5#frag")
	require.NoError(t, err)
	bare, err := Normalize("https://example.com/page?id=5")
	require.NoError(t, err)
	require.Equal(t, bare, decorated)
	require.Equal(t, "https://example.com/page?id=5", decorated)
}

// TestNormalizeCanonicalForm covers case folding, default ports and query
// sorting.
func TestNormalizeCanonicalForm(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"HTTPS://Example.COM/Path":               "https://example.com/Path",
		"http://example.com:80/a":                "http://example.com/a",
		"https://example.com:443/a":              "https://example.com/a",
		"https://example.com/a?b=2&a=1":          "https://example.com/a?a=1&b=2",
		"https://example.com/a?fbclid=x&gclid=y": "https://example.com/a",
	}
	for input, want := range cases {
		got, err := Normalize(input)
		require.NoError(t, err)
		require.Equal(t, want, got, "input %s", input)
	}
}

// TestIsCrawlable verifies scheme, host and binary-extension filtering.
func TestIsCrawlable(t *testing.T) {
	t.Parallel()

	require.True(t, IsCrawlable("https://example.com/article"))
	require.True(t, IsCrawlable("http://example.com/"))

	require.False(t, IsCrawlable("ftp://example.com/file"))
	require.False(t, IsCrawlable("https:///no-host"))
	require.False(t, IsCrawlable("https://example.com/image.JPG"))
	require.False(t, IsCrawlable("https://example.com/report.pdf"))
	require.False(t, IsCrawlable("https://example.com/app.js"))
}

// TestResolveRelativeHref verifies resolution against the page URL.
func TestResolveRelativeHref(t *testing.T) {
	t.Parallel()

	got, err := Resolve("https://example.com/section/page", "../other")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/other", got)

	got, err = Resolve("https://example.com/section/", "child")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/section/child", got)
}

// TestIsSkippableHref covers the non-navigational href filter.
func TestIsSkippableHref(t *testing.T) {
	t.Parallel()

	for _, href := range []string{"", "#top", "javascript:void(0)", "mailto:a@b.c", "tel:+123", "data:text/plain,x"} {
		require.True(t, isSkippableHref(href), "href %q", href)
	}
	require.False(t, isSkippableHref("/relative"))
	require.False(t, isSkippableHref("https://example.com"))
}
