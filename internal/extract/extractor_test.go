package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/landgraph/landcrawler/internal/dom"
)

func mustParse(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.Parse(html)
	require.NoError(t, err)
	return doc
}

// TestExtractHeuristicFallback verifies the cascade: when the primary method
// yields too little, the article element's text must win.
func TestExtractHeuristicFallback(t *testing.T) {
	t.Parallel()

	article := strings.Repeat("Substantial paragraph text for the article body. ", 11)
	html := `<html><head><title>t</title></head><body>
		<div>short</div>
		<article><p>` + article + `</p></article>
	</body></html>`

	e := New(nil)
	res := e.Extract(html, mustParse(t, html), "https://example.com/a")
	require.Contains(t, res.Text, "Substantial paragraph text")
	require.NotEqual(t, MethodRaw, res.Method)
}

// TestExtractRawFallback verifies the last stage returns the cleaned page
// text when no stage clears the content threshold.
func TestExtractRawFallback(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<script>var hidden = 1;</script>
		<nav>menu</nav>
		<div>tiny visible text</div>
	</body></html>`

	e := New(nil)
	res := e.Extract(html, mustParse(t, html), "https://example.com/a")
	require.Equal(t, MethodRaw, res.Method)
	require.Contains(t, res.Text, "tiny visible text")
	require.NotContains(t, res.Text, "hidden")
	require.NotContains(t, res.Text, "menu")
}

// TestHeuristicTextParagraphFallback verifies the paragraph concatenation
// path when no content selector matches.
func TestHeuristicTextParagraphFallback(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("words in a substantial paragraph ", 3)
	doc := mustParse(t, `<div>
		<p>`+long+`</p>
		<p>short</p>
		<p>`+long+`</p>
	</div>`)

	text := heuristicText(doc)
	require.Equal(t, 2, strings.Count(text, "words in a substantial paragraph")/3)
	require.NotContains(t, text, "short")
}

// TestExtractMetadataCascade verifies the OpenGraph -> twitter -> plain tag
// priority for title and description.
func TestExtractMetadataCascade(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html lang="fr"><head>
		<title>Plain Title</title>
		<meta property="og:title" content="OG Title">
		<meta name="twitter:description" content="Twitter Desc">
		<meta name="keywords" content="a,b,c">
	</head><body></body></html>`)

	meta := ExtractMetadata(doc, "https://example.com/page")
	require.Equal(t, "OG Title", meta.Title)
	require.Equal(t, "Twitter Desc", meta.Description)
	require.Equal(t, "a,b,c", meta.Keywords)
	require.Equal(t, "fr", meta.Lang)
}

// TestExtractMetadataTitleFallsBackToURL verifies Title is never empty.
func TestExtractMetadataTitleFallsBackToURL(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html><body><p>no head</p></body></html>`)
	meta := ExtractMetadata(doc, "https://example.com/page")
	require.Equal(t, "https://example.com/page", meta.Title)
}
