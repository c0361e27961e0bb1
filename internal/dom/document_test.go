package dom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := Parse(html)
	require.NoError(t, err)
	return doc
}

// TestDocumentLinks verifies href, trimmed anchor text and rel extraction.
func TestDocumentLinks(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<body>
		<a href="/one">  First  </a>
		<a href="https://other.org" rel="nofollow">Second</a>
		<a>no href</a>
	</body>`)

	links := doc.Links()
	require.Len(t, links, 2)
	require.Equal(t, LinkRef{Href: "/one", Anchor: "First"}, links[0])
	require.Equal(t, LinkRef{Href: "https://other.org", Anchor: "Second", Rel: "nofollow"}, links[1])
}

// TestDocumentMediaElements verifies img/video/audio collection, including
// sources nested under a video element attributed to the parent tag.
func TestDocumentMediaElements(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<body>
		<img src="/a.jpg">
		<img src="">
		<video><source src="/clip.mp4"></video>
		<audio src="/sound.mp3"></audio>
	</body>`)

	refs := doc.MediaElements()
	require.Len(t, refs, 3)
	require.Equal(t, MediaRef{Src: "/a.jpg", Tag: "img"}, refs[0])
	require.Equal(t, MediaRef{Src: "/clip.mp4", Tag: "video"}, refs[1])
	require.Equal(t, MediaRef{Src: "/sound.mp3", Tag: "audio"}, refs[2])
}

// TestDocumentMetadataLookups covers title, meta tags and the lang attribute.
func TestDocumentMetadataLookups(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<html lang="en-GB"><head>
		<title> Spaced Title </title>
		<meta property="og:image" content="https://example.com/i.png">
		<meta name="description" content="About the page">
	</head><body></body></html>`)

	require.Equal(t, "Spaced Title", doc.TitleTag())
	require.Equal(t, "https://example.com/i.png", doc.MetaProperty("og:image"))
	require.Equal(t, "About the page", doc.MetaName("description"))
	require.Equal(t, "en-GB", doc.Lang())
}

// TestParseTranscodesLegacyCharset asserts a latin-1 page declared via meta
// tag comes out as UTF-8 text.
func TestParseTranscodesLegacyCharset(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, "<html><head><meta charset=\"iso-8859-1\"><title>Caf\xe9</title></head><body></body></html>")
	require.Equal(t, "Café", doc.TitleTag())
}

// TestDocumentCleanedText asserts script, style and chrome subtrees are
// dropped and whitespace runs collapse.
func TestDocumentCleanedText(t *testing.T) {
	t.Parallel()

	doc := mustParse(t, `<body>
		<style>.x{color:red}</style>
		<nav>site menu</nav>
		<p>kept   text</p>
		<footer>copyright</footer>
	</body>`)

	text := doc.CleanedText()
	require.Contains(t, text, "kept text")
	require.NotContains(t, text, "site menu")
	require.NotContains(t, text, "copyright")
	require.NotContains(t, text, "color:red")
}
