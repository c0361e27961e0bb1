// Package dom wraps the parsed HTML document behind a narrow capability
// surface: metadata lookups, link elements and media elements. Downstream
// packages depend on these methods only, keeping the parser choice an
// internal detail.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// LinkRef is one hyperlink element as found in the document.
type LinkRef struct {
	Href   string
	Anchor string
	Rel    string
}

// MediaRef is one media element source as found in the document.
type MediaRef struct {
	Src string
	Tag string
}

// Document is a parsed HTML page.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from raw HTML. Pages in a legacy encoding are
// transcoded to UTF-8 first, using meta tags and content sniffing.
func Parse(html string) (*Document, error) {
	reader, err := charset.NewReader(strings.NewReader(html), "text/html")
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// TitleTag returns the trimmed <title> text, empty when absent.
func (d *Document) TitleTag() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// MetaProperty returns the content of a <meta property=...> tag.
func (d *Document) MetaProperty(property string) string {
	sel := fmt.Sprintf(`meta[property=%q]`, property)
	content, _ := d.doc.Find(sel).First().Attr("content")
	return strings.TrimSpace(content)
}

// MetaName returns the content of a <meta name=...> tag.
func (d *Document) MetaName(name string) string {
	sel := fmt.Sprintf(`meta[name=%q]`, name)
	content, _ := d.doc.Find(sel).First().Attr("content")
	return strings.TrimSpace(content)
}

// Lang returns the root element's lang attribute.
func (d *Document) Lang() string {
	lang, _ := d.doc.Find("html").First().Attr("lang")
	return strings.TrimSpace(lang)
}

// Links returns every hyperlink element carrying an href.
func (d *Document) Links() []LinkRef {
	var links []LinkRef
	d.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		rel, _ := s.Attr("rel")
		links = append(links, LinkRef{
			Href:   strings.TrimSpace(href),
			Anchor: strings.TrimSpace(s.Text()),
			Rel:    rel,
		})
	})
	return links
}

// MediaElements returns the src of every img, video and audio element,
// including sources nested under video/audio elements.
func (d *Document) MediaElements() []MediaRef {
	var refs []MediaRef
	d.doc.Find("img[src], video[src], audio[src], video source[src], audio source[src]").
		Each(func(_ int, s *goquery.Selection) {
			src, _ := s.Attr("src")
			src = strings.TrimSpace(src)
			if src == "" {
				return
			}
			tag := goquery.NodeName(s)
			if tag == "source" {
				tag = goquery.NodeName(s.Parent())
			}
			refs = append(refs, MediaRef{Src: src, Tag: tag})
		})
	return refs
}

// SelectionTexts returns the text of each element matching selector.
func (d *Document) SelectionTexts(selector string) []string {
	var texts []string
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, normalizeBlockText(s))
	})
	return texts
}

// ParagraphTexts returns the trimmed text of every paragraph element.
func (d *Document) ParagraphTexts() []string {
	var texts []string
	d.doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(s.Text()))
	})
	return texts
}

// CleanedText removes script, style, nav, footer and aside subtrees and
// returns the remaining visible text.
func (d *Document) CleanedText() string {
	clone := d.doc.Selection.Clone()
	clone.Find("script, style, nav, footer, aside").Remove()
	return normalizeBlockText(clone)
}

// normalizeBlockText collapses whitespace runs inside lines while keeping
// line boundaries, approximating a block-level text rendering.
func normalizeBlockText(s *goquery.Selection) string {
	raw := s.Text()
	lines := strings.Split(raw, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
