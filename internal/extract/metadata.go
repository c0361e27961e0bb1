package extract

import "github.com/landgraph/landcrawler/internal/dom"

// Metadata holds the optional page metadata fields. Title is never empty:
// it falls back to the page URL when nothing better is found.
type Metadata struct {
	Title       string
	Description string
	Keywords    string
	Lang        string
}

// ExtractMetadata reads page metadata independently of which cascade stage
// produced the readable text. Title and description each use an
// OpenGraph -> Twitter card -> plain tag cascade.
func ExtractMetadata(doc *dom.Document, pageURL string) Metadata {
	title := firstNonEmpty(
		doc.MetaProperty("og:title"),
		doc.MetaName("twitter:title"),
		doc.TitleTag(),
	)
	if title == "" {
		title = pageURL
	}

	return Metadata{
		Title: title,
		Description: firstNonEmpty(
			doc.MetaProperty("og:description"),
			doc.MetaName("twitter:description"),
			doc.MetaName("description"),
		),
		Keywords: doc.MetaName("keywords"),
		Lang:     doc.Lang(),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
