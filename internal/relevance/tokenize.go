package relevance

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
	"github.com/kljensen/snowball/french"
)

var (
	htmlTagRe = regexp.MustCompile(`<[^>]+>`)

	// typographic variants normalized before tokenization
	punctReplacer = strings.NewReplacer(
		"’", "'", "‘", "'",
		"“", `"`, "”", `"`,
		"–", "-", "—", "-", "−", "-",
		" ", " ",
	)
)

// Tokenize normalizes a text field and splits it into lowercase word tokens.
// Accented letters and intra-word hyphens survive; HTML remnants, quotes and
// punctuation do not.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = punctReplacer.Replace(text)
	text = strings.ToLower(text)

	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})

	kept := tokens[:0]
	for _, tok := range tokens {
		tok = strings.Trim(tok, "-")
		if tok != "" {
			kept = append(kept, tok)
		}
	}
	return kept
}

// Stem reduces a token to its lemma using language-appropriate rules:
// a dedicated French stemmer, and the English stemmer as the generic
// fallback for everything else.
func Stem(token, lang string) string {
	lang = strings.ToLower(lang)
	if lang == "fr" || strings.HasPrefix(lang, "fr-") {
		return french.Stem(token, false)
	}
	return english.Stem(token, false)
}
