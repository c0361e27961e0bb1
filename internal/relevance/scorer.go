// Package relevance scores an expression's topicality against a land's
// weighted lemma dictionary.
package relevance

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/landgraph/landcrawler/internal/land"
)

// Config exposes the scoring constants. The values are tuning artifacts
// inherited from the original system, not load-bearing contracts.
type Config struct {
	TitleWeight    float64
	ContentWeight  float64
	MultiTermBonus float64
	LanguageBoost  float64
}

// DefaultConfig returns the historical constants.
func DefaultConfig() Config {
	return Config{
		TitleWeight:    10,
		ContentWeight:  1,
		MultiTermBonus: 0.5,
		LanguageBoost:  1.1,
	}
}

// Scorer computes relevance scores. It is stateless and safe for concurrent
// use; identical inputs always yield the identical rounded score.
type Scorer struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs a Scorer.
func New(cfg Config, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{cfg: cfg, logger: logger}
}

// Score computes the weighted relevance of (title, content) against the
// dictionary. Title matches weigh TitleWeight per dictionary weight unit,
// content matches ContentWeight; a lemma counts once per field no matter how
// often it repeats. More than one distinct matched term earns the multi-term
// bonus, and inflection-rich languages get a small multiplicative boost.
// An empty dictionary or empty input yields 0.
func (s *Scorer) Score(dict land.Dictionary, title, content, lang string) float64 {
	if len(dict) == 0 || (title == "" && content == "") {
		return 0
	}

	titleLemmas := lemmaSet(title, lang)
	contentLemmas := lemmaSet(content, lang)

	var score float64
	matched := make(map[string]struct{})
	for lemma, weight := range dict {
		if _, ok := titleLemmas[lemma]; ok {
			score += weight * s.cfg.TitleWeight
			matched[lemma] = struct{}{}
		}
		if _, ok := contentLemmas[lemma]; ok {
			score += weight * s.cfg.ContentWeight
			matched[lemma] = struct{}{}
		}
	}

	if len(matched) > 1 {
		score += s.cfg.MultiTermBonus * float64(len(matched))
	}
	if len(matched) > 0 && isBoostedLanguage(lang) {
		score *= s.cfg.LanguageBoost
	}

	return round2(score)
}

// lemmaSet normalizes, tokenizes and stems a text field, deduplicating the
// resulting lemmas so repetition within one field cannot inflate the score.
func lemmaSet(text, lang string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range Tokenize(text) {
		lemma := Stem(token, lang)
		if lemma != "" {
			set[lemma] = struct{}{}
		}
	}
	return set
}

// isBoostedLanguage reports whether the language gets the inflection boost.
// French carries far more inflected forms than the generic stemmer handles,
// so a confirmed match there is a stronger signal.
func isBoostedLanguage(lang string) bool {
	lang = strings.ToLower(lang)
	return lang == "fr" || strings.HasPrefix(lang, "fr-")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
