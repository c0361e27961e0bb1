package relevance

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/landgraph/landcrawler/internal/land"
)

// TestScoreTitleAndContentWeights verifies the weighted field contributions:
// one matched term in the title and the content scores 10 + 1 with the
// default constants.
func TestScoreTitleAndContentWeights(t *testing.T) {
	t.Parallel()

	scorer := New(DefaultConfig(), nil)
	dict := land.Dictionary{"test": 1.0}

	score := scorer.Score(dict, "A Test Page", "test test example", "en")
	require.Equal(t, 11.0, score)
}

// TestScoreLanguageBoost verifies the same inputs gain the multiplicative
// boost for the inflection-rich language.
func TestScoreLanguageBoost(t *testing.T) {
	t.Parallel()

	scorer := New(DefaultConfig(), nil)
	dict := land.Dictionary{"test": 1.0}

	score := scorer.Score(dict, "A Test Page", "test test example", "fr")
	require.Equal(t, 12.1, score)
}

// TestScoreIdempotent asserts identical inputs always yield the identical
// rounded score.
func TestScoreIdempotent(t *testing.T) {
	t.Parallel()

	scorer := New(DefaultConfig(), nil)
	dict := land.Dictionary{"crawler": 2.0, "corpus": 1.5}
	title := "Building a Corpus Crawler"
	content := "The crawler collects pages into a topical corpus."

	first := scorer.Score(dict, title, content, "en")
	for i := 0; i < 5; i++ {
		require.Equal(t, first, scorer.Score(dict, title, content, "en"))
	}
}

// TestScoreRepetitionWithinFieldCountsOnce asserts a lemma repeating inside
// one field cannot inflate the score.
func TestScoreRepetitionWithinFieldCountsOnce(t *testing.T) {
	t.Parallel()

	scorer := New(DefaultConfig(), nil)
	dict := land.Dictionary{"test": 1.0}

	once := scorer.Score(dict, "test", "", "en")
	many := scorer.Score(dict, "test test test test", "", "en")
	require.Equal(t, once, many)
}

// TestScoreMultiTermBonus verifies two distinct matched terms earn the bonus.
func TestScoreMultiTermBonus(t *testing.T) {
	t.Parallel()

	scorer := New(DefaultConfig(), nil)
	dict := land.Dictionary{"alpha": 1.0, "beta": 2.0}

	// content-only matches: 1 + 2, plus 0.5 per matched term
	score := scorer.Score(dict, "", "alpha beta", "en")
	require.Equal(t, 4.0, score)
}

// TestScoreEmptyInputs covers the zero cases: no dictionary, no text.
func TestScoreEmptyInputs(t *testing.T) {
	t.Parallel()

	scorer := New(DefaultConfig(), nil)

	require.Zero(t, scorer.Score(nil, "title", "content", "en"))
	require.Zero(t, scorer.Score(land.Dictionary{"test": 1}, "", "", "en"))
}

// TestScoreNoMatchNoBoost asserts the language boost never applies without a
// matched term.
func TestScoreNoMatchNoBoost(t *testing.T) {
	t.Parallel()

	scorer := New(DefaultConfig(), nil)
	dict := land.Dictionary{"absent": 1.0}

	require.Zero(t, scorer.Score(dict, "some title", "some content", "fr"))
}

// TestScoreStemmedMatch verifies inflected forms hit a lemma entry.
func TestScoreStemmedMatch(t *testing.T) {
	t.Parallel()

	scorer := New(DefaultConfig(), nil)
	dict := land.Dictionary{Stem("running", "en"): 1.0}

	score := scorer.Score(dict, "", "runs running ran", "en")
	require.Greater(t, score, 0.0)
}
