package product

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// prefilterCutoff is the catalog size above which the matcher asks the index
// for a candidate set instead of scoring every name. Small catalogs are
// always scored exhaustively, which keeps the best match exact.
const prefilterCutoff = 500

// Match is the best catalog candidate for a label, with its similarity
// score. A low score is data, not an error; threshold policy belongs to the
// caller.
type Match struct {
	Name  string
	Score int // 0-100, 100 is a perfect match
}

// Matcher scores free-text labels against a fixed snapshot of catalog
// product names. Ties are broken deterministically: the lexicographically
// smaller name wins.
type Matcher struct {
	names  []string // sorted ascending
	index  *Index
	logger *slog.Logger
}

// NewMatcher creates a matcher over the given product names. index may be
// nil, in which case every match scores the full catalog.
func NewMatcher(names []string, index *Index, logger *slog.Logger) *Matcher {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	return &Matcher{names: sorted, index: index, logger: logger}
}

// Match returns the best-scoring product name for the label. The second
// return value is false when the catalog is empty.
func (m *Matcher) Match(label string) (Match, bool) {
	candidates := m.names
	if m.index != nil && m.index.Size() > prefilterCutoff {
		if narrowed, err := m.index.Candidates(label, 50); err != nil {
			m.logger.Warn("candidate index failed, scoring full catalog", "error", err)
		} else if len(narrowed) > 0 {
			sort.Strings(narrowed)
			candidates = narrowed
		}
	}

	if len(candidates) == 0 {
		return Match{}, false
	}

	best := Match{Score: -1}
	for _, name := range candidates {
		score := Ratio(label, name)
		if score > best.Score {
			best = Match{Name: name, Score: score}
		}
	}

	m.logger.Debug("matched product label", "label", label, "name", best.Name, "score", best.Score)
	return best, true
}

// Ratio computes a token-order-insensitive similarity score between two
// strings, 0-100. Both the raw strings and their sorted-token forms are
// compared and the better score wins, so "piens rīgas" and "Rīgas piens"
// rate as equal.
func Ratio(s1, s2 string) int {
	a, b := strings.ToUpper(s1), strings.ToUpper(s2)

	score := ratio(a, b)
	if sorted := ratio(sortTokens(a), sortTokens(b)); sorted > score {
		score = sorted
	}
	return score
}

func ratio(s1, s2 string) int {
	if s1 == s2 {
		return 100
	}
	maxLen := len([]rune(s1))
	if l := len([]rune(s2)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 100
	}

	distance := fuzzy.LevenshteinDistance(s1, s2)
	score := 100 - (100*distance)/maxLen
	if score < 0 {
		return 0
	}
	return score
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
