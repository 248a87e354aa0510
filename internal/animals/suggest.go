package animals

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

const (
	DefaultSuggestionLimit = 5
	// MinSimilarity is the lowest normalized similarity returned.
	MinSimilarity = 0.25
)

// Suggester ranks known names by edit distance to a query.
type Suggester struct {
	names  []string
	folded []string
}

// NewSuggester builds a Suggester over names. Blank and case-insensitive
// duplicate names are dropped; the first spelling wins.
func NewSuggester(names []string) *Suggester {
	caser := cases.Fold()
	s := &Suggester{}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		f := caser.String(name)
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		s.names = append(s.names, name)
		s.folded = append(s.folded, f)
	}
	return s
}

// Len returns the corpus size.
func (s *Suggester) Len() int {
	return len(s.names)
}

type scored struct {
	name  string
	score float64
}

// Suggest returns up to limit names whose similarity to query is at least
// MinSimilarity, best first. Ties keep alphabetical order.
func (s *Suggester) Suggest(query string, limit int) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	q := cases.Fold().String(query)
	matches := make([]scored, 0, limit)
	for i, f := range s.folded {
		if score := similarity(q, f); score >= MinSimilarity {
			matches = append(matches, scored{name: s.names[i], score: score})
		}
	}

	slices.SortFunc(matches, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return strings.Compare(a.name, b.name)
		}
	})

	out := make([]string, 0, min(limit, len(matches)))
	for _, m := range matches[:min(limit, len(matches))] {
		out = append(out, m.name)
	}
	return out
}

// similarity is 1 - distance/maxRunes, in [0, 1].
func similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}
