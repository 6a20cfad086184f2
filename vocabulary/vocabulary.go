// Package vocabulary provides search-as-you-type over the reference list of
// known medication names.
package vocabulary

import (
	"iter"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// MinQueryLength is the shortest input, in characters, that produces suggestions.
const MinQueryLength = 2

// Membership reports whether a name is already selected.
type Membership interface {
	Contains(name string) bool
}

// fold returns the case-folded form of s. A Caser is stateful, so one is
// created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// matches reports whether name contains the already folded query.
func matches(name, foldedQuery string) bool {
	return strings.Contains(fold(name), foldedQuery)
}

// Suggest yields the names of vocabulary that contain input as a
// case-insensitive substring and are not in selected. Nothing is yielded while
// input is shorter than MinQueryLength. The sequence is computed lazily and
// depends only on its arguments; selected may be nil.
func Suggest(input string, vocabulary []string, selected Membership) iter.Seq[string] {
	return func(yield func(string) bool) {
		if utf8.RuneCountInString(input) < MinQueryLength {
			return
		}
		query := fold(input)
		for _, name := range vocabulary {
			if !matches(name, query) {
				continue
			}
			if selected != nil && selected.Contains(name) {
				continue
			}
			if !yield(name) {
				return
			}
		}
	}
}

// Vocabulary is an immutable list of known names with case-insensitive lookup.
type Vocabulary struct {
	names  []string
	folded []string
}

// New builds a vocabulary from names, dropping blanks and exact duplicates
// while keeping the first occurrence order.
func New(names []string) *Vocabulary {
	v := &Vocabulary{}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		v.names = append(v.names, n)
		v.folded = append(v.folded, fold(n))
	}
	return v
}

// Lookup returns every name containing query, case-insensitively.
// An empty query returns the whole vocabulary.
func (v *Vocabulary) Lookup(query string) []string {
	q := fold(strings.TrimSpace(query))
	results := make([]string, 0)
	for i, f := range v.folded {
		if strings.Contains(f, q) {
			results = append(results, v.names[i])
		}
	}
	return results
}

// Suggest applies the suggestion filter to this vocabulary.
func (v *Vocabulary) Suggest(input string, selected Membership) iter.Seq[string] {
	return Suggest(input, v.names, selected)
}

// Names returns a copy of the vocabulary in its original order.
func (v *Vocabulary) Names() []string {
	return append([]string{}, v.names...)
}

// Len returns the number of names.
func (v *Vocabulary) Len() int {
	return len(v.names)
}
