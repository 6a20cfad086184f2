// Package selection implements the ordered, duplicate-free list of medications
// selected for a patient. Order is the order of first successful addition.
//
// A Selection is not safe for concurrent use; the owning session serialises access.
package selection

import (
	"iter"
	"slices"

	"github.com/giygas/drugsafe-api/entities"
)

// Selection is an ordered set of medication names.
type Selection struct {
	names []string
	index map[string]struct{}
}

// New returns an empty selection.
func New() *Selection {
	return &Selection{index: make(map[string]struct{})}
}

// Add appends name unless it is already present (exact, case-sensitive match).
// It reports whether the selection changed. Empty names are ignored.
func (s *Selection) Add(name string) bool {
	if name == "" {
		return false
	}
	return s.Insert(name) == nil
}

// Insert is Add with the duplicate case reported as entities.ErrDuplicateEntry.
func (s *Selection) Insert(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := s.index[name]; ok {
		return entities.ErrDuplicateEntry
	}
	s.index[name] = struct{}{}
	s.names = append(s.names, name)
	return nil
}

// Remove deletes name if present and reports whether it was found.
func (s *Selection) Remove(name string) bool {
	if _, ok := s.index[name]; !ok {
		return false
	}
	delete(s.index, name)
	s.names = slices.DeleteFunc(s.names, func(n string) bool { return n == name })
	return true
}

// MergeExtracted appends every name not already present, in the order given.
// Existing entries keep their position. It returns the names actually appended.
func (s *Selection) MergeExtracted(names []string) []string {
	var added []string
	for _, name := range names {
		if s.Add(name) {
			added = append(added, name)
		}
	}
	return added
}

// Contains reports whether name is selected.
func (s *Selection) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of selected medications.
func (s *Selection) Len() int {
	return len(s.names)
}

// Names returns a copy of the selection in insertion order.
func (s *Selection) Names() []string {
	return append([]string{}, s.names...)
}

// All iterates over the selection in insertion order.
func (s *Selection) All() iter.Seq[string] {
	return slices.Values(s.names)
}
