// Package tags implements the interned tag registry. Things carry a set of
// tags ("has a") instead of sitting in a single kind tree ("is a").
package tags

import (
	"sort"
	"sync"
)

// Tag is an interned identifier. Two tags are the same iff they are the
// same pointer; never compare tags by name.
type Tag struct {
	Name        string
	Description string
}

func (t *Tag) String() string {
	if t == nil {
		return ""
	}
	return t.Description
}

var (
	mu       sync.Mutex
	registry = map[string]*Tag{}
)

// Get returns the unique tag for name, creating it on first use.
func Get(name string) *Tag {
	mu.Lock()
	defer mu.Unlock()
	if t, ok := registry[name]; ok {
		return t
	}
	t := &Tag{Name: name, Description: name}
	registry[name] = t
	return t
}

// Lookup returns the tag for name without creating it.
func Lookup(name string) (*Tag, bool) {
	mu.Lock()
	defer mu.Unlock()
	t, ok := registry[name]
	return t, ok
}

// Describe sets the human-readable description of the named tag and
// returns it.
func Describe(name, description string) *Tag {
	t := Get(name)
	mu.Lock()
	t.Description = description
	mu.Unlock()
	return t
}

// Something is the universal tag. Every thing has it and patterns that
// include it match anything.
var Something = Get("something")

// Set is an unordered set of tags.
type Set map[*Tag]struct{}

// NewSet builds a set from the given tags.
func NewSet(ts ...*Tag) Set {
	s := make(Set, len(ts))
	for _, t := range ts {
		s[t] = struct{}{}
	}
	return s
}

// Has reports whether t is in the set.
func (s Set) Has(t *Tag) bool {
	_, ok := s[t]
	return ok
}

// Add inserts t into the set.
func (s Set) Add(t *Tag) {
	s[t] = struct{}{}
}

// Overlaps reports whether the two sets share at least one tag.
func (s Set) Overlaps(other Set) bool {
	small, big := s, other
	if len(small) > len(big) {
		small, big = big, small
	}
	for t := range small {
		if big.Has(t) {
			return true
		}
	}
	return false
}

// Clone returns a copy of the set. A nil set stays nil.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	c := make(Set, len(s))
	for t := range s {
		c[t] = struct{}{}
	}
	return c
}

// Names returns the tag names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for t := range s {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Descriptions returns tag descriptions sorted by name, with the universal
// tag last.
func (s Set) Descriptions() []string {
	sorted := make([]*Tag, 0, len(s))
	for t := range s {
		if t != Something {
			sorted = append(sorted, t)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	out := make([]string, 0, len(s))
	for _, t := range sorted {
		out = append(out, t.Description)
	}
	if s.Has(Something) {
		out = append(out, Something.Description)
	}
	return out
}
