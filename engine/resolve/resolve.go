// Package resolve maps names typed by the player to Things.
package resolve

import (
	"fmt"
	"strings"

	"github.com/nathoo/storyrules/engine/things"
)

// AmbiguityError indicates multiple things matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates no thing matched a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("there is no %q in the world", e.Name)
}

// Thing resolves a single name against population.
//
// An exact ID or exact (case-insensitive) name wins outright. Otherwise the
// query may match one word of a multi-word name ("key" matches "rusty
// key"), or use underscores for spaces.
func Thing(population []*things.Thing, name string) (*things.Thing, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return nil, &NotFoundError{Name: name}
	}

	// 1. Exact ID or name.
	for _, t := range population {
		if t.ID == name || strings.ToLower(t.Name) == query {
			return t, nil
		}
	}

	// 2. Partial matches.
	var matches []*things.Thing
	for _, t := range population {
		if matchesName(t, query) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Name: name}
	case 1:
		return matches[0], nil
	default:
		candidates := make([]string, len(matches))
		for i, m := range matches {
			candidates[i] = m.Name
		}
		return nil, &AmbiguityError{Name: name, Candidates: candidates}
	}
}

// Names returns the names of population in order.
func Names(population []*things.Thing) []string {
	out := make([]string, len(population))
	for i, t := range population {
		out[i] = t.Name
	}
	return out
}

// matchesName supports word-based partial match and underscore
// normalization ("rusty_key" matches "rusty key").
func matchesName(t *things.Thing, query string) bool {
	nameLower := strings.ToLower(t.Name)
	for _, word := range strings.Fields(nameLower) {
		if word == query {
			return true
		}
	}
	return strings.ReplaceAll(query, "_", " ") == nameLower
}
