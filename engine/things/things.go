// Package things implements the entity graph: Things, the relationship
// definitions that may connect them, and the mirrored relationship records
// that do.
package things

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nathoo/storyrules/engine/tags"
)

// Thing is a simulated entity. It owns its relationship list; each record
// points at the other Thing without owning it.
type Thing struct {
	ID            string
	Name          string
	Kinds         tags.Set
	Relationships []Relationship
}

// Relationship is one directed edge. Every established connection is
// stored twice: the forward type on the subject and the reverse type on
// the object.
type Relationship struct {
	Type  *tags.Tag
	Other *Thing
}

// Anything is the wildcard thing. Its only kind is the universal tag and it
// satisfies every structural tag requirement.
var Anything = New("Anything")

// New creates a thing with the given kinds plus the universal tag.
func New(name string, kinds ...*tags.Tag) *Thing {
	return Restore(uuid.NewString(), name, kinds...)
}

// Restore creates a thing with a known ID, used when reloading a saved
// graph.
func Restore(id, name string, kinds ...*tags.Tag) *Thing {
	set := tags.NewSet(kinds...)
	set.Add(tags.Something)
	return &Thing{
		ID:    id,
		Name:  name,
		Kinds: set,
	}
}

// Has reports whether the thing carries tag t.
func (t *Thing) Has(tag *tags.Tag) bool {
	return t.Kinds.Has(tag)
}

func (t *Thing) String() string {
	if t == nil {
		return "none"
	}
	return t.Name
}

// Describe returns a sentence listing the thing's kinds,
// e.g. "rope is long, thin and something".
func Describe(t *Thing) string {
	return fmt.Sprintf("%s is %s", t.Name, Sentence(t.Kinds.Descriptions()))
}

// Sentence joins items as "a, b and c".
func Sentence(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
