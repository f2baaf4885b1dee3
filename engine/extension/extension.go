// Package extension bundles tags, actions and relationship definitions
// into named units that can be registered with and removed from an Index.
package extension

import (
	"errors"
	"fmt"

	"github.com/nathoo/storyrules/engine/actions"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
)

var (
	// ErrConflict is returned when an extension would redefine a name
	// another extension already provides.
	ErrConflict = errors.New("extension conflict")

	ErrUnknownAction       = errors.New("unknown action")
	ErrUnknownRelationship = errors.New("unknown relationship")
	ErrUnknownExtension    = errors.New("unknown extension")
)

// Extension is a named bundle of definitions. Relationships should list
// both halves of each reversed pair.
type Extension struct {
	Name          string
	Description   string
	Tags          []*tags.Tag
	Actions       []*actions.Action
	Relationships []*things.Definition
}

// Index tracks the actions and relationship definitions provided by every
// registered extension, keyed by name.
type Index struct {
	extensions    []*Extension
	actions       map[string]*actions.Action
	actionOrder   []string
	relationships map[string]*things.Definition
	owner         map[string]string // action or relationship name -> extension name
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		actions:       make(map[string]*actions.Action),
		relationships: make(map[string]*things.Definition),
		owner:         make(map[string]string),
	}
}

// Register adds every definition of ext. If any action or relationship name
// is already taken (or the extension itself is already loaded) nothing is
// registered and ErrConflict is returned.
func (ix *Index) Register(ext *Extension) error {
	if ix.Loaded(ext.Name) {
		return fmt.Errorf("%w: extension %q already registered", ErrConflict, ext.Name)
	}

	seen := make(map[string]bool)
	for _, a := range ext.Actions {
		if owner, ok := ix.owner["action:"+a.Name]; ok {
			return fmt.Errorf("%w: action %q already provided by %s", ErrConflict, a.Name, owner)
		}
		if seen["action:"+a.Name] {
			return fmt.Errorf("%w: action %q defined twice in %s", ErrConflict, a.Name, ext.Name)
		}
		seen["action:"+a.Name] = true
	}
	for _, d := range ext.Relationships {
		if owner, ok := ix.owner["relationship:"+d.Name()]; ok {
			return fmt.Errorf("%w: relationship %q already provided by %s", ErrConflict, d.Name(), owner)
		}
		if seen["relationship:"+d.Name()] {
			return fmt.Errorf("%w: relationship %q defined twice in %s", ErrConflict, d.Name(), ext.Name)
		}
		seen["relationship:"+d.Name()] = true
	}

	for _, a := range ext.Actions {
		ix.actions[a.Name] = a
		ix.actionOrder = append(ix.actionOrder, a.Name)
		ix.owner["action:"+a.Name] = ext.Name
	}
	for _, d := range ext.Relationships {
		ix.relationships[d.Name()] = d
		ix.owner["relationship:"+d.Name()] = ext.Name
	}
	ix.extensions = append(ix.extensions, ext)
	return nil
}

// Unregister removes the named extension's definitions and every
// established relationship of its types on the given things.
func (ix *Index) Unregister(name string, population []*things.Thing) error {
	i := ix.find(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownExtension, name)
	}
	ext := ix.extensions[i]

	types := make(map[*tags.Tag]bool)
	for _, d := range ext.Relationships {
		types[d.Type] = true
		if d.Reversed != nil {
			types[d.Reversed.Type] = true
		}
		delete(ix.relationships, d.Name())
		delete(ix.owner, "relationship:"+d.Name())
	}
	for _, t := range population {
		kept := t.Relationships[:0]
		for _, r := range t.Relationships {
			if !types[r.Type] {
				kept = append(kept, r)
			}
		}
		t.Relationships = kept
	}

	for _, a := range ext.Actions {
		delete(ix.actions, a.Name)
		delete(ix.owner, "action:"+a.Name)
	}
	order := ix.actionOrder[:0]
	for _, n := range ix.actionOrder {
		if _, ok := ix.actions[n]; ok {
			order = append(order, n)
		}
	}
	ix.actionOrder = order

	ix.extensions = append(ix.extensions[:i], ix.extensions[i+1:]...)
	return nil
}

// Action looks up an action by name.
func (ix *Index) Action(name string) (*actions.Action, error) {
	a, ok := ix.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return a, nil
}

// Relationship looks up a relationship definition by name (either half of
// a pair).
func (ix *Index) Relationship(name string) (*things.Definition, error) {
	d, ok := ix.relationships[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRelationship, name)
	}
	return d, nil
}

// Actions returns the registered actions in registration order.
func (ix *Index) Actions() []*actions.Action {
	out := make([]*actions.Action, 0, len(ix.actionOrder))
	for _, n := range ix.actionOrder {
		out = append(out, ix.actions[n])
	}
	return out
}

// Extensions returns the registered extensions in registration order.
func (ix *Index) Extensions() []*Extension {
	return append([]*Extension(nil), ix.extensions...)
}

// Loaded reports whether an extension with the given name is registered.
func (ix *Index) Loaded(name string) bool {
	return ix.find(name) >= 0
}

func (ix *Index) find(name string) int {
	for i, e := range ix.extensions {
		if e.Name == name {
			return i
		}
	}
	return -1
}
