package rules

import (
	"fmt"

	"github.com/nathoo/storyrules/engine/actions"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
)

// Circumstance is a predicate over a live Context.
type Circumstance func(Context) bool

// Always is the circumstance that holds for every context.
func Always(Context) bool { return true }

// Builder accumulates a conjunction of conditions, e.g.
//
//	rules.When(bob).Is(take).The(table).Build()
//
// The builder has one open span (the pending Context). And and Build close
// the span by capturing a copy of it as a condition. Calls that need a
// scoping action or relationship panic when none is set; that is author
// error, not a runtime condition.
type Builder struct {
	conditions []Circumstance
	pending    Context
	anchored   bool
}

// When starts a circumstance about subject.
func When(subject *things.Thing) *Builder {
	b := &Builder{}
	return b.When(subject)
}

// When re-anchors the open span on a new subject. Any span already open is
// committed first.
func (b *Builder) When(subject *things.Thing) *Builder {
	if b.anchored {
		b.commit()
	}
	b.pending = Context{Subject: subject}
	b.anchored = subject != nil
	return b
}

// Is scopes the open span to an action.
func (b *Builder) Is(action *actions.Action) *Builder {
	b.mustAnchor("Is")
	b.pending.Action = action
	return b
}

// Already requires the subject to currently hold a relationship.
func (b *Builder) Already(def *things.Definition) *Builder {
	b.mustAnchor("Already")
	b.pending.Relationship = def
	return b
}

// The names the object.
func (b *Builder) The(object *things.Thing) *Builder {
	b.mustScope("The")
	b.object().Object = object
	return b
}

// AndThe names the second object. The must come first.
func (b *Builder) AndThe(second *things.Thing) *Builder {
	b.mustScope("AndThe")
	if b.pending.Object == nil || b.pending.Object.Object == nil {
		panic("rules: AndThe called before The")
	}
	b.pending.Object.SecondObject = second
	return b
}

// A adds tag to the object's tag pattern.
func (b *Builder) A(tag *tags.Tag) *Builder {
	b.mustScope("A")
	obj := b.object()
	if obj.Tags == nil {
		obj.Tags = tags.Set{}
	}
	obj.Tags.Add(tag)
	return b
}

// And closes the open span and adds c as a further condition. The next span
// must be re-anchored with When before Is or Already can be used.
func (b *Builder) And(c Circumstance) *Builder {
	b.commit()
	b.conditions = append(b.conditions, c)
	return b
}

// Build closes the open span and returns the conjunction of every
// accumulated condition.
func (b *Builder) Build() Circumstance {
	b.commit()
	return All(append([]Circumstance(nil), b.conditions...)...)
}

// commit captures the open span by value and starts an empty one.
func (b *Builder) commit() {
	if b.anchored {
		expected := b.pending.Clone()
		b.conditions = append(b.conditions, func(current Context) bool {
			return Allows(current, expected)
		})
	}
	b.pending = Context{}
	b.anchored = false
}

func (b *Builder) object() *things.ObjectContext {
	if b.pending.Object == nil {
		b.pending.Object = &things.ObjectContext{}
	}
	return b.pending.Object
}

func (b *Builder) mustAnchor(call string) {
	if !b.anchored {
		panic(fmt.Sprintf("rules: %s called without a subject; start with When", call))
	}
}

func (b *Builder) mustScope(call string) {
	b.mustAnchor(call)
	if b.pending.Action == nil && b.pending.Relationship == nil {
		panic(fmt.Sprintf("rules: %s called before Is or Already", call))
	}
}
