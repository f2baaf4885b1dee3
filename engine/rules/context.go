// Package rules implements circumstances (predicates over what is
// happening) and the before / instead / after rulebooks they guard.
package rules

import (
	"github.com/nathoo/storyrules/engine/actions"
	"github.com/nathoo/storyrules/engine/things"
)

// Context describes what is happening, either as live state or as a
// pattern. Unset fields do not constrain a match.
type Context struct {
	Subject      *things.Thing
	Action       *actions.Action
	Object       *things.ObjectContext
	Relationship *things.Definition
}

// Clone returns a deep copy of the context's pattern data. Things, actions
// and definitions are shared by identity.
func (c Context) Clone() Context {
	if c.Object != nil {
		obj := c.Object.Clone()
		c.Object = &obj
	}
	return c
}

// Live builds the context for one action attempt.
func Live(subject *things.Thing, action *actions.Action, object, second *things.Thing) Context {
	return Context{
		Subject: subject,
		Action:  action,
		Object:  &things.ObjectContext{Object: object, SecondObject: second},
	}
}

// Allows reports whether current satisfies the expected pattern.
func Allows(current, expected Context) bool {
	// Subject and action are compared by identity.
	if expected.Subject != nil && current.Subject != expected.Subject {
		return false
	}
	if expected.Action != nil && current.Action != expected.Action {
		return false
	}

	if expected.Object != nil && current.Object != nil {
		if !things.ObjectAllows(*expected.Object, *current.Object) {
			return false
		}
	}

	// A required relationship must currently exist on the subject, scoped
	// by the expected object pattern.
	if expected.Relationship != nil && current.Subject != nil {
		if _, ok := things.Find(current.Subject, expected.Relationship.Type, expected.Object); !ok {
			return false
		}
	}

	return true
}
