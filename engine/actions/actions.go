// Package actions defines Actions: named operations with tag-constrained
// participants and a check / carry out / report lifecycle.
package actions

import (
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
)

// Instructions is a callback that cannot veto.
type Instructions func(subject, object, second *things.Thing)

// Failable is a callback whose false return stops the action.
type Failable func(subject, object, second *things.Thing) bool

// Action represents a character's intention to do something. A nil
// ObjectTag or SecondObjectTag means the action takes no such participant.
// Nil callbacks fall back to the engine's default narration.
type Action struct {
	Name            string
	SubjectTag      *tags.Tag
	ObjectTag       *tags.Tag
	SecondObjectTag *tags.Tag

	Check    Failable
	CarryOut Instructions
	Report   Instructions
}

// Option configures an Action in Define.
type Option func(*Action)

// WithObject requires an object carrying tag.
func WithObject(tag *tags.Tag) Option {
	return func(a *Action) { a.ObjectTag = tag }
}

// WithSecondObject requires a second object carrying tag.
func WithSecondObject(tag *tags.Tag) Option {
	return func(a *Action) { a.SecondObjectTag = tag }
}

// WithCheck sets the custom check.
func WithCheck(fn Failable) Option {
	return func(a *Action) { a.Check = fn }
}

// WithCarryOut sets the carry-out callback.
func WithCarryOut(fn Instructions) Option {
	return func(a *Action) { a.CarryOut = fn }
}

// WithReport sets the report callback.
func WithReport(fn Instructions) Option {
	return func(a *Action) { a.Report = fn }
}

// Define declares an action performed by things carrying subjectTag.
func Define(subjectTag *tags.Tag, name string, opts ...Option) *Action {
	a := &Action{Name: name, SubjectTag: subjectTag}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ExpectsSecondObject reports whether the action takes a second object.
func (a *Action) ExpectsSecondObject() bool {
	return a.SecondObjectTag != nil
}
