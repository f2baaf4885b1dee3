package rules

import (
	"github.com/nathoo/storyrules/engine/actions"
	"github.com/nathoo/storyrules/engine/things"
)

// Rule runs Instructions when its Circumstance holds. After-rules are
// plain Rules and cannot veto.
type Rule struct {
	Circumstance Circumstance
	Instructions actions.Instructions
}

// FailableRule is a before/instead rule; a false return vetoes the action.
type FailableRule struct {
	Circumstance Circumstance
	Instructions actions.Failable
}

// Applies reports whether c holds for the given attempt.
func Applies(c Circumstance, action *actions.Action, subject, object, second *things.Thing) bool {
	if c == nil {
		return true
	}
	return c(Live(subject, action, object, second))
}

// Rulebook holds the three ordered rule lists consulted by the engine.
// Rules run in registration order within a list.
type Rulebook struct {
	before  []FailableRule
	instead []FailableRule
	after   []Rule
}

// NewRulebook returns an empty rulebook.
func NewRulebook() *Rulebook {
	return &Rulebook{}
}

// Before registers a rule consulted before anything else.
func (rb *Rulebook) Before(c Circumstance, fn actions.Failable) {
	rb.before = append(rb.before, FailableRule{Circumstance: c, Instructions: fn})
}

// Instead registers a rule consulted after the before rules. Its veto
// semantics are identical to Before; the bucket records author intent.
func (rb *Rulebook) Instead(c Circumstance, fn actions.Failable) {
	rb.instead = append(rb.instead, FailableRule{Circumstance: c, Instructions: fn})
}

// After registers a rule run once the action has been carried out.
func (rb *Rulebook) After(c Circumstance, fn actions.Instructions) {
	rb.after = append(rb.after, Rule{Circumstance: c, Instructions: fn})
}

// BeforeRules returns the before rules in registration order.
func (rb *Rulebook) BeforeRules() []FailableRule { return rb.before }

// InsteadRules returns the instead rules in registration order.
func (rb *Rulebook) InsteadRules() []FailableRule { return rb.instead }

// AfterRules returns the after rules in registration order.
func (rb *Rulebook) AfterRules() []Rule { return rb.after }

// Len returns the total number of registered rules.
func (rb *Rulebook) Len() int {
	return len(rb.before) + len(rb.instead) + len(rb.after)
}
