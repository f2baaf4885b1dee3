// Package engine runs actions through the fixed rule pipeline:
// before → instead → check → carry out → after → report.
package engine

import (
	"fmt"

	"github.com/nathoo/storyrules/engine/actions"
	"github.com/nathoo/storyrules/engine/narrate"
	"github.com/nathoo/storyrules/engine/rules"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
)

// Phase identifies a stage of the pipeline.
type Phase int

const (
	PhaseBefore Phase = iota + 1
	PhaseInstead
	PhaseStructure
	PhaseCheck
	PhaseCarryOut
	PhaseAfter
	PhaseReport
)

func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseInstead:
		return "instead"
	case PhaseStructure:
		return "structure"
	case PhaseCheck:
		return "check"
	case PhaseCarryOut:
		return "carry out"
	case PhaseAfter:
		return "after"
	case PhaseReport:
		return "report"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Outcome is the result of one attempt. When OK is false, Phase is the
// gating phase that vetoed; otherwise it is PhaseReport.
type Outcome struct {
	OK    bool
	Phase Phase
}

// Engine holds the rulebook and the narration sink. It is synchronous and
// not safe for concurrent use; callers serialize attempts.
type Engine struct {
	Rules *rules.Rulebook
	Sink  narrate.Sink
}

// New creates an engine. A nil rulebook gets an empty one; a nil sink
// narrates through narrate.Default at call time.
func New(rb *rules.Rulebook, sink narrate.Sink) *Engine {
	if rb == nil {
		rb = rules.NewRulebook()
	}
	return &Engine{Rules: rb, Sink: sink}
}

// Log narrates through the engine's sink.
func (e *Engine) Log(message string) {
	if e.Sink != nil {
		e.Sink.Log(message, "")
		return
	}
	narrate.Default().Log(message, "")
}

// Execute runs the full pipeline and reports whether the action happened.
func (e *Engine) Execute(subject *things.Thing, action *actions.Action, object, second *things.Thing) bool {
	return e.Attempt(subject, action, object, second).OK
}

// Attempt runs the full pipeline for one action and reports where it
// stopped.
func (e *Engine) Attempt(subject *things.Thing, action *actions.Action, object, second *things.Thing) Outcome {
	// 1. Before rules: the first applicable rule returning false aborts.
	if !e.runFailable(e.Rules.BeforeRules(), action, subject, object, second) {
		return Outcome{Phase: PhaseBefore}
	}

	// 2. Instead rules: same veto semantics, run strictly after before.
	if !e.runFailable(e.Rules.InsteadRules(), action, subject, object, second) {
		return Outcome{Phase: PhaseInstead}
	}

	// 3. Structural tag checks, then the action's own check.
	if !e.structural(action, subject, object, second) {
		return Outcome{Phase: PhaseStructure}
	}
	if !e.check(action, subject, object, second) {
		return Outcome{Phase: PhaseCheck}
	}

	// 4. Carry out. Not a veto point.
	if action.CarryOut != nil {
		action.CarryOut(subject, object, second)
	} else {
		e.Log("carrying out: " + describeAttempt(action, subject, object, second))
	}

	// 5. After rules cannot veto.
	for _, rule := range e.Rules.AfterRules() {
		if rules.Applies(rule.Circumstance, action, subject, object, second) {
			rule.Instructions(subject, object, second)
		}
	}

	// 6. Report.
	if action.Report != nil {
		action.Report(subject, object, second)
	} else {
		e.Log("reporting: " + describeAttempt(action, subject, object, second))
	}

	return Outcome{OK: true, Phase: PhaseReport}
}

// Check runs only the structural and custom checks, without consulting any
// rulebook or carrying anything out.
func (e *Engine) Check(action *actions.Action, subject, object, second *things.Thing) bool {
	return e.structural(action, subject, object, second) && e.check(action, subject, object, second)
}

// CheckTheoretical reports whether the action could ever apply to subject
// and object, treating the second object as the wildcard things.Anything.
func (e *Engine) CheckTheoretical(action *actions.Action, subject, object *things.Thing) bool {
	return e.Check(action, subject, object, things.Anything)
}

func (e *Engine) runFailable(rs []rules.FailableRule, action *actions.Action, subject, object, second *things.Thing) bool {
	for _, rule := range rs {
		if !rules.Applies(rule.Circumstance, action, subject, object, second) {
			continue
		}
		if !rule.Instructions(subject, object, second) {
			return false
		}
	}
	return true
}

func (e *Engine) structural(action *actions.Action, subject, object, second *things.Thing) bool {
	if !satisfies(subject, action.SubjectTag) {
		e.Log(fmt.Sprintf("%s is not %s (so cannot %s)", subject.Name, action.SubjectTag.Description, action.Name))
		return false
	}
	if !e.participant(action, subject, object, action.ObjectTag, "an object") {
		return false
	}
	return e.participant(action, subject, second, action.SecondObjectTag, "a second object")
}

func (e *Engine) participant(action *actions.Action, subject, thing *things.Thing, tag *tags.Tag, role string) bool {
	if tag == nil {
		return true
	}
	if thing == nil {
		e.Log(fmt.Sprintf("%s cannot %s without %s", subject.Name, action.Name, role))
		return false
	}
	if !satisfies(thing, tag) {
		e.Log(fmt.Sprintf("%s is not %s (so %s cannot %s it)", thing.Name, tag.Description, subject.Name, action.Name))
		return false
	}
	return true
}

func (e *Engine) check(action *actions.Action, subject, object, second *things.Thing) bool {
	if action.Check != nil {
		return action.Check(subject, object, second)
	}
	e.Log("checking: " + describeAttempt(action, subject, object, second))
	return true
}

// satisfies treats the universal tag and the wildcard thing as matching
// anything.
func satisfies(thing *things.Thing, tag *tags.Tag) bool {
	return tag == tags.Something || thing == things.Anything || thing.Has(tag)
}

func describeAttempt(action *actions.Action, subject, object, second *things.Thing) string {
	return fmt.Sprintf("action %s (subject: %s, object: %s, second object: %s)",
		action.Name, subject, object, second)
}
