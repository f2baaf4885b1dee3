package engine

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nathoo/storyrules/engine/actions"
	"github.com/nathoo/storyrules/engine/narrate"
	"github.com/nathoo/storyrules/engine/rules"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
)

// testWorld builds bob, sue, a rope, a table and a take action whose
// callbacks append to a shared trace.
type testWorld struct {
	bob, sue, rope, table *things.Thing
	take, putOnto, wave   *actions.Action
	carrying              *things.Definition
	trace                 []string
	rec                   *narrate.Recorder
	eng                   *Engine
}

func newTestWorld() *testWorld {
	human := tags.Get("human")
	carryable := tags.Get("carryable")
	supporter := tags.Get("supporter")

	w := &testWorld{
		bob:   things.New("bob", human),
		sue:   things.New("sue", human),
		rope:  things.New("rope", carryable),
		table: things.New("table", supporter),
		rec:   &narrate.Recorder{},
	}
	w.carrying, _ = things.Define(human, "carrying", things.OneToMany, carryable, "carriedBy")

	w.take = actions.Define(human, "take",
		actions.WithObject(carryable),
		actions.WithCheck(func(s, o, _ *things.Thing) bool {
			w.trace = append(w.trace, "check")
			if err := things.Allowed(s, w.carrying, o); err != nil {
				w.eng.Log(err.Error())
				return false
			}
			return true
		}),
		actions.WithCarryOut(func(s, o, _ *things.Thing) {
			w.trace = append(w.trace, "carry out")
			things.Relate(s, w.carrying, o)
		}),
		actions.WithReport(func(s, o, _ *things.Thing) {
			w.trace = append(w.trace, "report")
			w.eng.Log(s.Name + " takes " + o.Name)
		}),
	)
	w.putOnto = actions.Define(human, "put onto",
		actions.WithObject(carryable),
		actions.WithSecondObject(supporter))
	w.wave = actions.Define(human, "wave")

	w.eng = New(rules.NewRulebook(), w.rec)
	return w
}

func (w *testWorld) tracer(name string, result bool) actions.Failable {
	return func(_, _, _ *things.Thing) bool {
		w.trace = append(w.trace, name)
		return result
	}
}

func TestExecute_FullPipeline(t *testing.T) {
	w := newTestWorld()
	rb := w.eng.Rules
	rb.Before(rules.Always, w.tracer("before", true))
	rb.Instead(rules.Always, w.tracer("instead", true))
	rb.After(rules.Always, func(_, _, _ *things.Thing) { w.trace = append(w.trace, "after") })

	got := w.eng.Attempt(w.bob, w.take, w.rope, nil)
	if diff := cmp.Diff(Outcome{OK: true, Phase: PhaseReport}, got); diff != "" {
		t.Errorf("Attempt() mismatch (-want +got):\n%s", diff)
	}

	want := []string{"before", "instead", "check", "carry out", "after", "report"}
	if diff := cmp.Diff(want, w.trace); diff != "" {
		t.Errorf("pipeline order mismatch (-want +got):\n%s", diff)
	}
	if _, ok := things.Find(w.bob, w.carrying.Type, nil); !ok {
		t.Error("bob should be carrying the rope")
	}
	if lines := w.rec.Lines(); len(lines) != 1 || lines[0] != "# Bob takes rope." {
		t.Errorf("narration = %q", lines)
	}
}

func TestExecute_BeforeVeto(t *testing.T) {
	w := newTestWorld()
	rb := w.eng.Rules
	rb.Before(rules.When(w.bob).Is(w.take).Build(), w.tracer("veto", false))
	rb.Before(rules.Always, w.tracer("second before", true))
	rb.Instead(rules.Always, w.tracer("instead", true))

	got := w.eng.Attempt(w.bob, w.take, w.rope, nil)
	if got.OK || got.Phase != PhaseBefore {
		t.Errorf("Attempt() = %+v, want veto at before", got)
	}
	if diff := cmp.Diff([]string{"veto"}, w.trace); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if len(w.rope.Relationships) != 0 {
		t.Error("a vetoed action must not change the world")
	}
}

func TestExecute_BeforeRuleNotApplicable(t *testing.T) {
	w := newTestWorld()
	w.eng.Rules.Before(rules.When(w.sue).Is(w.take).Build(), w.tracer("veto", false))

	if !w.eng.Execute(w.bob, w.take, w.rope, nil) {
		t.Error("rule about sue should not stop bob")
	}
	if len(w.trace) > 0 && w.trace[0] == "veto" {
		t.Error("inapplicable rule should not run")
	}
}

func TestExecute_InsteadVeto(t *testing.T) {
	w := newTestWorld()
	w.eng.Rules.Before(rules.Always, w.tracer("before", true))
	w.eng.Rules.Instead(rules.Always, w.tracer("instead", false))

	got := w.eng.Attempt(w.bob, w.take, w.rope, nil)
	if got.OK || got.Phase != PhaseInstead {
		t.Errorf("Attempt() = %+v, want veto at instead", got)
	}
	if diff := cmp.Diff([]string{"before", "instead"}, w.trace); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_AfterCannotVeto(t *testing.T) {
	w := newTestWorld()
	w.eng.Rules.After(rules.Always, func(_, _, _ *things.Thing) {
		w.trace = append(w.trace, "after")
	})

	if !w.eng.Execute(w.bob, w.take, w.rope, nil) {
		t.Fatal("expected success")
	}
	want := []string{"check", "carry out", "after", "report"}
	if diff := cmp.Diff(want, w.trace); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_StructuralMismatch(t *testing.T) {
	w := newTestWorld()

	got := w.eng.Attempt(w.bob, w.take, w.table, nil)
	if got.OK || got.Phase != PhaseStructure {
		t.Errorf("Attempt() = %+v, want failure at structure", got)
	}
	if len(w.trace) != 0 {
		t.Errorf("custom check and callbacks must not run, trace = %v", w.trace)
	}
	lines := w.rec.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "is not carryable (so bob cannot take it)") {
		t.Errorf("narration = %q", lines)
	}

	got = w.eng.Attempt(w.rope, w.take, w.rope, nil)
	if got.Phase != PhaseStructure {
		t.Errorf("rope is not human; Attempt() = %+v", got)
	}
}

func TestExecute_MissingSecondObject(t *testing.T) {
	w := newTestWorld()
	if w.eng.Execute(w.bob, w.putOnto, w.rope, nil) {
		t.Error("put onto needs a second object")
	}
	if !w.eng.Execute(w.bob, w.putOnto, w.rope, w.table) {
		t.Error("put onto with a table should pass default callbacks")
	}
}

func TestExecute_CheckFailure(t *testing.T) {
	w := newTestWorld()
	if !w.eng.Execute(w.bob, w.take, w.rope, nil) {
		t.Fatal("bob should take the rope")
	}
	w.trace = nil
	w.rec.Drain()

	got := w.eng.Attempt(w.sue, w.take, w.rope, nil)
	if got.OK || got.Phase != PhaseCheck {
		t.Errorf("Attempt() = %+v, want failure at check", got)
	}
	if diff := cmp.Diff([]string{"check"}, w.trace); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	want := []string{"# Bob is already carrying rope (so sue cannot be carrying it)."}
	if diff := cmp.Diff(want, w.rec.Lines()); diff != "" {
		t.Errorf("narration mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_DefaultCallbacks(t *testing.T) {
	w := newTestWorld()
	if !w.eng.Execute(w.bob, w.wave, nil, nil) {
		t.Fatal("wave has no participants and should succeed")
	}
	want := []string{
		"# Checking: action wave (subject: bob, object: none, second object: none).",
		"# Carrying out: action wave (subject: bob, object: none, second object: none).",
		"# Reporting: action wave (subject: bob, object: none, second object: none).",
	}
	if diff := cmp.Diff(want, w.rec.Lines()); diff != "" {
		t.Errorf("narration mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_NoRulesConsulted(t *testing.T) {
	w := newTestWorld()
	w.eng.Rules.Before(rules.Always, w.tracer("before", false))

	if !w.eng.Check(w.take, w.bob, w.rope, nil) {
		t.Error("Check should ignore the rulebook")
	}
	if diff := cmp.Diff([]string{"check"}, w.trace); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	if len(w.rope.Relationships) != 0 {
		t.Error("Check must not carry anything out")
	}
}

func TestCheckTheoretical(t *testing.T) {
	w := newTestWorld()
	if !w.eng.CheckTheoretical(w.putOnto, w.bob, w.rope) {
		t.Error("Anything should stand in for any supporter")
	}
	if w.eng.CheckTheoretical(w.putOnto, w.bob, w.table) {
		t.Error("table is not carryable")
	}
	if !w.eng.CheckTheoretical(w.putOnto, w.bob, things.Anything) {
		t.Error("Anything satisfies the object tag too")
	}
}

func TestEngine_NilSinkUsesDefault(t *testing.T) {
	rec := &narrate.Recorder{}
	narrate.Set(rec)
	defer narrate.Reset()

	w := newTestWorld()
	eng := New(nil, nil)
	eng.Execute(w.bob, w.wave, nil, nil)
	if len(rec.Lines()) != 3 {
		t.Errorf("default sink got %d lines, want 3", len(rec.Lines()))
	}
}

func TestPhase_String(t *testing.T) {
	if PhaseCarryOut.String() != "carry out" {
		t.Errorf("PhaseCarryOut = %q", PhaseCarryOut)
	}
	if Phase(0).String() != "Phase(0)" {
		t.Errorf("Phase(0) = %q", Phase(0))
	}
}
