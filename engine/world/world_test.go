package world

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nathoo/storyrules/engine"
	"github.com/nathoo/storyrules/engine/extension"
	"github.com/nathoo/storyrules/engine/narrate"
	"github.com/nathoo/storyrules/engine/resolve"
	"github.com/nathoo/storyrules/engine/things"
	"github.com/nathoo/storyrules/extensions/physical"
	"github.com/nathoo/storyrules/types"
)

func testWorld(t *testing.T) (*World, *narrate.Recorder) {
	t.Helper()
	rec := &narrate.Recorder{}
	user := things.New("user", physical.Character, physical.Visible, physical.Touchable)
	w := New(rec, user)
	w.Offer(physical.New(w.Sink()))
	if err := w.Enable(physical.Name); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	w.AddThing("rope", physical.Carryable, physical.Touchable, physical.Long)
	w.AddThing("table", physical.Supporter, physical.Touchable)
	w.AddThing("box", physical.Container, physical.Touchable)
	return w, rec
}

func TestAddThing_Duplicate(t *testing.T) {
	w, rec := testWorld(t)
	if _, ok := w.AddThing("rope"); ok {
		t.Error("second rope should be rejected")
	}
	want := []string{"# Did not add rope since there already was one in the world."}
	if diff := cmp.Diff(want, rec.Lines()); diff != "" {
		t.Errorf("narration mismatch (-want +got):\n%s", diff)
	}
	if len(w.Things) != 4 {
		t.Errorf("Things = %d, want 4", len(w.Things))
	}
}

func TestViableActions(t *testing.T) {
	w, rec := testWorld(t)

	got, err := w.ViableActions("rope")
	if err != nil {
		t.Fatalf("ViableActions: %v", err)
	}
	want := []types.ActionOption{{Name: "take"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ViableActions mismatch (-want +got):\n%s", diff)
	}
	if len(rec.Lines()) != 0 {
		t.Errorf("probing should be silent, got %q", rec.Lines())
	}

	if _, err := w.Attempt("take", "rope", ""); err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	got, _ = w.ViableActions("rope")
	want = []types.ActionOption{
		{Name: "drop"},
		{Name: "put onto", ExpectsSecondThing: true},
		{Name: "put into", ExpectsSecondThing: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ViableActions after take mismatch (-want +got):\n%s", diff)
	}

	var nf *resolve.NotFoundError
	if _, err := w.ViableActions("sword"); !errors.As(err, &nf) {
		t.Errorf("unknown thing error = %v", err)
	}
}

func TestViableSecondThings(t *testing.T) {
	w, _ := testWorld(t)
	if _, err := w.Attempt("take", "rope", ""); err != nil {
		t.Fatal(err)
	}

	got, err := w.ViableSecondThings("rope", "put onto")
	if err != nil {
		t.Fatalf("ViableSecondThings: %v", err)
	}
	if diff := cmp.Diff([]string{"table"}, got); diff != "" {
		t.Errorf("put onto targets mismatch (-want +got):\n%s", diff)
	}

	got, _ = w.ViableSecondThings("rope", "put into")
	if diff := cmp.Diff([]string{"box"}, got); diff != "" {
		t.Errorf("put into targets mismatch (-want +got):\n%s", diff)
	}

	if _, err := w.ViableSecondThings("rope", "juggle"); !errors.Is(err, extension.ErrUnknownAction) {
		t.Errorf("unknown action error = %v", err)
	}
}

func TestAttemptAndInventory(t *testing.T) {
	w, _ := testWorld(t)

	out, err := w.Attempt("take", "rope", "")
	if err != nil || !out.OK {
		t.Fatalf("Attempt = %+v, %v", out, err)
	}
	if diff := cmp.Diff([]string{"rope"}, w.Inventory()); diff != "" {
		t.Errorf("Inventory mismatch (-want +got):\n%s", diff)
	}

	out, err = w.Attempt("put onto", "rope", "table")
	if err != nil || !out.OK {
		t.Fatalf("put onto = %+v, %v", out, err)
	}
	if len(w.Inventory()) != 0 {
		t.Errorf("Inventory = %v, want empty", w.Inventory())
	}

	if _, err := w.Attempt("put onto", "rope", "sofa"); err == nil {
		t.Error("unknown second thing should be an error")
	}
	if _, err := w.Attempt("fly", "rope", ""); !errors.Is(err, extension.ErrUnknownAction) {
		t.Errorf("unknown action error = %v", err)
	}
}

func TestAttempt_Vetoed(t *testing.T) {
	w, _ := testWorld(t)
	out, err := w.Attempt("take", "table", "")
	if err != nil {
		t.Fatalf("a veto is not an error: %v", err)
	}
	if out.OK || out.Phase != engine.PhaseCheck {
		t.Errorf("Attempt = %+v, want failure at check", out)
	}
}

func TestEnableDisable(t *testing.T) {
	w, _ := testWorld(t)
	if _, err := w.Attempt("take", "rope", ""); err != nil {
		t.Fatal(err)
	}

	if err := w.Disable(physical.Name); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if w.Index.Loaded(physical.Name) {
		t.Error("extension should be unloaded")
	}
	rope, _ := w.Thing("rope")
	if len(rope.Relationships) != 0 || len(w.User.Relationships) != 0 {
		t.Error("carrying records should be gone")
	}
	if w.Inventory() != nil {
		t.Error("no inventory without carriedBy")
	}
	if _, err := w.Attempt("take", "rope", ""); !errors.Is(err, extension.ErrUnknownAction) {
		t.Errorf("take after disable = %v", err)
	}

	if err := w.Enable(physical.Name); err != nil {
		t.Fatalf("re-Enable: %v", err)
	}
	if err := w.Enable(physical.Name); err != nil {
		t.Errorf("enabling twice should be a no-op: %v", err)
	}
	if err := w.Enable("Magic"); !errors.Is(err, ErrUnknownExtension) {
		t.Errorf("Enable(Magic) = %v", err)
	}
	if err := w.Disable("Magic"); !errors.Is(err, ErrUnknownExtension) {
		t.Errorf("Disable(Magic) = %v", err)
	}
}

func TestTurn(t *testing.T) {
	run := func(seed int64) []types.TurnRecord {
		w, _ := testWorld(t)
		w.AddThing("bob", physical.Character)
		w.AddThing("sue", physical.Character)
		w.AddThing("candle", physical.Carryable, physical.Touchable)
		rng := engine.NewRNG(seed)
		var all []types.TurnRecord
		for i := 0; i < 3; i++ {
			all = append(all, w.Turn(rng)...)
		}
		if w.TurnCount() != 3 {
			t.Errorf("TurnCount = %d, want 3", w.TurnCount())
		}
		return all
	}

	first := run(42)
	if len(first) != 6 {
		t.Fatalf("got %d records, want 6 (two actors, three turns)", len(first))
	}
	for _, r := range first {
		if r.Actor == "user" {
			t.Error("the user never acts on a world turn")
		}
		if r.Action != "" && !r.OK {
			t.Errorf("chosen options pass their checks, got failed %+v", r)
		}
	}
	if diff := cmp.Diff(first, run(42)); diff != "" {
		t.Errorf("same seed should replay identically (-first +second):\n%s", diff)
	}
}

func TestTurn_Idle(t *testing.T) {
	w, _ := testWorld(t)
	w.AddThing("statue", physical.Character)
	if err := w.Disable(physical.Name); err != nil {
		t.Fatal(err)
	}
	got := w.Turn(engine.NewRNG(1))
	want := []types.TurnRecord{{Actor: "statue"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Turn mismatch (-want +got):\n%s", diff)
	}
}
