package save

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nathoo/storyrules/engine"
	"github.com/nathoo/storyrules/engine/actions"
	"github.com/nathoo/storyrules/engine/extension"
	"github.com/nathoo/storyrules/engine/narrate"
	"github.com/nathoo/storyrules/engine/things"
	"github.com/nathoo/storyrules/engine/world"
	"github.com/nathoo/storyrules/extensions/physical"
	"github.com/nathoo/storyrules/types"
)

var testGame = types.GameDef{Title: "Test Story", Version: "1.0"}

func testWorld(t *testing.T) *world.World {
	t.Helper()
	user := things.New("user", physical.Character, physical.Touchable)
	w := world.New(narrate.Nop(), user)
	w.Offer(physical.New(w.Sink()))
	if err := w.Enable(physical.Name); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	w.AddThing("rope", physical.Carryable, physical.Touchable)
	w.AddThing("table", physical.Supporter, physical.Touchable)
	w.AddThing("candle", physical.Carryable, physical.Touchable, physical.Flammable)
	return w
}

func mustAttempt(t *testing.T, w *world.World, action, first, second string) {
	t.Helper()
	out, err := w.Attempt(action, first, second)
	if err != nil || !out.OK {
		t.Fatalf("Attempt(%s, %s, %s) = %+v, %v", action, first, second, out, err)
	}
}

// snapshot renders the graph by name for comparison across worlds.
func snapshot(w *world.World) map[string][]string {
	out := map[string][]string{}
	for _, t := range w.Things {
		var rels []string
		for _, r := range t.Relationships {
			rels = append(rels, r.Type.Name+" "+r.Other.Name)
		}
		out[t.Name] = append([]string{strings.Join(t.Kinds.Names(), ",")}, rels...)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	w := testWorld(t)
	mustAttempt(t, w, "take", "rope", "")
	mustAttempt(t, w, "take", "candle", "")
	mustAttempt(t, w, "put onto", "candle", "table")
	w.SetTurnCount(7)

	rng := engine.NewRNG(42)
	rng.Intn(10)
	rng.Intn(10)

	data, err := Save(w, testGame, rng, []string{"do take, rope"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	sd, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if sd.Game != "Test Story" || sd.Turn != 7 || sd.RNGSeed != 42 || sd.RNGPosition != rng.Position() {
		t.Errorf("metadata = %+v", sd)
	}

	// Apply onto a fresh world from the same story.
	w2 := testWorld(t)
	table2, _ := w2.Thing("table")
	if err := Apply(w2, sd); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if diff := cmp.Diff(snapshot(w), snapshot(w2)); diff != "" {
		t.Errorf("graph mismatch after round trip (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"rope"}, w2.Inventory()); diff != "" {
		t.Errorf("Inventory mismatch (-want +got):\n%s", diff)
	}
	if w2.TurnCount() != 7 {
		t.Errorf("TurnCount = %d, want 7", w2.TurnCount())
	}
	if w2.User.ID != w.User.ID {
		t.Error("user ID should be restored")
	}

	// Existing things are updated in place.
	table3, _ := w2.Thing("table")
	if table2 != table3 {
		t.Error("table should keep its identity")
	}

	// Mirrors resolve to the same restored pointers.
	rope, _ := w2.Thing("rope")
	r, ok := things.Find(rope, physical.CarriedBy.Type, nil)
	if !ok || r.Other != w2.User {
		t.Error("rope should be carried by the restored user")
	}
}

func TestApply_NewThingsCreated(t *testing.T) {
	w := testWorld(t)
	w.AddThing("lamp", physical.Carryable, physical.Touchable)
	mustAttempt(t, w, "take", "lamp", "")

	data, err := Save(w, testGame, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	sd, _ := Load(data)

	w2 := testWorld(t)
	if err := Apply(w2, sd); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := w2.Thing("lamp"); err != nil {
		t.Errorf("lamp should be recreated: %v", err)
	}
	if diff := cmp.Diff([]string{"lamp"}, w2.Inventory()); diff != "" {
		t.Errorf("Inventory mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_DisabledExtension(t *testing.T) {
	w := testWorld(t)
	if err := w.Disable(physical.Name); err != nil {
		t.Fatal(err)
	}
	data, _ := Save(w, testGame, nil, nil)
	sd, _ := Load(data)

	w2 := testWorld(t)
	if err := Apply(w2, sd); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if w2.Index.Loaded(physical.Name) {
		t.Error("extension should be disabled after restore")
	}
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name string
		sd   SaveData
		want string
	}{
		{
			name: "dangling reference",
			sd: SaveData{Things: []ThingData{
				{ID: "a", Name: "rope", Relationships: []RelationshipData{{Type: "carriedBy", Other: "ghost"}}},
			}},
			want: "unknown thing ghost",
		},
		{
			name: "unknown user",
			sd:   SaveData{User: "nobody"},
			want: "unknown user",
		},
		{
			name: "unknown extension",
			sd:   SaveData{Extensions: []string{"Magic"}},
			want: "unknown extension Magic",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testWorld(t)
			before := snapshot(w)
			err := Apply(w, &tt.sd)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Apply() error = %v, want containing %q", err, tt.want)
			}
			if diff := cmp.Diff(before, snapshot(w)); diff != "" {
				t.Errorf("a rejected save must not change the world (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApply_ExtensionConflictChangesNothing(t *testing.T) {
	w := testWorld(t)
	mustAttempt(t, w, "take", "rope", "")
	w.Offer(&extension.Extension{
		Name:    "Whistling",
		Actions: []*actions.Action{actions.Define(physical.Character, "whistle")},
	})
	w.Offer(&extension.Extension{
		Name:    "Rival",
		Actions: []*actions.Action{actions.Define(physical.Character, "take")},
	})
	before := snapshot(w)

	sd := &SaveData{Extensions: []string{physical.Name, "Whistling", "Rival"}}
	err := Apply(w, sd)
	if err == nil || !strings.Contains(err.Error(), "restoring extension Rival") {
		t.Fatalf("Apply() error = %v, want a Rival conflict", err)
	}
	if w.Index.Loaded("Whistling") {
		t.Error("Whistling should not be enabled by a rejected save")
	}
	if !w.Index.Loaded(physical.Name) {
		t.Error("PhysicalWorld should stay enabled")
	}
	if diff := cmp.Diff(before, snapshot(w)); diff != "" {
		t.Errorf("a rejected save must not change the world (-want +got):\n%s", diff)
	}
}

func TestApply_SwapsConflictingExtensions(t *testing.T) {
	w := testWorld(t)
	w.Offer(&extension.Extension{
		Name:    "Rival",
		Actions: []*actions.Action{actions.Define(physical.Character, "take")},
	})
	data, err := Save(w, testGame, engine.NewRNG(1), nil)
	if err != nil {
		t.Fatal(err)
	}
	sd, err := Load(data)
	if err != nil {
		t.Fatal(err)
	}
	sd.Extensions = []string{"Rival"}

	if err := Apply(w, sd); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if w.Index.Loaded(physical.Name) || !w.Index.Loaded("Rival") {
		t.Errorf("loaded extensions = %v, want only Rival", w.Index.Extensions())
	}
}

func TestSaveFormat(t *testing.T) {
	w := testWorld(t)
	mustAttempt(t, w, "take", "rope", "")
	data, err := Save(w, testGame, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, field := range []string{"version", "game", "turn", "user", "things", "extensions", "rng_seed", "rng_position", "command_log"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("missing field %q", field)
		}
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	if _, err := Load([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestLoad_NilSlices(t *testing.T) {
	sd, err := Load([]byte(`{"version":"1.0"}`))
	if err != nil {
		t.Fatal(err)
	}
	if sd.Things == nil || sd.Extensions == nil || sd.CommandLog == nil {
		t.Error("slices should be non-nil after Load")
	}
}
