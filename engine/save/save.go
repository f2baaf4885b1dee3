// Package save implements JSON serialization and deserialization of a
// world's thing graph.
package save

import (
	"encoding/json"
	"fmt"

	"github.com/nathoo/storyrules/engine"
	"github.com/nathoo/storyrules/engine/extension"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
	"github.com/nathoo/storyrules/engine/world"
	"github.com/nathoo/storyrules/types"
)

// SaveData is the JSON-serializable save format. Relationship records
// refer to other things by ID, so the graph's cycles need no special
// encoding.
type SaveData struct {
	Version     string      `json:"version"`
	Game        string      `json:"game"`
	Turn        int         `json:"turn"`
	User        string      `json:"user"`
	Things      []ThingData `json:"things"`
	Extensions  []string    `json:"extensions"`
	RNGSeed     int64       `json:"rng_seed"`
	RNGPosition int64       `json:"rng_position"`
	CommandLog  []string    `json:"command_log"`
}

// ThingData is one saved thing.
type ThingData struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Kinds         []string           `json:"kinds"`
	Relationships []RelationshipData `json:"relationships"`
}

// RelationshipData is one directed record; Other is a thing ID.
type RelationshipData struct {
	Type  string `json:"type"`
	Other string `json:"other"`
}

// Save serializes the world to JSON bytes. rng may be nil.
func Save(w *world.World, game types.GameDef, rng *engine.RNG, commandLog []string) ([]byte, error) {
	data := SaveData{
		Version:    game.Version,
		Game:       game.Title,
		Turn:       w.TurnCount(),
		CommandLog: commandLog,
	}
	if w.User != nil {
		data.User = w.User.ID
	}
	if rng != nil {
		data.RNGSeed = rng.Seed()
		data.RNGPosition = rng.Position()
	}
	for _, ext := range w.Index.Extensions() {
		data.Extensions = append(data.Extensions, ext.Name)
	}
	for _, t := range w.Things {
		td := ThingData{
			ID:    t.ID,
			Name:  t.Name,
			Kinds: t.Kinds.Names(),
		}
		for _, r := range t.Relationships {
			td.Relationships = append(td.Relationships, RelationshipData{Type: r.Type.Name, Other: r.Other.ID})
		}
		data.Things = append(data.Things, td)
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	// Ensure slices are never nil after load.
	if sd.Things == nil {
		sd.Things = []ThingData{}
	}
	if sd.Extensions == nil {
		sd.Extensions = []string{}
	}
	if sd.CommandLog == nil {
		sd.CommandLog = []string{}
	}
	return &sd, nil
}

// Apply rebuilds the world's thing graph from sd. Things already in the
// world are matched by name and updated in place, so rules that refer to
// them keep working; unmatched saved things are created. Nothing is
// changed if the save refers to an unknown thing or extension, or if an
// extension it enables conflicts with one already loaded.
func Apply(w *world.World, sd *SaveData) error {
	byID := make(map[string]ThingData, len(sd.Things))
	for _, td := range sd.Things {
		byID[td.ID] = td
	}
	for _, td := range sd.Things {
		for _, r := range td.Relationships {
			if _, ok := byID[r.Other]; !ok {
				return fmt.Errorf("thing %s: relationship %s refers to unknown thing %s", td.Name, r.Type, r.Other)
			}
		}
	}
	if _, ok := byID[sd.User]; !ok && sd.User != "" {
		return fmt.Errorf("unknown user thing %s", sd.User)
	}
	offered := make(map[string]bool)
	for _, ext := range w.Available() {
		offered[ext.Name] = true
	}
	for _, name := range sd.Extensions {
		// Story extensions are always loaded and never offered.
		if !offered[name] && !w.Index.Loaded(name) {
			return fmt.Errorf("save enables unknown extension %s", name)
		}
	}

	if err := restoreExtensions(w, sd.Extensions); err != nil {
		return err
	}

	existing := make(map[string]*things.Thing, len(w.Things))
	for _, t := range w.Things {
		existing[t.Name] = t
	}

	restored := make(map[string]*things.Thing, len(sd.Things))
	population := make([]*things.Thing, 0, len(sd.Things))
	for _, td := range sd.Things {
		kinds := make([]*tags.Tag, len(td.Kinds))
		for i, k := range td.Kinds {
			kinds[i] = tags.Get(k)
		}
		t, ok := existing[td.Name]
		if ok {
			fresh := things.Restore(td.ID, td.Name, kinds...)
			t.ID = fresh.ID
			t.Kinds = fresh.Kinds
			t.Relationships = nil
		} else {
			t = things.Restore(td.ID, td.Name, kinds...)
		}
		restored[td.ID] = t
		population = append(population, t)
	}

	for _, td := range sd.Things {
		t := restored[td.ID]
		for _, r := range td.Relationships {
			t.Relationships = append(t.Relationships, things.Relationship{
				Type:  tags.Get(r.Type),
				Other: restored[r.Other],
			})
		}
	}

	w.Things = population
	if sd.User != "" {
		w.User = restored[sd.User]
	}
	w.SetTurnCount(sd.Turn)
	return nil
}

// restoreExtensions makes the offered extensions match the save. The final
// set is registered in a scratch index first, so a conflict is reported
// before anything is disabled.
func restoreExtensions(w *world.World, names []string) error {
	enabled := make(map[string]bool, len(names))
	for _, name := range names {
		enabled[name] = true
	}
	offered := make(map[string]bool)
	for _, ext := range w.Available() {
		offered[ext.Name] = true
	}

	scratch := extension.NewIndex()
	for _, ext := range w.Index.Extensions() {
		if offered[ext.Name] && !enabled[ext.Name] {
			continue
		}
		if err := scratch.Register(ext); err != nil {
			return fmt.Errorf("restoring extension %s: %w", ext.Name, err)
		}
	}
	for _, ext := range w.Available() {
		if !enabled[ext.Name] || w.Index.Loaded(ext.Name) {
			continue
		}
		if err := scratch.Register(ext); err != nil {
			return fmt.Errorf("restoring extension %s: %w", ext.Name, err)
		}
	}

	// Disable first so enabling an extension never clashes with one the
	// save turns off.
	for _, ext := range w.Available() {
		if !enabled[ext.Name] {
			if err := w.Disable(ext.Name); err != nil {
				return fmt.Errorf("restoring extension %s: %w", ext.Name, err)
			}
		}
	}
	for _, ext := range w.Available() {
		if enabled[ext.Name] {
			if err := w.Enable(ext.Name); err != nil {
				return fmt.Errorf("restoring extension %s: %w", ext.Name, err)
			}
		}
	}
	return nil
}
