// Package world is the query and command surface over one simulation: the
// things in it, the user who acts, the extensions that may be switched on,
// and the turn scheduler that lets every other character act.
package world

import (
	"errors"
	"fmt"

	"github.com/nathoo/storyrules/engine"
	"github.com/nathoo/storyrules/engine/actions"
	"github.com/nathoo/storyrules/engine/extension"
	"github.com/nathoo/storyrules/engine/narrate"
	"github.com/nathoo/storyrules/engine/resolve"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
	"github.com/nathoo/storyrules/types"
)

// ErrUnknownExtension is returned by Enable and Disable for names that were
// never offered.
var ErrUnknownExtension = errors.New("unknown extension")

// World owns the thing population. It is not safe for concurrent use.
type World struct {
	Things []*things.Thing
	User   *things.Thing
	Index  *extension.Index
	Engine *engine.Engine

	gate      *narrate.Gate
	available []*extension.Extension
	turn      int
}

// New creates a world narrating through sink (the process-wide sink when
// nil). The user is added as the first thing.
func New(sink narrate.Sink, user *things.Thing) *World {
	gate := narrate.NewGate(sink)
	w := &World{
		User:   user,
		Index:  extension.NewIndex(),
		Engine: engine.New(nil, gate),
		gate:   gate,
	}
	if user != nil {
		w.Things = append(w.Things, user)
	}
	return w
}

// Sink is the world's narration sink. Extensions and story callbacks should
// narrate through it so probing queries can silence them.
func (w *World) Sink() narrate.Sink {
	return w.gate
}

// Log narrates through the world's sink.
func (w *World) Log(message string) {
	w.gate.Log(message, "")
}

// Add inserts an existing thing. Names are unique within a world.
func (w *World) Add(t *things.Thing) bool {
	for _, existing := range w.Things {
		if existing.Name == t.Name {
			w.Log(fmt.Sprintf("did not add %s since there already was one in the world", t.Name))
			return false
		}
	}
	w.Things = append(w.Things, t)
	return true
}

// AddThing creates and inserts a new thing.
func (w *World) AddThing(name string, kinds ...*tags.Tag) (*things.Thing, bool) {
	t := things.New(name, kinds...)
	if !w.Add(t) {
		return nil, false
	}
	return t, true
}

// Thing finds a thing by name.
func (w *World) Thing(name string) (*things.Thing, error) {
	return resolve.Thing(w.Things, name)
}

// ViableActions lists the actions the user could theoretically perform on
// the named thing, in registration order.
func (w *World) ViableActions(thingName string) ([]types.ActionOption, error) {
	first, err := w.Thing(thingName)
	if err != nil {
		return nil, err
	}
	defer w.gate.Mute()()

	var out []types.ActionOption
	for _, a := range w.Index.Actions() {
		if w.Engine.CheckTheoretical(a, w.User, first) {
			out = append(out, types.ActionOption{Name: a.Name, ExpectsSecondThing: a.ExpectsSecondObject()})
		}
	}
	return out, nil
}

// ViableSecondThings lists the things that could complete the named action
// on the named thing.
func (w *World) ViableSecondThings(thingName, actionName string) ([]string, error) {
	action, err := w.Index.Action(actionName)
	if err != nil {
		return nil, err
	}
	first, err := w.Thing(thingName)
	if err != nil {
		return nil, err
	}
	defer w.gate.Mute()()

	var out []string
	for _, second := range w.Things {
		if second == first {
			continue
		}
		if w.Engine.Check(action, w.User, first, second) {
			out = append(out, second.Name)
		}
	}
	return out, nil
}

// Attempt runs the named action for the user. Unknown names are errors;
// a vetoed action is not.
func (w *World) Attempt(actionName, firstName, secondName string) (engine.Outcome, error) {
	action, err := w.Index.Action(actionName)
	if err != nil {
		return engine.Outcome{}, err
	}

	var first, second *things.Thing
	if firstName != "" {
		if first, err = w.Thing(firstName); err != nil {
			return engine.Outcome{}, fmt.Errorf("first thing: %w", err)
		}
	}
	if action.ExpectsSecondObject() {
		if second, err = w.Thing(secondName); err != nil {
			return engine.Outcome{}, fmt.Errorf("second thing: %w", err)
		}
	}

	return w.Engine.Attempt(w.User, action, first, second), nil
}

// Inventory lists the things the user is carrying. It is empty when no
// extension defines carriedBy.
func (w *World) Inventory() []string {
	carriedBy, err := w.Index.Relationship("carriedBy")
	if err != nil {
		return nil
	}
	var out []string
	for _, t := range w.Things {
		if _, ok := things.Find(t, carriedBy.Type, &things.ObjectContext{Object: w.User}); ok {
			out = append(out, t.Name)
		}
	}
	return out
}

// Offer makes an extension available to Enable without registering it.
func (w *World) Offer(ext *extension.Extension) {
	for _, e := range w.available {
		if e.Name == ext.Name {
			return
		}
	}
	w.available = append(w.available, ext)
}

// Available returns the offered extensions in the order they were offered.
func (w *World) Available() []*extension.Extension {
	return append([]*extension.Extension(nil), w.available...)
}

// Enable registers an offered extension. Enabling twice is a no-op.
func (w *World) Enable(name string) error {
	ext := w.offered(name)
	if ext == nil {
		return fmt.Errorf("%w: %s", ErrUnknownExtension, name)
	}
	if w.Index.Loaded(name) {
		return nil
	}
	return w.Index.Register(ext)
}

// Disable unregisters an extension and removes every relationship of its
// types from the world.
func (w *World) Disable(name string) error {
	if w.offered(name) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownExtension, name)
	}
	if !w.Index.Loaded(name) {
		return nil
	}
	return w.Index.Unregister(name, w.Things)
}

func (w *World) offered(name string) *extension.Extension {
	for _, e := range w.available {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// TurnCount returns the number of completed world turns.
func (w *World) TurnCount() int {
	return w.turn
}

// SetTurnCount restores the turn counter after loading a save.
func (w *World) SetTurnCount(n int) {
	w.turn = n
}

// Turn lets every character other than the user attempt one randomly
// chosen viable action. Actors run one at a time in world order, so each
// sees the effects of the ones before it.
func (w *World) Turn(rng *engine.RNG) []types.TurnRecord {
	character := tags.Get("character")

	var records []types.TurnRecord
	for _, actor := range append([]*things.Thing(nil), w.Things...) {
		if actor == w.User || !actor.Has(character) {
			continue
		}
		options := w.options(actor)
		if len(options) == 0 {
			records = append(records, types.TurnRecord{Actor: actor.Name})
			continue
		}
		o := options[rng.Intn(len(options))]
		out := w.Engine.Attempt(actor, o.action, o.object, o.second)
		records = append(records, types.TurnRecord{
			Actor:  actor.Name,
			Action: o.action.Name,
			Object: nameOf(o.object),
			Second: nameOf(o.second),
			OK:     out.OK,
		})
	}
	w.turn++
	return records
}

type option struct {
	action         *actions.Action
	object, second *things.Thing
}

// options enumerates every (action, object, second) the actor passes the
// checks for, silently.
func (w *World) options(actor *things.Thing) []option {
	defer w.gate.Mute()()

	var out []option
	for _, a := range w.Index.Actions() {
		if a.ObjectTag == nil {
			if w.Engine.Check(a, actor, nil, nil) {
				out = append(out, option{action: a})
			}
			continue
		}
		for _, obj := range w.Things {
			if obj == actor || !w.Engine.CheckTheoretical(a, actor, obj) {
				continue
			}
			if !a.ExpectsSecondObject() {
				out = append(out, option{action: a, object: obj})
				continue
			}
			for _, second := range w.Things {
				if second == obj || second == actor {
					continue
				}
				if w.Engine.Check(a, actor, obj, second) {
					out = append(out, option{action: a, object: obj, second: second})
				}
			}
		}
	}
	return out
}

func nameOf(t *things.Thing) string {
	if t == nil {
		return ""
	}
	return t.Name
}
