package loader

import (
	"github.com/nathoo/storyrules/engine/narrate"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
	"github.com/nathoo/storyrules/types"
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua declarations and runtime helpers as globals.
func registerAPI(L *lua.LState, coll *collector, story *Story) {
	registerDeclarations(L, coll)
	registerRuntimeHelpers(L, story)
}

func registerDeclarations(L *lua.LState, coll *collector) {
	// Game { title = "...", enable = { "PhysicalWorld" } }
	L.SetGlobal("Game", L.NewFunction(func(L *lua.LState) int {
		coll.game = L.CheckTable(1)
		return 0
	}))

	// Tag("carryable", "portable")
	L.SetGlobal("Tag", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		coll.tags = append(coll.tags, types.TagDef{Name: name, Description: L.OptString(2, "")})
		return 0
	}))

	// Relationship { subject = "character", name = "wearing", order = "one_to_many",
	//                object = "wearable", reverse = "wornBy" }
	L.SetGlobal("Relationship", L.NewFunction(func(L *lua.LState) int {
		coll.relationships = append(coll.relationships, L.CheckTable(1))
		return 0
	}))

	// Action "name" { ... } is curried: Action("name") returns a function that takes a table.
	L.SetGlobal("Action", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.actions = append(coll.actions, rawAction{name: name, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// Thing "name" { "tag", ... }, curried the same way.
	L.SetGlobal("Thing", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.things = append(coll.things, types.ThingDef{Name: name, Tags: stringList(L.CheckTable(1))})
			return 0
		}))
		return 1
	}))

	// Relate("bob", "carrying", "rope")
	L.SetGlobal("Relate", L.NewFunction(func(L *lua.LState) int {
		coll.relations = append(coll.relations, types.RelationDef{
			Subject:      L.CheckString(1),
			Relationship: L.CheckString(2),
			Object:       L.CheckString(3),
		})
		return 0
	}))

	// Before / Instead / After { subject = ..., action = ..., run = function ... end }
	for _, phase := range []string{phaseBefore, phaseInstead, phaseAfter} {
		phase := phase // per-iteration copy; go.mod targets go1.21 loop semantics
		L.SetGlobal(phase, L.NewFunction(func(L *lua.LState) int {
			coll.rules = append(coll.rules, rawRule{
				phase: phase,
				table: L.CheckTable(1),
				order: coll.nextSourceOrder(),
			})
			return 0
		}))
	}
}

// registerRuntimeHelpers installs the functions story callbacks use to
// inspect and change the world. Unknown names raise Lua errors, which the
// calling rule or action reports and treats as a veto.
func registerRuntimeHelpers(L *lua.LState, story *Story) {
	// Say("text") writes story text.
	L.SetGlobal("Say", L.NewFunction(func(L *lua.LState) int {
		narrate.Say(story.World.Sink(), L.CheckString(1))
		return 0
	}))

	// Has("rope", "flammable") → bool
	L.SetGlobal("Has", L.NewFunction(func(L *lua.LState) int {
		t := story.checkThing(L, 1)
		tag, ok := tags.Lookup(L.CheckString(2))
		L.Push(lua.LBool(ok && t.Has(tag)))
		return 1
	}))

	// Make("bob", "carrying", "rope") → bool; violations are narrated.
	L.SetGlobal("Make", L.NewFunction(func(L *lua.LState) int {
		subject := story.checkWorldThing(L, 1)
		def := story.checkRelationship(L, 2)
		object := story.checkWorldThing(L, 3)
		if _, err := things.Make(subject, def, object); err != nil {
			story.World.Log(err.Error())
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LTrue)
		return 1
	}))

	// Remove("bob", "carrying"[, "rope"])
	L.SetGlobal("Remove", L.NewFunction(func(L *lua.LState) int {
		subject := story.checkWorldThing(L, 1)
		def := story.checkRelationship(L, 2)
		var object *things.Thing
		if L.Get(3) != lua.LNil {
			object = story.checkWorldThing(L, 3)
		}
		things.Remove(subject, def, object)
		return 0
	}))

	// Find("bob", "carrying") → name of the first related thing, or nil.
	L.SetGlobal("Find", L.NewFunction(func(L *lua.LState) int {
		subject := story.checkThing(L, 1)
		def := story.checkRelationship(L, 2)
		r, ok := things.Find(subject, def.Type, nil)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(r.Other.Name))
		return 1
	}))

	// Execute("bob", "take", "rope"[, "table"]) → bool
	L.SetGlobal("Execute", L.NewFunction(func(L *lua.LState) int {
		subject := story.checkWorldThing(L, 1)
		action, err := story.World.Index.Action(L.CheckString(2))
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		var object, second *things.Thing
		if L.Get(3) != lua.LNil {
			object = story.checkWorldThing(L, 3)
		}
		if L.Get(4) != lua.LNil {
			second = story.checkWorldThing(L, 4)
		}
		L.Push(lua.LBool(story.World.Engine.Execute(subject, action, object, second)))
		return 1
	}))

	// Describe("rope") → "rope is carryable and something"
	L.SetGlobal("Describe", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(things.Describe(story.checkThing(L, 1))))
		return 1
	}))
}

// checkThing resolves argument n to a thing, raising a Lua error if it is
// unknown. The wildcard thing is accepted by name.
func (s *Story) checkThing(L *lua.LState, n int) *things.Thing {
	name := L.CheckString(n)
	if name == things.Anything.Name {
		return things.Anything
	}
	t, err := s.World.Thing(name)
	if err != nil {
		L.RaiseError("%v", err)
		return nil
	}
	return t
}

// checkWorldThing is checkThing for helpers that change relationships. The
// wildcard is shared by every world, so it is refused.
func (s *Story) checkWorldThing(L *lua.LState, n int) *things.Thing {
	t := s.checkThing(L, n)
	if t == things.Anything {
		L.RaiseError("%s cannot be changed by a story", things.Anything.Name)
		return nil
	}
	return t
}

func (s *Story) checkRelationship(L *lua.LState, n int) *things.Definition {
	def, err := s.World.Index.Relationship(L.CheckString(n))
	if err != nil {
		L.RaiseError("%v", err)
		return nil
	}
	return def
}
