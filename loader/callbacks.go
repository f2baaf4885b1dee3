package loader

import (
	"fmt"

	"github.com/nathoo/storyrules/engine/actions"
	"github.com/nathoo/storyrules/engine/rules"
	"github.com/nathoo/storyrules/engine/things"
	lua "github.com/yuin/gopher-lua"
)

// call invokes a story function with the names of the things involved.
// Missing things are passed as nil.
func (s *Story) call(fn *lua.LFunction, subject, object, second *things.Thing) (lua.LValue, error) {
	if s.L == nil {
		return lua.LNil, errClosed
	}
	L := s.L
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true},
		thingValue(subject), thingValue(object), thingValue(second)); err != nil {
		return lua.LNil, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

func thingValue(t *things.Thing) lua.LValue {
	if t == nil {
		return lua.LNil
	}
	return lua.LString(t.Name)
}

// failable wraps a story function that may veto. Only an explicit false
// vetoes; a runtime error is narrated and vetoes too.
func (s *Story) failable(fn *lua.LFunction, label string) actions.Failable {
	return func(subject, object, second *things.Thing) bool {
		ret, err := s.call(fn, subject, object, second)
		if err != nil {
			s.World.Log(fmt.Sprintf("story error in %s: %v", label, err))
			return false
		}
		return ret != lua.LFalse
	}
}

// instructions wraps a story function whose result is ignored.
func (s *Story) instructions(fn *lua.LFunction, label string) actions.Instructions {
	return func(subject, object, second *things.Thing) {
		if _, err := s.call(fn, subject, object, second); err != nil {
			s.World.Log(fmt.Sprintf("story error in %s: %v", label, err))
		}
	}
}

// predicate wraps a story condition. It receives the live subject, object
// and second object and must return a truthy value to match.
func (s *Story) predicate(fn *lua.LFunction, label string) rules.Circumstance {
	return func(ctx rules.Context) bool {
		var object, second *things.Thing
		if ctx.Object != nil {
			object, second = ctx.Object.Object, ctx.Object.SecondObject
		}
		ret, err := s.call(fn, ctx.Subject, object, second)
		if err != nil {
			s.World.Log(fmt.Sprintf("story error in %s: %v", label, err))
			return false
		}
		return lua.LVAsBool(ret)
	}
}
