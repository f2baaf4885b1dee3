package rules

import (
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
)

// Not negates a circumstance.
func Not(c Circumstance) Circumstance {
	return func(ctx Context) bool { return !c(ctx) }
}

// All holds when every circumstance holds. An empty list is vacuously true.
func All(cs ...Circumstance) Circumstance {
	return func(ctx Context) bool {
		for _, c := range cs {
			if !c(ctx) {
				return false
			}
		}
		return true
	}
}

// Any holds when at least one circumstance holds.
func Any(cs ...Circumstance) Circumstance {
	return func(ctx Context) bool {
		for _, c := range cs {
			if c(ctx) {
				return true
			}
		}
		return false
	}
}

// Has holds while thing carries tag, whatever is happening.
func Has(thing *things.Thing, tag *tags.Tag) Circumstance {
	return func(Context) bool { return thing.Has(tag) }
}

// Related holds while subject has a def relationship with object (any
// object when nil).
func Related(subject *things.Thing, def *things.Definition, object *things.Thing) Circumstance {
	var pattern *things.ObjectContext
	if object != nil {
		pattern = &things.ObjectContext{Object: object}
	}
	return func(Context) bool {
		_, ok := things.Find(subject, def.Type, pattern)
		return ok
	}
}
