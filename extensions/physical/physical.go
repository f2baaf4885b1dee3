// Package physical is the built-in PhysicalWorld extension: characters can
// take, drop and put carryable things onto supporters or into containers.
package physical

import (
	"github.com/nathoo/storyrules/engine/actions"
	"github.com/nathoo/storyrules/engine/extension"
	"github.com/nathoo/storyrules/engine/narrate"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
)

// Name is the extension's registered name.
const Name = "PhysicalWorld"

// Tags used by the physical world.
var (
	Long      = tags.Get("long")
	Strong    = tags.Get("strong")
	Thin      = tags.Get("thin")
	Flammable = tags.Get("flammable")
	Lightable = tags.Get("lightable")
	Carryable = tags.Get("carryable")
	Supporter = tags.Get("supporter")
	Character = tags.Get("character")
	Container = tags.Get("container")
	Visible   = tags.Get("visible")
	Touchable = tags.Get("touchable")
)

// Relationship definitions, in reversed pairs.
var (
	Carrying, CarriedBy     = things.Define(Character, "carrying", things.OneToMany, Carryable, "carriedBy")
	Supporting, SupportedBy = things.Define(Supporter, "supporting", things.OneToMany, Carryable, "supportedBy")
	Containing, ContainedBy = things.Define(Container, "containing", things.OneToMany, tags.Something, "containedBy")
	Viewing, ViewedBy       = things.Define(Visible, "viewing", things.ManyToMany, Character, "viewedBy")
	Touching, TouchedBy     = things.Define(Character, "touching", things.ManyToMany, Touchable, "touchedBy")
)

// New builds the extension. Action callbacks narrate through sink, or the
// process-wide sink when nil.
func New(sink narrate.Sink) *extension.Extension {
	p := &physical{sink: sink}
	return &extension.Extension{
		Name:        Name,
		Description: "Defines physical interactions between objects",
		Tags: []*tags.Tag{
			Long, Strong, Thin, Flammable, Lightable, Carryable,
			Supporter, Character, Container, Visible, Touchable,
		},
		Actions: []*actions.Action{
			actions.Define(Character, "take",
				actions.WithObject(Touchable),
				actions.WithCheck(p.checkTake),
				actions.WithCarryOut(p.carryOutTake)),
			actions.Define(Character, "drop",
				actions.WithObject(tags.Something),
				actions.WithCheck(p.checkDrop),
				actions.WithCarryOut(p.carryOutDrop)),
			actions.Define(Character, "put onto",
				actions.WithObject(Carryable),
				actions.WithSecondObject(Supporter),
				actions.WithCheck(p.checkPut("onto", Supporting)),
				actions.WithCarryOut(p.carryOutPut(Supporting))),
			actions.Define(Character, "put into",
				actions.WithObject(Carryable),
				actions.WithSecondObject(Container),
				actions.WithCheck(p.checkPut("into", Containing)),
				actions.WithCarryOut(p.carryOutPut(Containing))),
		},
		Relationships: []*things.Definition{
			Carrying, CarriedBy,
			Supporting, SupportedBy,
			Containing, ContainedBy,
			Viewing, ViewedBy,
			Touching, TouchedBy,
		},
	}
}

type physical struct {
	sink narrate.Sink
}

func (p *physical) log(msg string) {
	if p.sink != nil {
		p.sink.Log(msg, "")
		return
	}
	narrate.Log(msg)
}

func (p *physical) checkTake(subject, object, _ *things.Thing) bool {
	if object == nil {
		p.log(subject.Name + " cannot take nothing")
		return false
	}
	if !object.Has(Carryable) {
		p.log(object.Name + " is not carryable")
		return false
	}
	if err := things.Allowed(subject, Carrying, object); err != nil {
		p.log(err.Error())
		return false
	}
	return true
}

func (p *physical) carryOutTake(subject, object, _ *things.Thing) {
	if object == nil {
		return
	}
	things.Remove(object, SupportedBy, nil)
	things.Remove(object, ContainedBy, nil)
	if _, err := things.Make(subject, Carrying, object); err != nil {
		p.log(err.Error())
	}
}

func (p *physical) checkDrop(subject, object, _ *things.Thing) bool {
	if object == nil {
		p.log(subject.Name + " cannot drop nothing")
		return false
	}
	if !carrying(subject, object) {
		p.log(subject.Name + " cannot drop " + object.Name + " without carrying it first")
		return false
	}
	return true
}

func (p *physical) carryOutDrop(subject, object, _ *things.Thing) {
	if object != nil {
		things.Remove(subject, Carrying, object)
	}
}

// checkPut also validates the destination relationship, so carry out never
// takes the object out of the subject's hands without placing it.
func (p *physical) checkPut(preposition string, def *things.Definition) actions.Failable {
	return func(subject, object, second *things.Thing) bool {
		switch {
		case object == nil:
			p.log(subject.Name + " cannot put nothing " + preposition + " anything")
			return false
		case second == nil:
			p.log(subject.Name + " cannot put " + object.Name + " " + preposition + " nothing")
			return false
		case !carrying(subject, object):
			p.log(subject.Name + " cannot put " + object.Name + " " + preposition + " " + second.Name + " without carrying it first")
			return false
		}
		if err := things.Allowed(second, def, object); err != nil {
			p.log(err.Error())
			return false
		}
		return true
	}
}

func (p *physical) carryOutPut(def *things.Definition) actions.Instructions {
	return func(subject, object, second *things.Thing) {
		if object == nil || second == nil {
			return
		}
		things.Remove(subject, Carrying, object)
		if _, err := things.Make(second, def, object); err != nil {
			p.log(err.Error())
		}
	}
}

func carrying(subject, object *things.Thing) bool {
	_, ok := things.Find(subject, Carrying.Type, &things.ObjectContext{Object: object})
	return ok
}
