// Package loader loads Lua story content into a world. Declarations run
// once at load time; the VM stays open so story callbacks can run during
// play.
package loader

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nathoo/storyrules/engine/actions"
	"github.com/nathoo/storyrules/engine/extension"
	"github.com/nathoo/storyrules/engine/rules"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
	"github.com/nathoo/storyrules/types"
	lua "github.com/yuin/gopher-lua"
)

const (
	phaseBefore  = "Before"
	phaseInstead = "Instead"
	phaseAfter   = "After"
)

// rawAction holds an action table before compilation.
type rawAction struct {
	name  string
	table *lua.LTable
}

// rawRule holds a rule table before compilation.
type rawRule struct {
	phase string
	table *lua.LTable
	order int
}

func (r rawRule) label() string {
	return fmt.Sprintf("%s rule %d", r.phase, r.order)
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// getFunction returns a function field from a Lua table, or nil if missing.
func getFunction(tbl *lua.LTable, key string) *lua.LFunction {
	v := tbl.RawGetString(key)
	if f, ok := v.(*lua.LFunction); ok {
		return f
	}
	return nil
}

// stringList returns the string elements of an array table, in order.
func stringList(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.MaxN(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// compile turns the collected declarations into world state, in
// dependency order. Every problem is collected before failing.
func compile(coll *collector, story *Story) error {
	ve := &ValidationError{}
	w := story.World

	// Game.
	if coll.game == nil {
		return fmt.Errorf("no Game{} definition found")
	}
	story.Game = compileGame(coll.game)
	validateGame(story.Game, ve)

	// Tags.
	var storyTags []*tags.Tag
	for _, def := range coll.tags {
		if def.Description != "" {
			storyTags = append(storyTags, tags.Describe(def.Name, def.Description))
		} else {
			storyTags = append(storyTags, tags.Get(def.Name))
		}
	}

	// Relationships.
	var defs []*things.Definition
	for _, tbl := range coll.relationships {
		forward, reverse, err := compileRelationship(tbl)
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
			continue
		}
		defs = append(defs, forward, reverse)
	}

	// Actions.
	var acts []*actions.Action
	for _, raw := range coll.actions {
		a, err := story.compileAction(raw)
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
			continue
		}
		acts = append(acts, a)
	}
	if len(ve.Errors) > 0 {
		return ve
	}

	// The story's own definitions form an extension that is always on.
	ext := &extension.Extension{
		Name:          storyExtensionName(story.Game),
		Description:   "Declared by the story",
		Tags:          storyTags,
		Actions:       acts,
		Relationships: defs,
	}
	if err := w.Index.Register(ext); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
		return ve
	}

	// Built-in extensions.
	for _, name := range story.Game.Enable {
		if err := w.Enable(name); err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("enabling %s: %v", name, err))
		}
	}
	if len(ve.Errors) > 0 {
		return ve
	}

	// Things.
	known := knownTags(w.Index)
	for _, def := range coll.things {
		var kinds []*tags.Tag
		for _, name := range def.Tags {
			if !known[name] {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf("thing %s: tag %q is not declared by the story or any enabled extension", def.Name, name))
			}
			kinds = append(kinds, tags.Get(name))
		}
		if _, ok := w.AddThing(def.Name, kinds...); !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf("thing %s declared twice", def.Name))
		}
	}

	// Initial relations.
	for _, rel := range coll.relations {
		if err := compileRelation(story, rel); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	// Rules.
	for _, raw := range coll.rules {
		story.compileRule(raw, ve)
	}

	story.Warnings = ve.Warnings
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func compileGame(tbl *lua.LTable) types.GameDef {
	return types.GameDef{
		Title:   getString(tbl, "title"),
		Author:  getString(tbl, "author"),
		Version: getString(tbl, "version"),
		Intro:   getString(tbl, "intro"),
		Enable:  stringList(getTable(tbl, "enable")),
	}
}

func storyExtensionName(game types.GameDef) string {
	if game.Title == "" {
		return "Story"
	}
	return "Story: " + game.Title
}

func compileRelationship(tbl *lua.LTable) (forward, reverse *things.Definition, err error) {
	def := types.RelationshipDef{
		Subject: getString(tbl, "subject"),
		Name:    getString(tbl, "name"),
		Order:   getString(tbl, "order"),
		Object:  getString(tbl, "object"),
		Reverse: getString(tbl, "reverse"),
	}
	if def.Name == "" || def.Reverse == "" {
		return nil, nil, fmt.Errorf("relationship %q: name and reverse are required", def.Name)
	}
	if def.Subject == "" || def.Object == "" {
		return nil, nil, fmt.Errorf("relationship %s: subject and object tags are required", def.Name)
	}
	if def.Order == "" {
		def.Order = things.ManyToMany.String()
	}
	order, err := things.ParseOrder(def.Order)
	if err != nil {
		return nil, nil, fmt.Errorf("relationship %s: %w", def.Name, err)
	}
	forward, reverse = things.Define(tags.Get(def.Subject), def.Name, order, tags.Get(def.Object), def.Reverse)
	return forward, reverse, nil
}

func (s *Story) compileAction(raw rawAction) (*actions.Action, error) {
	subject := getString(raw.table, "subject")
	if subject == "" {
		return nil, fmt.Errorf("action %s: subject tag is required", raw.name)
	}
	object := getString(raw.table, "object")
	second := getString(raw.table, "second")
	if second != "" && object == "" {
		return nil, fmt.Errorf("action %s: a second object needs an object", raw.name)
	}

	var opts []actions.Option
	if object != "" {
		opts = append(opts, actions.WithObject(tags.Get(object)))
	}
	if second != "" {
		opts = append(opts, actions.WithSecondObject(tags.Get(second)))
	}
	label := "action " + raw.name
	if fn := getFunction(raw.table, "check"); fn != nil {
		opts = append(opts, actions.WithCheck(s.failable(fn, label+" check")))
	}
	if fn := getFunction(raw.table, "carry_out"); fn != nil {
		opts = append(opts, actions.WithCarryOut(s.instructions(fn, label+" carry out")))
	}
	if fn := getFunction(raw.table, "report"); fn != nil {
		opts = append(opts, actions.WithReport(s.instructions(fn, label+" report")))
	}
	return actions.Define(tags.Get(subject), raw.name, opts...), nil
}

func compileRelation(story *Story, rel types.RelationDef) error {
	w := story.World
	subject, err := w.Thing(rel.Subject)
	if err != nil {
		return fmt.Errorf("Relate(%s, %s, %s): %w", rel.Subject, rel.Relationship, rel.Object, err)
	}
	object, err := w.Thing(rel.Object)
	if err != nil {
		return fmt.Errorf("Relate(%s, %s, %s): %w", rel.Subject, rel.Relationship, rel.Object, err)
	}
	def, err := w.Index.Relationship(rel.Relationship)
	if err != nil {
		return fmt.Errorf("Relate(%s, %s, %s): %w", rel.Subject, rel.Relationship, rel.Object, err)
	}
	if _, err := things.Make(subject, def, object); err != nil {
		return fmt.Errorf("Relate(%s, %s, %s): %w", rel.Subject, rel.Relationship, rel.Object, err)
	}
	return nil
}

// compileRule resolves the rule's names, builds its circumstance and files
// it in the rulebook.
func (s *Story) compileRule(raw rawRule, ve *ValidationError) {
	w := s.World
	tbl := raw.table
	label := raw.label()
	failures := len(ve.Errors)
	fail := func(format string, args ...any) {
		ve.Errors = append(ve.Errors, label+": "+fmt.Sprintf(format, args...))
	}

	run := getFunction(tbl, "run")
	if run == nil {
		fail("run function is required")
	}

	resolveThing := func(key string) *things.Thing {
		name := getString(tbl, key)
		if name == "" {
			return nil
		}
		t, err := w.Thing(name)
		if err != nil {
			fail("%s: %v", key, err)
		}
		return t
	}
	subject := resolveThing("subject")
	object := resolveThing("object")
	second := resolveThing("second")

	var action *actions.Action
	if name := getString(tbl, "action"); name != "" {
		a, err := w.Index.Action(name)
		if err != nil {
			fail("%v", err)
		}
		action = a
	}
	var already *things.Definition
	if name := getString(tbl, "already"); name != "" {
		d, err := w.Index.Relationship(name)
		if err != nil {
			fail("%v", err)
		}
		already = d
	}
	tagNames := stringList(getTable(tbl, "tags"))

	scoped := getString(tbl, "action") != "" || getString(tbl, "already") != ""
	if !scoped && (getString(tbl, "object") != "" || getString(tbl, "second") != "" || len(tagNames) > 0) {
		fail("object, second and tags need an action or already")
	}
	if getString(tbl, "second") != "" && getString(tbl, "object") == "" {
		fail("second needs object")
	}
	if len(ve.Errors) > failures {
		return
	}

	var when rules.Circumstance
	if fn := getFunction(tbl, "when"); fn != nil {
		when = s.predicate(fn, label+" when")
	}

	var c rules.Circumstance
	if subject != nil {
		b := rules.When(subject)
		if action != nil {
			b.Is(action)
		}
		if already != nil {
			b.Already(already)
		}
		if object != nil {
			b.The(object)
		}
		if second != nil {
			b.AndThe(second)
		}
		for _, name := range tagNames {
			b.A(tags.Get(name))
		}
		if when != nil {
			b.And(when)
		}
		c = b.Build()
	} else {
		expected := rules.Context{Action: action, Relationship: already}
		if object != nil || second != nil || len(tagNames) > 0 {
			expected.Object = &things.ObjectContext{Object: object, SecondObject: second}
			for _, name := range tagNames {
				if expected.Object.Tags == nil {
					expected.Object.Tags = tags.Set{}
				}
				expected.Object.Tags.Add(tags.Get(name))
			}
		}
		c = func(ctx rules.Context) bool { return rules.Allows(ctx, expected) }
		if when != nil {
			c = rules.All(c, when)
		}
	}

	rb := w.Engine.Rules
	switch raw.phase {
	case phaseBefore:
		rb.Before(c, s.failable(run, label))
	case phaseInstead:
		rb.Instead(c, s.failable(run, label))
	case phaseAfter:
		rb.After(c, s.instructions(run, label))
	}
}

// knownTags lists every tag name declared by a registered extension.
func knownTags(ix *extension.Index) map[string]bool {
	known := map[string]bool{tags.Something.Name: true}
	for _, ext := range ix.Extensions() {
		for _, t := range ext.Tags {
			known[t.Name] = true
		}
		// Relationship endpoints count as declared.
		for _, d := range ext.Relationships {
			known[d.SubjectTag.Name] = true
			known[d.ObjectTag.Name] = true
		}
		for _, a := range ext.Actions {
			for _, t := range []*tags.Tag{a.SubjectTag, a.ObjectTag, a.SecondObjectTag} {
				if t != nil {
					known[t.Name] = true
				}
			}
		}
	}
	return known
}

// sortedLuaFiles returns .lua files in a directory, with game.lua first
// and the rest sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var gameFile string
	var others []string
	for _, f := range files {
		if f == "game.lua" {
			gameFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if gameFile != "" {
		return append([]string{gameFile}, others...)
	}
	return others
}

// errClosed is returned when a callback runs after Story.Close.
var errClosed = errors.New("story is closed")
