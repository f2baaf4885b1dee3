// Package types defines the plain data structures shared by the loader, the
// world, the session layer and persistence.
// It holds type definitions only.
package types

// Command is the tokenized form of one line typed at the prompt.
type Command struct {
	Verb string
	Args []string // comma-separated operands, trimmed
}

// Result is the output of handling a single command.
type Result struct {
	Output []string
	Quit   bool
}

// GameDef holds story metadata from Lua.
type GameDef struct {
	Title   string
	Author  string
	Version string
	Intro   string
	Enable  []string // built-in extensions enabled at start
}

// TagDef declares a tag and its human-readable description.
type TagDef struct {
	Name        string
	Description string
}

// RelationshipDef declares a relationship pair by name.
type RelationshipDef struct {
	Subject string // subject tag
	Name    string
	Order   string // one_to_one, one_to_many, many_to_one, many_to_many
	Object  string // object tag
	Reverse string
}

// ThingDef declares a thing and its tags.
type ThingDef struct {
	Name string
	Tags []string
}

// RelationDef establishes an initial relationship between two things.
type RelationDef struct {
	Subject      string
	Relationship string
	Object       string
}

// ActionOption is an action that could apply to a given thing.
type ActionOption struct {
	Name               string
	ExpectsSecondThing bool
}

// TurnRecord is what one actor did during a world turn.
type TurnRecord struct {
	Actor  string
	Action string // empty when the actor had nothing to do
	Object string
	Second string
	OK     bool
}
