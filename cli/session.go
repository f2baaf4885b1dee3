package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/storyrules/engine"
	"github.com/nathoo/storyrules/engine/narrate"
	"github.com/nathoo/storyrules/engine/parser"
	"github.com/nathoo/storyrules/engine/save"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
	"github.com/nathoo/storyrules/engine/world"
	"github.com/nathoo/storyrules/types"
	"go.uber.org/zap"
)

// Buffer is a narration sink that holds formatted lines until the session
// drains them into a Result.
type Buffer struct {
	// Prefix marks engine narration; story lines are kept verbatim.
	Prefix string
	// Quiet drops engine narration.
	Quiet bool

	lines []string
}

// Log implements narrate.Sink.
func (b *Buffer) Log(message, prefix string) {
	if prefix == narrate.StoryPrefix {
		b.lines = append(b.lines, message)
		return
	}
	if b.Quiet {
		return
	}
	if prefix == "" {
		prefix = b.Prefix
	}
	b.lines = append(b.lines, narrate.Format(message, prefix))
}

func (b *Buffer) drain() []string {
	out := b.lines
	b.lines = nil
	return out
}

// Session turns command lines into world queries and actions.
type Session struct {
	Game    types.GameDef
	World   *world.World
	RNG     *engine.RNG
	SaveDir string
	Trace   bool
	Logger  *zap.Logger

	out        *Buffer
	commandLog []string
	lastCmd    string
	lastTurn   []types.TurnRecord
}

// NewSession creates a session over w. out must be the sink w narrates
// through so the session can collect what commands print.
func NewSession(game types.GameDef, w *world.World, out *Buffer, rng *engine.RNG) *Session {
	if rng == nil {
		rng = engine.NewRNG(1)
	}
	return &Session{
		Game:    game,
		World:   w,
		RNG:     rng,
		SaveDir: ".",
		Logger:  zap.NewNop(),
		out:     out,
	}
}

// Intro returns the banner and opening text.
func (s *Session) Intro() []string {
	lines := []string{fmt.Sprintf("%s v%s by %s", s.Game.Title, s.Game.Version, s.Game.Author), ""}
	if s.Game.Intro != "" {
		lines = append(lines, s.Game.Intro, "")
	}
	return append(lines, s.look()...)
}

// NarrationPrefix is the prefix marking engine narration in the output.
func (s *Session) NarrationPrefix() string {
	if s.out.Prefix == "" {
		return narrate.DefaultPrefix
	}
	return s.out.Prefix
}

// CommandLog returns the game commands handled so far.
func (s *Session) CommandLog() []string {
	return append([]string(nil), s.commandLog...)
}

// Handle runs one command line. Engine and story narration produced while
// handling it is included in the output.
func (s *Session) Handle(input string) types.Result {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Result{}
	}
	s.out.drain()

	cmd := parser.Parse(input)
	if cmd.Verb == "again" {
		if s.lastCmd == "" {
			return types.Result{Output: []string{"Nothing to repeat."}}
		}
		input = s.lastCmd
		cmd = parser.Parse(input)
	}
	s.Logger.Debug("handling command", zap.String("verb", cmd.Verb), zap.Strings("args", cmd.Args))

	if strings.HasPrefix(cmd.Verb, "/") {
		return s.handleMeta(cmd)
	}

	s.lastCmd = input
	lines, err := s.dispatch(cmd)
	if err == nil {
		s.commandLog = append(s.commandLog, input)
	}
	out := append(s.out.drain(), lines...)
	if err != nil {
		out = append(out, errorLine(err))
	}
	if s.Trace {
		out = append(out, s.trace()...)
	}
	return types.Result{Output: out}
}

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

func errorLine(err error) string {
	if errors.Is(err, errUsage) {
		return "Usage: " + strings.TrimPrefix(err.Error(), "usage: ")
	}
	msg := err.Error()
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

func (s *Session) dispatch(cmd types.Command) ([]string, error) {
	switch cmd.Verb {
	case "look":
		return s.look(), nil
	case "describe":
		return s.describe(cmd.Args)
	case "relations":
		return s.relations(cmd.Args)
	case "actions":
		return s.actions(cmd.Args)
	case "targets":
		return s.targets(cmd.Args)
	case "do":
		return s.attempt(cmd.Args)
	case "inventory":
		return s.inventory(), nil
	case "wait":
		return s.wait(), nil
	case "add":
		return s.add(cmd.Args)
	case "extensions":
		return s.extensions(), nil
	case "enable":
		return s.toggle(cmd.Args, true)
	case "disable":
		return s.toggle(cmd.Args, false)
	default:
		return nil, fmt.Errorf("%q is not a command (try /help)", cmd.Verb)
	}
}

func (s *Session) look() []string {
	var names []string
	for _, t := range s.World.Things {
		if t != s.World.User {
			names = append(names, t.Name)
		}
	}
	if len(names) == 0 {
		return []string{"There is nothing here."}
	}
	return []string{"You see: " + things.Sentence(names) + "."}
}

func (s *Session) describe(args []string) ([]string, error) {
	if len(args) != 1 {
		return nil, usage("describe <thing>")
	}
	t, err := s.World.Thing(args[0])
	if err != nil {
		return nil, err
	}
	lines := []string{things.Describe(t) + "."}
	for _, r := range t.Relationships {
		lines = append(lines, things.DescribeRelationship(t, r)+".")
	}
	return lines, nil
}

// relations lists a thing's relationships, or every loaded definition when
// no thing is named.
func (s *Session) relations(args []string) ([]string, error) {
	if len(args) == 0 {
		var lines []string
		for _, ext := range s.World.Index.Extensions() {
			for _, def := range ext.Relationships {
				lines = append(lines, fmt.Sprintf("%s: %s.", def.Name(), things.DescribeDefinition(def)))
			}
		}
		if len(lines) == 0 {
			return []string{"No relationships are defined."}, nil
		}
		return lines, nil
	}
	t, err := s.World.Thing(args[0])
	if err != nil {
		return nil, err
	}
	if len(t.Relationships) == 0 {
		return []string{t.Name + " is not related to anything."}, nil
	}
	var lines []string
	for _, r := range t.Relationships {
		lines = append(lines, fmt.Sprintf("%s %s", r.Type.Name, r.Other.Name))
	}
	return lines, nil
}

func (s *Session) actions(args []string) ([]string, error) {
	if len(args) != 1 {
		return nil, usage("actions <thing>")
	}
	opts, err := s.World.ViableActions(args[0])
	if err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		return []string{"Nothing can be done with " + args[0] + "."}, nil
	}
	var names []string
	for _, o := range opts {
		if o.ExpectsSecondThing {
			names = append(names, o.Name+" (with something)")
		} else {
			names = append(names, o.Name)
		}
	}
	return []string{"You could: " + strings.Join(names, ", ") + "."}, nil
}

func (s *Session) targets(args []string) ([]string, error) {
	if len(args) != 2 {
		return nil, usage("targets <thing>, <action>")
	}
	names, err := s.World.ViableSecondThings(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []string{fmt.Sprintf("Nothing completes %s %s.", args[1], args[0])}, nil
	}
	return []string{fmt.Sprintf("%s %s with: %s.", args[1], args[0], things.Sentence(names))}, nil
}

func (s *Session) attempt(args []string) ([]string, error) {
	if len(args) < 1 || len(args) > 3 {
		return nil, usage("do <action>[, <thing>[, <second thing>]]")
	}
	var first, second string
	if len(args) > 1 {
		first = args[1]
	}
	if len(args) > 2 {
		second = args[2]
	}
	out, err := s.World.Attempt(args[0], first, second)
	if err != nil {
		return nil, err
	}
	s.Logger.Debug("attempt", zap.String("action", args[0]), zap.Bool("ok", out.OK), zap.Stringer("phase", out.Phase))
	if !out.OK {
		return []string{fmt.Sprintf("(stopped at %s)", out.Phase)}, nil
	}
	return nil, nil
}

func (s *Session) inventory() []string {
	inv := s.World.Inventory()
	if len(inv) == 0 {
		return []string{"You are empty-handed."}
	}
	return []string{"You are carrying: " + things.Sentence(inv) + "."}
}

// wait lets every other character act once.
func (s *Session) wait() []string {
	s.lastTurn = s.World.Turn(s.RNG)
	var idle []string
	for _, r := range s.lastTurn {
		if r.Action == "" {
			idle = append(idle, r.Actor)
		}
	}
	if len(idle) > 0 {
		return []string{things.Sentence(idle) + " did nothing."}
	}
	if len(s.lastTurn) == 0 {
		return []string{"Time passes."}
	}
	return nil
}

// add creates a thing at runtime: add <name>[, <tag>...].
func (s *Session) add(args []string) ([]string, error) {
	if len(args) == 0 {
		return nil, usage("add <name>[, <tag>...]")
	}
	var kinds []*tags.Tag
	for _, name := range args[1:] {
		kinds = append(kinds, tags.Get(name))
	}
	if _, ok := s.World.AddThing(args[0], kinds...); !ok {
		return nil, nil
	}
	return []string{"Added " + args[0] + "."}, nil
}

func (s *Session) extensions() []string {
	var lines []string
	for _, ext := range s.World.Available() {
		state := "off"
		if s.World.Index.Loaded(ext.Name) {
			state = "on"
		}
		lines = append(lines, fmt.Sprintf("%s [%s]: %s", ext.Name, state, ext.Description))
	}
	if len(lines) == 0 {
		return []string{"No extensions are available."}
	}
	return lines
}

func (s *Session) toggle(args []string, on bool) ([]string, error) {
	verb := "disable"
	if on {
		verb = "enable"
	}
	if len(args) != 1 {
		return nil, usage(verb + " <extension>")
	}
	name := s.extensionName(args[0])
	var err error
	if on {
		err = s.World.Enable(name)
	} else {
		err = s.World.Disable(name)
	}
	if err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("%s %sd.", name, verb)}, nil
}

// extensionName matches a typed name case-insensitively against the
// offered extensions.
func (s *Session) extensionName(typed string) string {
	for _, ext := range s.World.Available() {
		if strings.EqualFold(ext.Name, typed) {
			return ext.Name
		}
	}
	return typed
}

func (s *Session) trace() []string {
	var lines []string
	for _, r := range s.lastTurn {
		if r.Action == "" {
			lines = append(lines, fmt.Sprintf("[trace] %s: idle", r.Actor))
			continue
		}
		line := fmt.Sprintf("[trace] %s: %s", r.Actor, r.Action)
		for _, operand := range []string{r.Object, r.Second} {
			if operand != "" {
				line += ", " + operand
			}
		}
		lines = append(lines, fmt.Sprintf("%s (ok=%t)", line, r.OK))
	}
	s.lastTurn = nil
	lines = append(lines, fmt.Sprintf("[trace] turn %d, rng position %d", s.World.TurnCount(), s.RNG.Position()))
	return lines
}

// handleMeta dispatches meta-commands.
func (s *Session) handleMeta(cmd types.Command) types.Result {
	var arg string
	if len(cmd.Args) > 0 {
		arg = cmd.Args[0]
	}

	switch cmd.Verb {
	case "/quit", "/exit":
		return system(true, "Goodbye.")
	case "/save":
		return system(false, s.cmdSave(arg))
	case "/load":
		return s.cmdLoad(arg)
	case "/help":
		return types.Result{Output: helpLines()}
	case "/state":
		return system(false, s.cmdState()...)
	case "/trace":
		s.Trace = !s.Trace
		if s.Trace {
			return system(false, "Trace output enabled.")
		}
		return system(false, "Trace output disabled.")
	default:
		return system(false, fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd.Verb))
	}
}

func system(quit bool, lines ...string) types.Result {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = "[" + l + "]"
	}
	return types.Result{Output: out, Quit: quit}
}

func (s *Session) savePath(name string) string {
	if name == "" {
		name = "quicksave"
	}
	return filepath.Join(s.SaveDir, name+".json")
}

func (s *Session) cmdSave(name string) string {
	data, err := save.Save(s.World, s.Game, s.RNG, s.commandLog)
	if err != nil {
		return fmt.Sprintf("Save failed: %v", err)
	}
	if err := os.MkdirAll(s.SaveDir, 0o755); err != nil {
		return fmt.Sprintf("Save failed: %v", err)
	}
	path := s.savePath(name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Sprintf("Save failed: %v", err)
	}
	s.Logger.Info("saved", zap.String("path", path), zap.Int("turn", s.World.TurnCount()))
	return fmt.Sprintf("Saved to %s.", path)
}

func (s *Session) cmdLoad(name string) types.Result {
	return s.LoadFile(s.savePath(name))
}

// LoadFile restores the world from a save file written by /save. The save
// must belong to the same story.
func (s *Session) LoadFile(path string) types.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return system(false, fmt.Sprintf("Load failed: %v", err))
	}
	sd, err := save.Load(data)
	if err != nil {
		return system(false, fmt.Sprintf("Load failed: %v", err))
	}
	if sd.Game != s.Game.Title {
		return system(false, fmt.Sprintf("Load failed: save is for %q, not %q", sd.Game, s.Game.Title))
	}
	if err := save.Apply(s.World, sd); err != nil {
		return system(false, fmt.Sprintf("Load failed: %v", err))
	}
	if sd.RNGSeed != 0 {
		s.RNG = engine.RestoreRNG(sd.RNGSeed, sd.RNGPosition)
	}
	s.commandLog = append([]string(nil), sd.CommandLog...)
	s.out.drain()

	res := system(false, fmt.Sprintf("Loaded turn %d.", sd.Turn))
	res.Output = append(res.Output, s.look()...)
	return res
}

func (s *Session) cmdState() []string {
	w := s.World
	var ext []string
	for _, e := range w.Index.Extensions() {
		ext = append(ext, e.Name)
	}
	sort.Strings(ext)
	lines := []string{
		fmt.Sprintf("Turn: %d", w.TurnCount()),
		fmt.Sprintf("User: %s", w.User.Name),
		fmt.Sprintf("Things: %d", len(w.Things)),
		fmt.Sprintf("Inventory: %v", w.Inventory()),
		fmt.Sprintf("Extensions: %v", ext),
		fmt.Sprintf("Rules: %d", w.Engine.Rules.Len()),
	}
	return lines
}

func helpLines() []string {
	return []string{
		"System:",
		"  /save [name]  Save the world (default: quicksave)",
		"  /load [name]  Load a saved world (default: quicksave)",
		"  /quit         Exit",
		"  /help         Show this help",
		"  /state        Debug: summarize the world",
		"  /trace        Toggle turn trace output",
		"",
		"Commands (operands are separated by commas):",
		"  look (l)                         List the things in the world",
		"  describe <thing> (x)             Tags and relationships of a thing",
		"  relations [<thing>] (rels)       Relationships of a thing, or all definitions",
		"  actions <thing> (a)              What you could do with a thing",
		"  targets <thing>, <action> (t)    What could complete an action",
		"  do <action>, <thing>[, <second>] Attempt an action",
		"  inventory (i)                    What you are carrying",
		"  wait (z)                         Let everyone else act",
		"  add <name>[, <tag>...]           Add a thing to the world",
		"  extensions (ext)                 List extensions",
		"  enable / disable <extension>     Switch an extension on or off",
		"  again (g)                        Repeat your last command",
	}
}
