package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nathoo/storyrules/engine/world"
	"github.com/nathoo/storyrules/types"
	lua "github.com/yuin/gopher-lua"
)

// Story is a loaded story. Its Lua VM stays open because actions and rules
// call back into story functions; Close releases it.
type Story struct {
	Game  types.GameDef
	World *world.World

	// Warnings found while validating; the story loaded anyway.
	Warnings []string

	L *lua.LState
}

// Close releases the Lua VM. Story callbacks must not run afterwards.
func (s *Story) Close() {
	if s.L != nil {
		s.L.Close()
		s.L = nil
	}
}

// collector accumulates Lua declarations during file execution.
type collector struct {
	game          *lua.LTable
	tags          []types.TagDef
	relationships []*lua.LTable
	actions       []rawAction
	things        []types.ThingDef
	relations     []types.RelationDef
	rules         []rawRule
	order         int
}

func (c *collector) nextSourceOrder() int {
	c.order++
	return c.order
}

// Load reads all .lua files under dir, executes them in a sandboxed VM and
// compiles the declarations into w: story tags, relationships and actions
// become an extension, enabled built-ins are switched on, then things,
// initial relations and rules are added.
func Load(dir string, w *world.World) (*Story, error) {
	// Discover .lua files, including those in subdirectories.
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading story directory %s: %w", dir, err)
	}
	luaFiles, err := doublestar.Glob(os.DirFS(dir), "**/*.lua", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing story files in %s: %w", dir, err)
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}

	// Sort: game.lua first, rest alphabetical by path.
	luaFiles = sortedLuaFiles(luaFiles)

	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)

	story := &Story{World: w, L: L}
	coll := &collector{}
	registerAPI(L, coll, story)

	// Execute each file.
	for _, f := range luaFiles {
		path := filepath.Join(dir, filepath.FromSlash(f))
		if err := L.DoFile(path); err != nil {
			L.Close()
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	// Compile.
	if err := compile(coll, story); err != nil {
		L.Close()
		return nil, err
	}

	return story, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	// Table library (table.insert, table.sort, etc.)
	lua.OpenTable(L)
	// String library (string.format, string.sub, etc.)
	lua.OpenString(L)
	// Math library (math.floor, math.max, etc.)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"require", "module",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Stories draw randomness from the turn scheduler only.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("random", lua.LNil)
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}
