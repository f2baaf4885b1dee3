// storyrules plays Lua-scripted rule-based stories in the terminal.
// Usage: storyrules [flags] <story_directory>
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nathoo/storyrules/cli"
	"github.com/nathoo/storyrules/config"
	"github.com/nathoo/storyrules/engine"
	"github.com/nathoo/storyrules/engine/narrate"
	"github.com/nathoo/storyrules/engine/tags"
	"github.com/nathoo/storyrules/engine/things"
	"github.com/nathoo/storyrules/engine/world"
	"github.com/nathoo/storyrules/extensions/physical"
	"github.com/nathoo/storyrules/loader"
	"github.com/nathoo/storyrules/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Play flags
	plain      bool
	trace      bool
	scriptFile string
	seed       int64
	resume     string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storyrules <story_directory>",
	Short: "Play a rule-based story",
	Long: `storyrules loads a story written in Lua (things, relationships, actions
and before/instead/after rules) and lets you act in its world.

Other characters act whenever you wait.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		// Narration that bypasses a world goes to the diagnostic log.
		narrate.Set(narrate.NewZap(logger))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return play(args[0])
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <story_directory>",
	Short: "Load a story and report problems without playing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		story, _, err := loadStory(args[0], cfg)
		if err != nil {
			return err
		}
		defer story.Close()

		w := story.World
		out := cmd.OutOrStdout()
		for _, warning := range story.Warnings {
			fmt.Fprintf(out, "warning: %s\n", warning)
		}
		fmt.Fprintf(out, "ok: %s: %d things, %d actions, %d rules\n",
			story.Game.Title, len(w.Things)-1, len(w.Index.Actions()), w.Engine.Rules.Len())
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "init-config <path>",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Default().SaveToFile(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "storyrules %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	rootCmd.Flags().BoolVar(&plain, "plain", false, "use the plain line interface")
	rootCmd.Flags().BoolVar(&trace, "trace", false, "show what other characters do each turn")
	rootCmd.Flags().StringVar(&scriptFile, "script", "", "read commands from a file (implies --plain)")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "turn scheduler seed (0 uses the config, then the clock)")
	rootCmd.Flags().StringVar(&resume, "resume", "", "load a save file from the save directory before playing")

	rootCmd.AddCommand(checkCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadStory builds the user, the world and the built-in extensions, then
// loads the story into them.
func loadStory(dir string, cfg *config.Config) (*loader.Story, *cli.Buffer, error) {
	buf := &cli.Buffer{Prefix: cfg.Narration.Prefix, Quiet: cfg.Narration.Quiet}

	kinds := make([]*tags.Tag, len(cfg.Player.Tags))
	for i, name := range cfg.Player.Tags {
		kinds[i] = tags.Get(name)
	}
	w := world.New(buf, things.New(cfg.Player.Name, kinds...))
	w.Offer(physical.New(w.Sink()))

	story, err := loader.Load(dir, w)
	if err != nil {
		return nil, nil, fmt.Errorf("loading story: %w", err)
	}
	return story, buf, nil
}

func play(dir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	story, buf, err := loadStory(dir, cfg)
	if err != nil {
		return err
	}
	defer story.Close()
	for _, warning := range story.Warnings {
		logger.Warn("story warning", zap.String("story", dir), zap.String("warning", warning))
	}

	s := cli.NewSession(story.Game, story.World, buf, engine.NewRNG(pickSeed(cfg)))
	s.SaveDir = cfg.SaveDir
	s.Trace = trace
	s.Logger = logger
	logger.Debug("story loaded",
		zap.String("title", story.Game.Title),
		zap.Int("things", len(story.World.Things)),
		zap.Int64("seed", s.RNG.Seed()))

	if resume != "" {
		res := s.LoadFile(cfg.SavePath(resume))
		for _, line := range res.Output {
			fmt.Println(line)
		}
	}

	// Script mode: read commands from the file and echo them.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c := cli.New(s)
		c.In = f
		c.EchoInput = true
		c.Run()
		return nil
	}

	// Use the plain CLI if asked to or stdout is not a terminal.
	if plain || !isTerminal() {
		cli.New(s).Run()
		return nil
	}
	return tui.Run(s)
}

// pickSeed prefers the flag, then the config, then the clock.
func pickSeed(cfg *config.Config) int64 {
	switch {
	case seed != 0:
		return seed
	case cfg.Seed != 0:
		return cfg.Seed
	default:
		return time.Now().UnixNano()
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
