// Package narrate is the diagnostic narration hook used by the engine to
// explain what happened (structural check failures, relationship
// violations). The sink is injectable; a process-wide default is kept for
// callers that have no engine at hand.
package narrate

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultPrefix is used when Log is called without a prefix.
const DefaultPrefix = "#"

// StoryPrefix marks story text written by authors. Such lines are printed
// verbatim rather than as diagnostics.
const StoryPrefix = ">"

// Sink receives narration. prefix may be empty.
type Sink interface {
	Log(message, prefix string)
}

// Func adapts a plain function to a Sink.
type Func func(message, prefix string)

// Log calls f.
func (f Func) Log(message, prefix string) {
	f(message, prefix)
}

type zapSink struct {
	log     *zap.Logger
	console bool
}

// Console returns a sink that prints "# Sentence case message." lines to w.
func Console(w io.Writer) Sink {
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "msg",
		LineEnding: zapcore.DefaultLineEnding,
	})
	core := zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)
	return &zapSink{log: zap.New(core), console: true}
}

// NewZap returns a sink that emits each narration as a structured Info
// entry with the prefix as a field.
func NewZap(l *zap.Logger) Sink {
	return &zapSink{log: l}
}

func (s *zapSink) Log(message, prefix string) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if s.console {
		s.log.Info(Format(message, prefix))
		return
	}
	s.log.Info(message, zap.String("prefix", prefix))
}

// Format renders a narration line the way the console sink does. Story
// lines are returned unchanged.
func Format(message, prefix string) string {
	if prefix == StoryPrefix {
		return message
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return prefix + " " + sentenceCase(message) + "."
}

func sentenceCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Nop returns a sink that discards everything.
func Nop() Sink {
	return Func(func(string, string) {})
}

// Recorder collects formatted narration lines in memory.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Log implements Sink.
func (r *Recorder) Log(message, prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, Format(message, prefix))
}

// Lines returns a copy of everything recorded so far.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Drain returns the recorded lines and clears the recorder.
func (r *Recorder) Drain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.lines
	r.lines = nil
	return out
}

// Gate forwards to an inner sink unless muted. Queries that probe many
// hypothetical actions mute it so their check narration stays silent.
type Gate struct {
	inner Sink
	muted int
}

// NewGate wraps inner. A nil inner forwards to the process-wide sink.
func NewGate(inner Sink) *Gate {
	return &Gate{inner: inner}
}

// Log implements Sink.
func (g *Gate) Log(message, prefix string) {
	if g.muted > 0 {
		return
	}
	if g.inner == nil {
		Default().Log(message, prefix)
		return
	}
	g.inner.Log(message, prefix)
}

// Mute silences the gate until the returned function is called. Mutes nest.
func (g *Gate) Mute() (unmute func()) {
	g.muted++
	return func() { g.muted-- }
}

// Muted reports whether the gate is currently silenced.
func (g *Gate) Muted() bool {
	return g.muted > 0
}

var (
	mu       sync.RWMutex
	fallback = Console(os.Stdout)
	current  = fallback
)

// Default returns the process-wide sink.
func Default() Sink {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Set replaces the process-wide sink. A nil sink resets to the default.
func Set(s Sink) {
	mu.Lock()
	defer mu.Unlock()
	if s == nil {
		s = fallback
	}
	current = s
}

// Reset restores the process-wide console sink.
func Reset() {
	Set(nil)
}

// Log narrates through the process-wide sink.
func Log(message string) {
	Default().Log(message, "")
}

// Say writes story text to s.
func Say(s Sink, text string) {
	s.Log(text, StoryPrefix)
}
