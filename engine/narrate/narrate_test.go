package narrate

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		message, prefix string
		want            string
	}{
		{"bob is not character", "", "# Bob is not character."},
		{"checking", "!", "! Checking."},
		{"the rope is frayed", StoryPrefix, "the rope is frayed"},
		{"", "", "# ."},
	}
	for _, tt := range tests {
		if got := Format(tt.message, tt.prefix); got != tt.want {
			t.Errorf("Format(%q, %q) = %q, want %q", tt.message, tt.prefix, got, tt.want)
		}
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	s := Console(&buf)
	s.Log("rope is not carryable", "")
	s.Log("taking", "!")
	Say(s, "You take the rope.")

	want := "# Rope is not carryable.\n! Taking.\nYou take the rope.\n"
	if got := buf.String(); got != want {
		t.Errorf("Console output = %q, want %q", got, want)
	}
}

func TestNewZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewZap(zap.New(core))
	s.Log("bob takes the rope", "")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Message != "bob takes the rope" {
		t.Errorf("Message = %q", entries[0].Message)
	}
	if got := entries[0].ContextMap()["prefix"]; got != DefaultPrefix {
		t.Errorf("prefix field = %v, want %q", got, DefaultPrefix)
	}
}

func TestSetAndReset(t *testing.T) {
	t.Cleanup(Reset)

	rec := &Recorder{}
	Set(rec)
	Log("hello")
	if diff := cmp.Diff([]string{"# Hello."}, rec.Lines()); diff != "" {
		t.Errorf("recorded (-want +got):\n%s", diff)
	}

	Reset()
	if Default() == Sink(rec) {
		t.Error("Reset should restore the default sink")
	}
}

func TestRecorder_Drain(t *testing.T) {
	rec := &Recorder{}
	rec.Log("one", "")
	rec.Log("two", "")
	if got := rec.Drain(); len(got) != 2 {
		t.Fatalf("Drain() returned %d lines, want 2", len(got))
	}
	if got := rec.Lines(); len(got) != 0 {
		t.Errorf("expected recorder empty after Drain, got %v", got)
	}
}

func TestFunc(t *testing.T) {
	var gotMsg, gotPrefix string
	Func(func(m, p string) { gotMsg, gotPrefix = m, p }).Log("m", "p")
	if gotMsg != "m" || gotPrefix != "p" {
		t.Errorf("Func.Log passed (%q, %q)", gotMsg, gotPrefix)
	}
}

func TestGate(t *testing.T) {
	rec := &Recorder{}
	g := NewGate(rec)

	g.Log("one", "")
	outer := g.Mute()
	inner := g.Mute()
	g.Log("hidden", "")
	inner()
	if !g.Muted() {
		t.Error("outer mute should still hold")
	}
	g.Log("still hidden", "")
	outer()
	g.Log("two", "")

	if diff := cmp.Diff([]string{"# One.", "# Two."}, rec.Lines()); diff != "" {
		t.Errorf("Gate lines mismatch (-want +got):\n%s", diff)
	}
}
