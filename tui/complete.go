package tui

import (
	"sort"
	"strings"

	"github.com/nathoo/storyrules/engine/parser"
	"github.com/nathoo/storyrules/engine/resolve"
)

// candidates lists what Tab can complete: command verbs, thing names and
// action names currently known to the world.
func (m Model) candidates() []string {
	seen := map[string]bool{"add": true}
	for _, verb := range parser.Aliases() {
		seen[verb] = true
	}
	w := m.session.World
	for _, name := range resolve.Names(w.Things) {
		seen[name] = true
	}
	for _, a := range w.Index.Actions() {
		seen[a.Name] = true
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// complete extends the word being typed. Operands are comma-separated, so
// the word is whatever follows the last comma, or the verb's first space,
// or the whole line. A single match is completed in full; several are
// completed to their common prefix and returned so the caller can list them.
func complete(input string, candidates []string) (string, []string) {
	head, word := splitLastOperand(input)
	if word == "" {
		return input, nil
	}

	var matches []string
	lower := strings.ToLower(word)
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), lower) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return input, nil
	case 1:
		return head + matches[0], nil
	}

	prefix := commonPrefix(matches)
	if len(prefix) < len(word) {
		prefix = word
	}
	return head + prefix, matches
}

func splitLastOperand(input string) (head, word string) {
	cut := strings.LastIndex(input, ",")
	if cut < 0 {
		cut = strings.Index(input, " ")
	}
	if cut < 0 {
		return "", input
	}
	head = input[:cut+1]
	rest := input[cut+1:]
	trimmed := strings.TrimLeft(rest, " ")
	return head + rest[:len(rest)-len(trimmed)], trimmed
}

func commonPrefix(words []string) string {
	prefix := words[0]
	for _, w := range words[1:] {
		for !strings.HasPrefix(strings.ToLower(w), strings.ToLower(prefix)) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}
