// Package parser converts command lines into Command structs.
// Intentionally dumb: no NLP, just a verb and comma-separated operands.
package parser

import (
	"strings"

	"github.com/nathoo/storyrules/types"
)

var verbAliases = map[string]string{
	// Look
	"l": "look",

	// Describe
	"x":        "describe",
	"examine":  "describe",
	"inspect":  "describe",
	"describe": "describe",

	// Relations
	"rels":      "relations",
	"relations": "relations",

	// Actions / targets
	"a":       "actions",
	"actions": "actions",
	"t":       "targets",
	"targets": "targets",

	// Do
	"do":  "do",
	"try": "do",

	// Inventory
	"i":   "inventory",
	"inv": "inventory",

	// Wait
	"z":    "wait",
	"wait": "wait",

	// Extensions
	"ext":        "extensions",
	"extensions": "extensions",
	"enable":     "enable",
	"disable":    "disable",

	// Repeat
	"g":     "again",
	"again": "again",
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true,
}

// Parse converts a raw command line into a Command. The verb is everything
// up to the first space; the rest is split on commas, e.g.
//
//	do put onto, the rope, table  →  {Verb: "do", Args: ["put onto", "rope", "table"]}
func Parse(input string) types.Command {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Command{}
	}

	verb, rest, _ := strings.Cut(input, " ")
	verb = strings.ToLower(verb)

	// Meta commands keep their raw argument.
	if strings.HasPrefix(verb, "/") {
		var args []string
		if rest = strings.TrimSpace(rest); rest != "" {
			args = []string{rest}
		}
		return types.Command{Verb: verb, Args: args}
	}

	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}

	return types.Command{Verb: verb, Args: splitArgs(rest)}
}

// Aliases returns the canonical verb for every accepted spelling.
func Aliases() map[string]string {
	out := make(map[string]string, len(verbAliases))
	for k, v := range verbAliases {
		out[k] = v
	}
	return out
}

// splitArgs splits on commas, trims each operand, collapses inner
// whitespace and strips leading articles. Empty operands are dropped.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var args []string
	for _, part := range strings.Split(s, ",") {
		words := stripArticles(strings.Fields(part))
		if len(words) == 0 {
			continue
		}
		args = append(args, strings.Join(words, " "))
	}
	return args
}

// stripArticles removes a leading article ("the", "a", "an").
func stripArticles(words []string) []string {
	if len(words) > 1 && articles[strings.ToLower(words[0])] {
		return words[1:]
	}
	return words
}
