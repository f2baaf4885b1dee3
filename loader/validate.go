package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/storyrules/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validateGame checks the story metadata.
func validateGame(game types.GameDef, ve *ValidationError) {
	if game.Title == "" {
		ve.Errors = append(ve.Errors, "Game.title is required")
	}
	if game.Version == "" {
		ve.Warnings = append(ve.Warnings, "Game.version is not set; saves will not record it")
	}
	seen := map[string]bool{}
	for _, name := range game.Enable {
		if seen[name] {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("Game.enable lists %s twice", name))
		}
		seen[name] = true
	}
}
