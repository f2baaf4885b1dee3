package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleStory = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleYouSee = lipgloss.NewStyle().
			Bold(true)

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("109"))

	styleStopped = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// lineKind identifies the type of an output line for styling.
type lineKind int

const (
	kindStory lineKind = iota
	kindYouSee
	kindNarration
	kindStopped
	kindSystem
	kindError
	kindTrace
)

// classifyLine determines what kind of output line this is. Engine
// narration starts with prefix; story text is anything unmarked.
func classifyLine(line, prefix string) lineKind {
	switch {
	case strings.HasPrefix(line, "[trace]"):
		return kindTrace
	case strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]"):
		return kindSystem
	case prefix != "" && strings.HasPrefix(line, prefix+" "):
		return kindNarration
	case strings.HasPrefix(line, "You see:"):
		return kindYouSee
	case strings.HasPrefix(line, "(stopped at "):
		return kindStopped
	case strings.HasPrefix(line, "There is no"),
		strings.HasPrefix(line, "Which "),
		strings.HasPrefix(line, "Usage:"),
		strings.HasPrefix(line, "Unknown "):
		return kindError
	default:
		return kindStory
	}
}

// styledYouSee renders "You see: rope, table." with the thing names bold.
func styledYouSee(line string) string {
	const prefix = "You see: "
	if !strings.HasPrefix(line, prefix) {
		return styleStory.Render(line)
	}
	return styleStory.Render(prefix) + styleYouSee.Render(line[len(prefix):])
}

// kindStyles maps each line kind to its style. kindYouSee is rendered by
// styledYouSee instead.
var kindStyles = map[lineKind]lipgloss.Style{
	kindStory:     styleStory,
	kindNarration: styleNarration,
	kindStopped:   styleStopped,
	kindSystem:    styleSystem,
	kindError:     styleError,
	kindTrace:     styleTrace,
}

// render styles a wrapped line according to its kind.
func render(line string, kind lineKind) string {
	if kind == kindYouSee {
		return styledYouSee(line)
	}
	style, ok := kindStyles[kind]
	if !ok {
		style = styleStory
	}
	return style.Render(line)
}
