package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// wordWrap breaks text at spaces so no line is wider than width cells.
// Newlines in text start a new line; a single word wider than width is left
// whole.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	paragraphs := strings.Split(text, "\n")
	for i, p := range paragraphs {
		paragraphs[i] = wrapParagraph(p, width)
	}
	return strings.Join(paragraphs, "\n")
}

func wrapParagraph(p string, width int) string {
	if lipgloss.Width(p) <= width {
		return p
	}
	var b strings.Builder
	col := 0
	for _, word := range strings.Fields(p) {
		w := lipgloss.Width(word)
		switch {
		case col == 0:
		case col+1+w > width:
			b.WriteByte('\n')
			col = 0
		default:
			b.WriteByte(' ')
			col++
		}
		b.WriteString(word)
		col += w
	}
	return b.String()
}
