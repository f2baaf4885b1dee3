package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderStatusBar produces a full-width inverted status line showing the
// story title, the number of things, the inventory and the turn count.
func (m Model) renderStatusBar() string {
	w := m.session.World
	turn := w.TurnCount()

	left := fmt.Sprintf(" %s | Things: %d", m.session.Game.Title, len(w.Things))
	right := fmt.Sprintf("T:%d ", turn)

	// Show inventory names if they fit, otherwise just the count.
	if inv := w.Inventory(); len(inv) > 0 {
		candidate := fmt.Sprintf("Inv: %s | T:%d ", strings.Join(inv, ", "), turn)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		} else {
			right = fmt.Sprintf("Inv: %d | T:%d ", len(inv), turn)
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
