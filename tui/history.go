package tui

// History keeps the commands typed this session for up/down recall.
// The cursor sits at len(entries) while the player is typing fresh input.
type History struct {
	entries []string
	max     int
	cursor  int
}

// NewHistory creates a history holding at most max commands.
func NewHistory(max int) *History {
	return &History{max: max}
}

// Seed replaces the history with the tail of a command log, e.g. the log
// restored from a save file.
func (h *History) Seed(log []string) {
	h.entries = h.entries[:0]
	for _, cmd := range log {
		h.Push(cmd)
	}
	h.ResetCursor()
}

// Push records a command. Repeating the last command adds nothing.
func (h *History) Push(cmd string) {
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		h.cursor = n
		return
	}
	h.entries = append(h.entries, cmd)
	if over := len(h.entries) - h.max; over > 0 {
		h.entries = append(h.entries[:0], h.entries[over:]...)
	}
	h.cursor = len(h.entries)
}

// Prev steps back to an older command. It stays on the oldest one once
// reached and reports false only when there is no history at all.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next steps forward to a newer command. Stepping past the newest returns
// false, meaning the input line should be cleared.
func (h *History) Next() (string, bool) {
	if h.cursor >= len(h.entries) {
		return "", false
	}
	h.cursor++
	if h.cursor == len(h.entries) {
		return "", false
	}
	return h.entries[h.cursor], true
}

// ResetCursor returns to fresh input.
func (h *History) ResetCursor() {
	h.cursor = len(h.entries)
}
