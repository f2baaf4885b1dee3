// Package tui provides a Bubble Tea terminal UI over a storyrules session.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/storyrules/cli"
)

// transcriptLine is one unstyled line of the transcript. Lines are kept raw
// so a resize can re-wrap and re-style everything.
type transcriptLine struct {
	text  string
	kind  lineKind
	input bool
}

// Model is the Bubble Tea model for the storyrules TUI.
type Model struct {
	session *cli.Session

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []transcriptLine

	width    int
	height   int
	ready    bool
	quitting bool
}

// sessionOutputMsg carries session output into the Update loop.
type sessionOutputMsg struct {
	input string
	lines []string
}

// New creates a TUI model over the given session. A resumed session's
// command log becomes the initial history.
func New(s *cli.Session) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "look, do take, rope, /help"
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	h := NewHistory(100)
	h.Seed(s.CommandLog())
	return Model{
		session: s,
		input:   ti,
		history: h,
	}
}

// Run starts the Bubble Tea program.
func Run(s *cli.Session) error {
	p := tea.NewProgram(New(s), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init blinks the cursor and prints the story intro.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput())
}

func (m Model) initialOutput() tea.Cmd {
	return func() tea.Msg {
		return sessionOutputMsg{lines: m.session.Intro()}
	}
}

// Update handles key presses, resizes and session output.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	case sessionOutputMsg:
		m = m.appendOutput(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// resize lays out the viewport above the status bar and the input line.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	vpHeight := max(height-2, 1)

	if m.ready {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	} else {
		m.viewport = viewport.New(width, vpHeight)
		m.viewport.KeyMap = viewportKeyMap()
		m.ready = true
	}
	m.refreshViewport()
}

// handleKey deals with the keys the model owns. Anything else goes on to
// the text input.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit, true
	case "enter":
		m, cmd := m.handleEnter()
		return m, cmd, true
	case "tab":
		return m.handleTab(), nil, true
	case "up":
		if prev, ok := m.history.Prev(); ok {
			m.setInput(prev)
		}
		return m, nil, true
	case "down":
		next, ok := m.history.Next()
		if !ok {
			m.history.ResetCursor()
		}
		m.setInput(next)
		return m, nil, true
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd, true
	}
	return m, nil, false
}

func (m *Model) setInput(s string) {
	m.input.SetValue(s)
	m.input.CursorEnd()
}

// handleEnter sends the input line to the session.
func (m Model) handleEnter() (Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	result := m.session.Handle(input)
	m = m.appendOutput(sessionOutputMsg{input: input, lines: result.Output})
	if result.Quit {
		m.quitting = true
		return m, tea.Quit
	}
	if strings.HasPrefix(input, "/load") {
		m.history.Seed(m.session.CommandLog())
	}
	return m, nil
}

// handleTab completes the operand under the cursor and lists the choices
// when more than one name fits.
func (m Model) handleTab() Model {
	completed, matches := complete(m.input.Value(), m.candidates())
	m.setInput(completed)
	if len(matches) > 1 {
		m = m.appendOutput(sessionOutputMsg{lines: []string{"[" + strings.Join(matches, ", ") + "]"}})
	}
	return m
}

// appendOutput adds the echoed input and its output, followed by a blank
// separator line.
func (m Model) appendOutput(msg sessionOutputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, transcriptLine{text: "> " + msg.input, input: true})
	}
	prefix := m.session.NarrationPrefix()
	for _, line := range msg.lines {
		m.rawLines = append(m.rawLines, transcriptLine{text: line, kind: classifyLine(line, prefix)})
	}
	m.rawLines = append(m.rawLines, transcriptLine{})

	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles the transcript at the current
// width and scrolls to the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	width := max(m.width, 10)

	styled := make([]string, len(m.rawLines))
	for i, tl := range m.rawLines {
		if tl.text == "" {
			continue
		}
		wrapped := wordWrap(tl.text, width)
		if tl.input {
			styled[i] = stylePlayerInput.Render(wrapped)
		} else {
			styled[i] = render(wrapped, tl.kind)
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// View renders the viewport, the status bar and the input line.
func (m Model) View() string {
	switch {
	case m.quitting:
		return ""
	case !m.ready:
		return "Loading..."
	}
	return strings.Join([]string{m.viewport.View(), m.renderStatusBar(), m.input.View()}, "\n")
}

// viewportKeyMap leaves up and down to the input history.
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
