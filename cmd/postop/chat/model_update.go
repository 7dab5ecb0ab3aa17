package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"postop/internal/logging"
	"postop/internal/session"
)

// Layout constants; heights are rows, widths are columns.
const (
	sidebarWidth   = 34
	sidebarMinCols = 96
	chromeHeight   = 10 // header + input + footer + borders
)

// Update routes messages to the state machine.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Shutdown()
			return m, tea.Quit

		case tea.KeyCtrlL:
			if !m.isLoading && !m.isBooting {
				return m.clearTranscript()
			}
			return m, nil

		case tea.KeyEnter:
			// Alt+Enter and pasted newlines go to the textarea; plain
			// Enter submits.
			if msg.Alt || msg.Paste {
				break
			}
			if !m.isLoading && !m.isBooting {
				return m.handleSubmit()
			}
			return m, nil
		}

		// Keystrokes reach the textarea only between turns.
		if !m.isLoading {
			m.textarea, taCmd = m.textarea.Update(msg)
		}
		return m, taCmd

	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case spinner.TickMsg:
		if m.isLoading || m.isBooting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case bootCompleteMsg:
		return m.handleBootComplete(msg), nil

	case streamDeltaMsg:
		m.partial += string(msg)
		m.refreshTranscript()
		return m, m.waitForDelta()

	case streamDoneMsg:
		return m.commitTurn(), nil

	case streamErrMsg:
		return m.failTurn(msg.err), nil
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, vpCmd
}

// handleResize recomputes the layout and re-renders the transcript at
// the new wrap width.
func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.showSidebar = msg.Width >= sidebarMinCols

	chatWidth := msg.Width - 4
	if m.showSidebar {
		chatWidth -= sidebarWidth + 1
	}
	if chatWidth < 20 {
		chatWidth = 20
	}

	chatHeight := msg.Height - chromeHeight
	if chatHeight < 3 {
		chatHeight = 3
	}

	m.viewport.Width = chatWidth
	m.viewport.Height = chatHeight
	m.textarea.SetWidth(chatWidth - 2)
	m.renderer = newRenderer(m.styles, chatWidth-2)

	if !m.ready {
		m.ready = true
	}
	m.refreshTranscript()
	return m
}

// handleBootComplete installs the loaded bundle and opens the session.
// A failed load still opens an empty session so the assistant can run
// on its persona alone.
func (m Model) handleBootComplete(msg bootCompleteMsg) Model {
	m.isBooting = false
	if msg.err != nil {
		m.err = fmt.Errorf("loading reference material: %w", msg.err)
		logging.UIError("boot failed: %v", msg.err)
	} else {
		logging.UI("boot complete: %d handouts, %d protocols",
			msg.bundle.DocumentCount(), msg.bundle.ProtocolCount())
	}
	m.session = session.New(msg.bundle)
	m.refreshTranscript()
	return m
}

// handleSubmit reads the textarea and dispatches a command or a chat
// turn. Blank input is ignored.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}
	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}
	return m.startTurn(input)
}

// commitTurn appends the streamed reply to the transcript.
func (m Model) commitTurn() Model {
	if err := m.session.AppendAssistant(m.partial); err != nil {
		m.err = err
	}
	logging.UIDebug("turn committed: %d chars", len(m.partial))
	return m.endStream()
}

// failTurn surfaces the provider failure without touching the
// transcript: the unanswered user turn stays, and the next submit may
// follow it directly.
func (m Model) failTurn(err error) Model {
	m.err = err
	logging.UIError("turn failed: %v", err)
	return m.endStream()
}

// endStream tears down per-turn streaming state.
func (m Model) endStream() Model {
	if m.streamCancel != nil {
		m.streamCancel()
		m.streamCancel = nil
	}
	m.deltas = nil
	m.streamErrs = nil
	m.partial = ""
	m.isLoading = false
	m.refreshTranscript()
	return m
}

// refreshTranscript re-renders the transcript into the viewport and
// pins it to the newest line.
func (m *Model) refreshTranscript() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}
