package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// helpText documents the slash commands and key bindings. Rendered as
// markdown into the notice area, not into the transcript.
const helpText = `## Commands

| Command | Description |
|---------|-------------|
| /help | Show this help |
| /clear | Clear the chat history (handouts stay loaded) |
| /quit, /exit, /q | Exit |

## Keys

- **Enter** sends your message (Alt+Enter for a newline)
- **Ctrl+L** clears the chat history
- **Ctrl+C** or **Esc** exits

Answers come from your clinic's post-operative handouts and protocols.
`

// handleCommand dispatches a slash command. Command output is shown in
// the notice area only; the transcript carries nothing but real turns.
func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])

	switch command {
	case "/quit", "/exit", "/q":
		m.Shutdown()
		return m, tea.Quit

	case "/clear":
		return m.clearTranscript()

	case "/help", "/?":
		m.notice = helpText
		m.textarea.Reset()
		return m, nil

	default:
		m.notice = fmt.Sprintf("Unknown command: %s. Type /help for available commands.", command)
		m.textarea.Reset()
		return m, nil
	}
}

// clearTranscript empties the chat history. The reference bundle stays
// loaded; the next question starts a fresh conversation over the same
// material.
func (m Model) clearTranscript() (tea.Model, tea.Cmd) {
	m.session.Clear()
	m.err = nil
	m.notice = "Chat history cleared."
	m.textarea.Reset()
	m.refreshTranscript()
	return m, nil
}
