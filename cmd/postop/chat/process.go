package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"postop/internal/logging"
)

// startTurn appends the user turn, assembles the request from the full
// transcript plus reference bundle, and opens the completion stream.
func (m Model) startTurn(input string) (tea.Model, tea.Cmd) {
	if err := m.session.AppendUser(input); err != nil {
		// Blank input is filtered before this point; nothing to do.
		return m, nil
	}
	m.textarea.Reset()
	m.notice = ""
	m.err = nil
	m.partial = ""

	system, messages := m.session.Assemble()

	ctx, cancel := context.WithCancel(context.Background())
	m.streamCancel = cancel
	m.deltas, m.streamErrs = m.client.Stream(ctx, system, messages)
	m.isLoading = true

	logging.UIDebug("turn started: %d transcript turns, %d wire messages",
		m.session.Len(), len(messages))

	m.refreshTranscript()
	return m, tea.Batch(m.spinner.Tick, m.waitForDelta())
}

// waitForDelta blocks until the stream yields its next fragment, then
// resurfaces it as a message. Update re-arms it after every delta, so
// exactly one listener is pending at a time. A closed delta channel
// means the stream finished; the error channel then says how.
func (m Model) waitForDelta() tea.Cmd {
	deltas, errs := m.deltas, m.streamErrs
	return func() tea.Msg {
		delta, ok := <-deltas
		if !ok {
			if err := <-errs; err != nil {
				return streamErrMsg{err: err}
			}
			return streamDoneMsg{}
		}
		return streamDeltaMsg(delta)
	}
}
