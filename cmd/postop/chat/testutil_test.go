// Test utilities for the chat package: a scripted completion stream, a
// model builder, and message fixtures.
package chat

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"postop/cmd/postop/ui"
	"postop/internal/config"
	"postop/internal/handouts"
	"postop/internal/llm"
	"postop/internal/session"
)

// =============================================================================
// SCRIPTED STREAMER
// =============================================================================

// recordedCall captures one Stream invocation.
type recordedCall struct {
	System   string
	Messages []llm.Message
}

// stubStreamer plays back a scripted delta sequence, optionally ending
// in an error, and records every call it sees. The channel discipline
// mirrors the real client: both channels close when the stream ends,
// and a failure is buffered on the error channel first.
type stubStreamer struct {
	mu     sync.Mutex
	deltas []string
	err    error
	calls  []recordedCall
}

func newStubStreamer(deltas ...string) *stubStreamer {
	return &stubStreamer{deltas: deltas}
}

func (s *stubStreamer) failWith(err error) *stubStreamer {
	s.err = err
	return s
}

func (s *stubStreamer) Stream(_ context.Context, system string, messages []llm.Message) (<-chan string, <-chan error) {
	s.mu.Lock()
	s.calls = append(s.calls, recordedCall{System: system, Messages: messages})
	deltas, err := s.deltas, s.err
	s.mu.Unlock()

	contentChan := make(chan string, len(deltas)+1)
	errorChan := make(chan error, 1)
	for _, d := range deltas {
		contentChan <- d
	}
	if err != nil {
		errorChan <- err
	}
	close(contentChan)
	close(errorChan)
	return contentChan, errorChan
}

func (s *stubStreamer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubStreamer) lastCall() recordedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return recordedCall{}
	}
	return s.calls[len(s.calls)-1]
}

// MockError is a simple error type for testing.
type MockError struct {
	msg string
}

func (e *MockError) Error() string {
	return e.msg
}

// =============================================================================
// FIXTURE BUNDLES
// =============================================================================

// testBundle builds a bundle with the given number of handout PDFs and
// protocol files.
func testBundle(docs, protocols int) *handouts.Bundle {
	b := &handouts.Bundle{}
	for i := 0; i < docs; i++ {
		b.Documents = append(b.Documents, handouts.Document{
			Filename: "handout.pdf",
			Data:     "JVBERi0xLjQ=",
			Size:     9,
		})
	}
	for i := 0; i < protocols; i++ {
		name := "protocol.txt"
		b.ProtocolFiles = append(b.ProtocolFiles, name)
		b.Protocols += handouts.ProtocolHeader(name) + "Rest and elevate."
	}
	return b
}

// =============================================================================
// TEST MODEL BUILDER
// =============================================================================

// TestModelOption configures a test model.
type TestModelOption func(*Model)

// NewTestModel creates a minimal Model suitable for testing.
// It initializes all required fields with lightweight defaults.
func NewTestModel(opts ...TestModelOption) Model {
	ta := textarea.New()
	ta.Placeholder = "Test input..."
	ta.SetWidth(80)
	ta.SetHeight(2)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)

	styles := ui.DefaultStyles()

	m := Model{
		textarea:     ta,
		viewport:     vp,
		spinner:      sp,
		styles:       styles,
		cfg:          *config.DefaultConfig(),
		client:       newStubStreamer("ok"),
		session:      session.New(testBundle(2, 1)),
		isBooting:    false,
		ready:        true,
		width:        100,
		height:       40,
		showSidebar:  true,
		shutdownOnce: &sync.Once{},
	}

	// Try to initialize glamour renderer (may fail in test environment)
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("light"),
		glamour.WithWordWrap(76),
	)
	m.renderer = renderer

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

// WithBooting sets the model to booting state.
func WithBooting(booting bool) TestModelOption {
	return func(m *Model) {
		m.isBooting = booting
		m.ready = !booting
	}
}

// WithBundle replaces the session with a fresh one over the bundle.
func WithBundle(b *handouts.Bundle) TestModelOption {
	return func(m *Model) {
		m.session = session.New(b)
	}
}

// WithStreamer sets the completion stream source.
func WithStreamer(s Streamer) TestModelOption {
	return func(m *Model) {
		m.client = s
	}
}

// WithLoader sets the boot-time bundle loader.
func WithLoader(l BundleLoader) TestModelOption {
	return func(m *Model) {
		m.loader = l
	}
}

// WithSize sets the terminal dimensions.
func WithSize(width, height int) TestModelOption {
	return func(m *Model) {
		m.width = width
		m.height = height
		m.viewport = viewport.New(width, height-chromeHeight)
		m.textarea.SetWidth(width - 4)
		m.showSidebar = width >= sidebarMinCols
	}
}

// WithLoading sets the loading state.
func WithLoading(loading bool) TestModelOption {
	return func(m *Model) {
		m.isLoading = loading
	}
}

// =============================================================================
// MESSAGE FIXTURES
// =============================================================================

// TestMessages provides common message fixtures for testing.
var TestMessages = struct {
	WindowResize100x40 tea.Msg
	WindowResize80x24  tea.Msg

	KeyEnter tea.Msg
	KeyEsc   tea.Msg
	KeyCtrlC tea.Msg
	KeyCtrlL tea.Msg
}{
	WindowResize100x40: tea.WindowSizeMsg{Width: 100, Height: 40},
	WindowResize80x24:  tea.WindowSizeMsg{Width: 80, Height: 24},

	KeyEnter: tea.KeyMsg{Type: tea.KeyEnter},
	KeyEsc:   tea.KeyMsg{Type: tea.KeyEsc},
	KeyCtrlC: tea.KeyMsg{Type: tea.KeyCtrlC},
	KeyCtrlL: tea.KeyMsg{Type: tea.KeyCtrlL},
}

// =============================================================================
// TEST HELPERS
// =============================================================================

// SimulateMessages sends messages through Update and returns the final model.
func SimulateMessages(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		newModel, _ := m.Update(msg)
		m = newModel.(Model)
	}
	return m
}

// SimulateInput simulates typing text and pressing Enter.
func SimulateInput(m Model, input string) (Model, tea.Cmd) {
	m.textarea.SetValue(input)
	newModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return newModel.(Model), cmd
}

// drainStream runs the delta pump to completion, feeding every message
// back through Update the way the bubbletea runtime would.
func drainStream(m Model) Model {
	for m.isLoading {
		msg := m.waitForDelta()()
		newModel, _ := m.Update(msg)
		m = newModel.(Model)
	}
	return m
}
