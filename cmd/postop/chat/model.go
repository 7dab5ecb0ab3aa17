// Package chat implements the interactive post-op assistant TUI: a
// bubbletea program that loads the clinical reference bundle once at
// boot, keeps an append-only transcript, and streams each assistant
// reply into the viewport as it arrives.
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
	"postop/internal/logging"
	"postop/internal/session"
)

// Streamer is the completion surface the turn controller drives.
// *llm.Client satisfies it; tests substitute a scripted stub.
type Streamer interface {
	Stream(ctx context.Context, system string, messages []llm.Message) (<-chan string, <-chan error)
}

// BundleLoader performs the one-time reference load at boot.
// *handouts.Store satisfies it.
type BundleLoader interface {
	Bundle(ctx context.Context) (*handouts.Bundle, error)
}

// Messages delivered to Update.
type (
	// bootCompleteMsg carries the loaded reference bundle (or the load
	// failure) back onto the Update loop.
	bootCompleteMsg struct {
		bundle *handouts.Bundle
		err    error
	}

	// streamDeltaMsg is one text fragment from the in-flight completion.
	streamDeltaMsg string

	// streamDoneMsg signals the completion stream closed cleanly.
	streamDoneMsg struct{}

	// streamErrMsg signals the completion stream failed.
	streamErrMsg struct {
		err error
	}
)

// Model is the bubbletea model for the interactive chat.
type Model struct {
	// UI components
	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   ui.Styles
	renderer *glamour.TermRenderer

	// Collaborators
	cfg    config.Config
	loader BundleLoader
	client Streamer

	// Conversation state
	session *session.Session
	notice  string // view-only command output; never enters the transcript
	err     error  // last provider or boot failure; never enters the transcript

	// Streaming state for the in-flight turn
	isLoading    bool
	partial      string
	deltas       <-chan string
	streamErrs   <-chan error
	streamCancel context.CancelFunc

	// Lifecycle
	isBooting    bool
	ready        bool
	shutdownOnce *sync.Once

	// Layout
	width       int
	height      int
	showSidebar bool
}

// New builds the chat model. The reference bundle is not loaded yet;
// Init kicks off the boot sequence.
func New(cfg config.Config, client Streamer, loader BundleLoader) Model {
	styles := ui.NewStyles(ui.ThemeByName(cfg.UI.Theme))

	ta := textarea.New()
	ta.Placeholder = "Ask about your recovery (e.g., 'When can I shower after rotator cuff surgery?')"
	ta.Focus()
	ta.Prompt = "│ "
	ta.CharLimit = 4000
	ta.SetWidth(76)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	vp := viewport.New(76, 18)

	return Model{
		textarea:     ta,
		viewport:     vp,
		spinner:      sp,
		styles:       styles,
		renderer:     newRenderer(styles, 76),
		cfg:          cfg,
		loader:       loader,
		client:       client,
		isBooting:    true,
		shutdownOnce: &sync.Once{},
		showSidebar:  true,
	}
}

// newRenderer builds a glamour renderer matched to the active theme.
// Glamour only fails on malformed style options, so a nil renderer is
// tolerated downstream by falling back to plain text.
func newRenderer(styles ui.Styles, wrap int) *glamour.TermRenderer {
	if wrap < 20 {
		wrap = 20
	}
	style := "light"
	if styles.Theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return r
}

// Init starts the cursor blink, the spinner, and the reference load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.performBoot(),
	)
}

// performBoot loads the reference bundle off the Update loop.
func (m Model) performBoot() tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		bundle, err := loader.Bundle(context.Background())
		return bootCompleteMsg{bundle: bundle, err: err}
	}
}

// Shutdown cancels any in-flight completion. Safe to call more than
// once.
func (m *Model) Shutdown() {
	m.shutdownOnce.Do(func() {
		if m.streamCancel != nil {
			m.streamCancel()
		}
		logging.UI("chat shutdown")
	})
}

// Run starts the interactive chat program and blocks until it exits.
func Run(cfg config.Config) error {
	client := llm.NewClient(llm.Config{
		APIKey:    cfg.LLM.APIKey,
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	store := handouts.NewStore(cfg.Content.HandoutsDir, cfg.Content.ProtocolsDir)

	model := New(cfg, client, store)
	p := tea.NewProgram(model, tea.WithAltScreen())

	final, err := p.Run()
	if m, ok := final.(Model); ok {
		m.Shutdown()
	}
	return err
}
