// View rendering for the chat TUI: transcript, header, sidebar, footer.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"postop/cmd/postop/ui"
)

// cursorMarker trails the streamed partial so the reader can see the
// reply is still arriving.
const cursorMarker = "▌"

func (m Model) renderTranscript() string {
	if m.session == nil {
		return ""
	}

	var sb strings.Builder

	for _, turn := range m.session.Turns() {
		switch turn.Role {
		case "user":
			userStyle := m.styles.Bold.
				Foreground(m.styles.Theme.Primary).
				MarginTop(1)
			sb.WriteString(userStyle.Render("You") + "\n")
			sb.WriteString(m.styles.UserInput.Render(turn.Content))
			sb.WriteString("\n\n")

		default: // assistant
			assistantStyle := m.styles.Bold.
				Foreground(m.styles.Theme.Accent).
				MarginTop(1)
			sb.WriteString(assistantStyle.Render("Post-Op Assistant") + "\n")

			// Render markdown with panic recovery
			rendered := m.safeRenderMarkdown(turn.Content)
			sb.WriteString(rendered)
			sb.WriteString("\n")
		}
	}

	// The in-flight reply renders below the committed turns with a
	// trailing cursor, re-drawn on every delta.
	if m.isLoading {
		assistantStyle := m.styles.Bold.
			Foreground(m.styles.Theme.Accent).
			MarginTop(1)
		sb.WriteString(assistantStyle.Render("Post-Op Assistant") + "\n")
		sb.WriteString(m.safeRenderMarkdown(m.partial + cursorMarker))
	}

	return sb.String()
}

// safeRenderMarkdown renders markdown with panic recovery
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			// If glamour panics, return plain text
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		rendered, err := m.renderer.Render(content)
		if err == nil {
			return rendered
		}
	}
	return content
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	// Handle Booting State
	if m.isBooting {
		return m.renderBootScreen()
	}

	// Content area (chat viewport + optional error panel + notice)
	content := m.viewport.View()
	if m.err != nil {
		content = lipgloss.JoinVertical(lipgloss.Left, content, m.renderErrorPanel())
	}
	if m.notice != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, m.safeRenderMarkdown(m.notice))
	}
	chatView := m.styles.Content.Render(content)

	if m.showSidebar {
		chatView = lipgloss.JoinHorizontal(lipgloss.Top, chatView, " ", m.renderSidebar())
	}

	// Input area
	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.styles.Theme.Accent).
		Padding(0, 1)

	inputArea := inputStyle.Render(m.textarea.View())

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		chatView,
		inputArea,
		m.renderFooter(),
	)
}

func (m Model) renderErrorPanel() string {
	if m.err == nil {
		return ""
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(ui.Destructive).
		Render("Error")

	body := m.styles.Error.Render(m.err.Error())
	hint := m.styles.Muted.Render("Your question is kept; send it again or ask something else.")

	panelStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.Destructive).
		Padding(0, 1).
		Width(m.viewport.Width).
		MaxWidth(m.viewport.Width)

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, body, hint))
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" 🏥 Dr. Carofino's Post-Op Assistant ")

	var status string
	if m.isLoading {
		spin := m.spinner.View()
		status = lipgloss.JoinHorizontal(lipgloss.Center, spin, " ", m.styles.Badge.Render("Streaming reply"))
	} else {
		status = m.styles.Success.Render("Ready")
	}

	headerLine := lipgloss.JoinHorizontal(
		lipgloss.Center,
		title,
		"  ",
		status,
	)

	subtitle := m.styles.Muted.Render(" Ask me anything about your post-operative care and recovery.")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		headerLine,
		subtitle,
		m.styles.RenderDivider(m.width),
	)
}

// renderSidebar shows the about text, the safety notes, and what
// reference material is loaded. The counts never change after boot.
func (m Model) renderSidebar() string {
	if m.session == nil {
		return ""
	}
	bundle := m.session.Bundle()

	var sb strings.Builder

	sb.WriteString(m.styles.Title.Render("About") + "\n")
	sb.WriteString("This chatbot helps you understand your post-operative care instructions.\n\n")

	sb.WriteString(m.styles.Bold.Render("Important Notes:") + "\n")
	sb.WriteString("• This is for informational purposes only\n")
	sb.WriteString("• Always follow your doctor's specific instructions\n")
	sb.WriteString("• For urgent concerns, contact your doctor's office or seek emergency care\n\n")

	sb.WriteString(m.styles.Title.Render("Loaded Resources") + "\n")
	sb.WriteString(fmt.Sprintf("📄 PDF Handouts: %d\n", bundle.DocumentCount()))
	if bundle != nil && bundle.Protocols != "" {
		sb.WriteString(fmt.Sprintf("📋 Protocol Files: %d\n", bundle.ProtocolCount()))
	}

	if bundle != nil && len(bundle.Warnings) > 0 {
		sb.WriteString("\n" + m.styles.Warning.Render("Skipped at load:") + "\n")
		for _, w := range bundle.Warnings {
			sb.WriteString(m.styles.Muted.Render("• "+w) + "\n")
		}
	}

	return m.styles.Sidebar.
		Width(sidebarWidth - 2).
		Render(sb.String())
}

func (m Model) renderFooter() string {
	timestamp := time.Now().Format("15:04")
	hotkeys := "Enter: send | Ctrl+L: clear history | /help | Ctrl+C: exit"

	help := m.styles.Muted.Render(fmt.Sprintf("%s | %s", timestamp, hotkeys))
	return lipgloss.NewStyle().
		MarginTop(1).
		Render(help)
}

func (m Model) renderBootScreen() string {
	spin := m.spinner.View()
	title := m.styles.Header.Render(" 🏥 Dr. Carofino's Post-Op Assistant ")
	subtitle := m.styles.Badge.Render("Loading post-operative handouts…")
	detail := m.styles.Muted.Render("Reading handout PDFs and protocol files...")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"\n",
		spin,
		"\n",
		subtitle,
		detail,
	)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		content,
	)
}
