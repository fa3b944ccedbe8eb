// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/snailgpt-tui/internal/model"
	"github.com/jeranaias/snailgpt-tui/internal/ui/components"
	"github.com/jeranaias/snailgpt-tui/internal/ui/styles"
	"github.com/jeranaias/snailgpt-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var body string
	switch m.state {
	case StateError:
		body = m.renderError()
	case StateSessions:
		body = m.renderSessions()
	default:
		body = m.viewport.View()
	}

	sections := []string{m.renderHeader(), body}
	if m.toasts.HasToasts() {
		// Height 0 keeps the stack inline instead of full-screen placed.
		sections = append(sections,
			components.RenderToastStack(m.toasts.Toasts(), m.theme.Palette, m.width, 0))
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("🐌 SnailGPT")
	sub := m.theme.HeaderSubtitle.Render(m.manager.Current().GetTitle())

	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		return m.theme.Header.Width(m.width).Render(title)
	}
	return m.theme.Header.Width(m.width).Render(
		lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", sub),
	)
}

func (m *Model) renderFooter() string {
	input := m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, input, m.renderStatusBar())
}

func (m *Model) renderStatusBar() string {
	badge := m.theme.ModeBadge.Render(strings.ToUpper(m.mode.Name))

	var right string
	if m.state == StateStreaming {
		right = m.theme.ThinkingText.Render("generating, esc to cancel")
	} else {
		parts := []string{
			m.theme.ShortcutKey.Render("enter") + m.theme.ShortcutDesc.Render(" send"),
			m.theme.ShortcutKey.Render("ctrl+s") + m.theme.ShortcutDesc.Render(" sessions"),
			m.theme.ShortcutKey.Render("ctrl+n") + m.theme.ShortcutDesc.Render(" new"),
			m.theme.ShortcutKey.Render("/help"),
		}
		if m.theme.GetLayoutMode() == styles.LayoutNarrow {
			parts = parts[:2]
		}
		right = strings.Join(parts, "  ")
	}

	gap := m.width - lipgloss.Width(badge) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(
		badge + strings.Repeat(" ", gap) + right,
	)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript rebuilds the viewport content from the current
// conversation. Called on every flush tick while streaming, so the
// per-message work stays cheap: glamour runs only on finalized
// assistant messages.
func (m *Model) renderTranscript() {
	conv := m.manager.Current()
	if conv == nil {
		m.viewport.SetContent("")
		return
	}

	var b strings.Builder
	for _, msg := range conv.GetHistory() {
		if msg.Role == model.RoleSystem {
			continue
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		b.WriteString(m.renderWelcome())
	}
	m.viewport.SetContent(b.String())
}

func (m *Model) renderMessage(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		label := m.theme.UserLabel.Render("You")
		body := m.theme.UserBubble.Width(m.bubbleWidth()).Render(msg.Content)
		return label + "\n" + body + "\n"

	case model.RoleAssistant:
		label := m.theme.AssistantLabel.Render("SnailGPT")
		var body string
		if msg.IsStreaming {
			body = m.theme.SnailBubble.Width(m.bubbleWidth()).Render(
				msg.GetDisplayContent() + " " + m.spin.View(),
			)
		} else {
			body = m.theme.SnailBubble.Width(m.bubbleWidth()).Render(
				m.renderMarkdown(msg.Content),
			)
		}
		out := label + "\n" + body + "\n"
		if m.cfg.UI.ShowStats && !msg.IsStreaming {
			if stats := msg.FormatStats(); stats != "" {
				out += m.theme.StatsBar.Render(stats) + "\n"
			}
		}
		return out
	}
	return ""
}

func (m *Model) renderWelcome() string {
	lines := []string{
		"",
		m.theme.HeaderTitle.Render("  Welcome to SnailGPT"),
		"",
		m.theme.ShortcutDesc.Render("  Type a message and press enter."),
		m.theme.ShortcutDesc.Render("  /help lists commands."),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) bubbleWidth() int {
	w := m.width - 4
	if w > 100 {
		w = 100
	}
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// MARKDOWN
// =============================================================================

// rebuildRenderer recreates the glamour renderer for the current width.
func (m *Model) rebuildRenderer() {
	wrap := m.bubbleWidth() - 2
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.renderer = nil
		return
	}
	m.renderer = r
}

// renderMarkdown renders finalized assistant content. Falls back to
// chroma-highlighted code fences, then raw text, when glamour is
// unavailable.
func (m *Model) renderMarkdown(content string) string {
	if m.renderer != nil {
		if out, err := m.renderer.Render(content); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return components.ParseCodeBlocks(content, m.theme.Palette, m.bubbleWidth())
}

// =============================================================================
// PANELS
// =============================================================================

func (m *Model) renderError() string {
	box := m.theme.ErrorBox.Width(m.bubbleWidth()).Render(
		m.theme.ErrorTitle.Render(m.errTitle) + "\n\n" +
			m.theme.ErrorMessage.Render(m.errMessage) + "\n\n" +
			m.theme.ShortcutDesc.Render("press any key to dismiss"),
	)
	return lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderSessions() string {
	var b strings.Builder
	b.WriteString(m.theme.SessionTitle.Render("Saved sessions") + "\n\n")

	if len(m.sessions) == 0 {
		b.WriteString(m.theme.SessionMeta.Render("No saved sessions yet.") + "\n")
	}

	for i, s := range m.sessions {
		line := fmt.Sprintf("%s  %s", util.TruncateWidth(s.Title, 40),
			m.theme.SessionMeta.Render(fmt.Sprintf("%d msgs · %s", s.MessageCount, s.UpdatedAt.Format("Jan 2 15:04"))))
		if i == m.selected {
			b.WriteString(m.theme.SessionItemSelected.Render("> "+line) + "\n")
		} else {
			b.WriteString(m.theme.SessionItem.Render("  "+line) + "\n")
		}
	}

	b.WriteString("\n" + m.theme.ShortcutDesc.Render("enter open · d delete · esc back"))
	return m.theme.SessionList.Width(m.width - 2).Render(b.String())
}
