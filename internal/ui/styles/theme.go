// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the chat UI, built from one
// palette plus detected terminal capabilities.
type Theme struct {
	Palette      Palette
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile
	Animation    AnimationLevel

	Width  int
	Height int

	// ===== CONTAINERS =====

	App       lipgloss.Style
	Container lipgloss.Style

	// ===== HEADER =====

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ===== MESSAGES =====

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBubble     lipgloss.Style
	SnailBubble    lipgloss.Style
	NoticeBubble   lipgloss.Style
	CancelNotice   lipgloss.Style

	// ===== INPUT =====

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputText        lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ===== STATUS BAR =====

	StatusBar    lipgloss.Style
	ModeBadge    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ===== SPINNER / THINKING =====

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// ===== ERRORS =====

	ErrorBox     lipgloss.Style
	ErrorTitle   lipgloss.Style
	ErrorMessage lipgloss.Style
	ToastBox     lipgloss.Style

	// ===== SESSION LIST =====

	SessionList         lipgloss.Style
	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style
	SessionTitle        lipgloss.Style
	SessionMeta         lipgloss.Style

	// ===== STATS =====

	StatsBar   lipgloss.Style
	StatsValue lipgloss.Style
}

// NewTheme builds a theme from a configured theme id and animation
// level, detecting the terminal's color capability and background.
func NewTheme(themeID string, animation AnimationLevel) *Theme {
	profile := termenv.ColorProfile()

	t := &Theme{
		Palette:      PaletteByID(themeID),
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
		Animation:    animation,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	p := t.Palette

	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent).
		Background(p.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Padding(0, 2).
		Align(lipgloss.Center)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Italic(true)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.UserBorder)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.SnailBorder)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(p.UserFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(p.UserBorder).
		PaddingLeft(1).
		MarginLeft(2)

	t.SnailBubble = lipgloss.NewStyle().
		Foreground(p.SnailFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(p.SnailBorder).
		PaddingLeft(1)

	t.NoticeBubble = lipgloss.NewStyle().
		Foreground(p.NoticeFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(p.NoticeBorder).
		PaddingLeft(1).
		Italic(true)

	t.CancelNotice = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(p.Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.InputText = lipgloss.NewStyle().
		Foreground(p.TextPrimary)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(p.SurfaceDim).
		Foreground(p.TextSecondary).
		Padding(0, 1)

	t.ModeBadge = lipgloss.NewStyle().
		Foreground(p.AccentSoft).
		Bold(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(p.TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(p.Accent)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(p.TextSecondary)

	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(p.Danger).
		Padding(1, 2)

	t.ErrorTitle = lipgloss.NewStyle().
		Foreground(p.Danger).
		Bold(true)

	t.ErrorMessage = lipgloss.NewStyle().
		Foreground(p.TextPrimary)

	t.ToastBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Danger).
		Foreground(p.Danger).
		Padding(0, 1)

	t.SessionList = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(p.Accent).
		Padding(1, 2)

	t.SessionItem = lipgloss.NewStyle().
		Foreground(p.TextPrimary).
		Padding(0, 1)

	t.SessionItemSelected = lipgloss.NewStyle().
		Background(p.Accent).
		Foreground(p.TextInverse).
		Bold(true).
		Padding(0, 1)

	t.SessionTitle = lipgloss.NewStyle().
		Foreground(p.Accent).
		Bold(true)

	t.SessionMeta = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		Italic(true)

	t.StatsBar = lipgloss.NewStyle().
		Foreground(p.TextMuted).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(p.Overlay).
		Padding(0, 1)

	t.StatsValue = lipgloss.NewStyle().
		Foreground(p.TextSecondary).
		Bold(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// LayoutMode is the responsive layout bucket for the current width.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)

// GetLayoutMode returns the layout bucket for the current width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}
