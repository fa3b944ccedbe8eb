// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// Palette is one selectable color theme. Every color is a lipgloss
// AdaptiveColor so light and dark terminal backgrounds both work.
type Palette struct {
	ID string

	// Accents
	Accent     lipgloss.AdaptiveColor // brand, prompts, highlights
	AccentSoft lipgloss.AdaptiveColor // secondary accent
	Success    lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor
	Danger     lipgloss.AdaptiveColor
	DangerDeep lipgloss.AdaptiveColor

	// Surfaces
	Surface    lipgloss.AdaptiveColor
	SurfaceDim lipgloss.AdaptiveColor
	Overlay    lipgloss.AdaptiveColor

	// Text
	TextPrimary   lipgloss.AdaptiveColor
	TextSecondary lipgloss.AdaptiveColor
	TextMuted     lipgloss.AdaptiveColor
	TextInverse   lipgloss.AdaptiveColor

	// Message bubbles
	UserFg        lipgloss.AdaptiveColor
	UserBorder    lipgloss.AdaptiveColor
	SnailFg       lipgloss.AdaptiveColor
	SnailBorder   lipgloss.AdaptiveColor
	NoticeFg      lipgloss.AdaptiveColor
	NoticeBorder  lipgloss.AdaptiveColor
}

// DefaultThemeID is used when the configured theme is unknown.
const DefaultThemeID = "shell"

// shell is the default SnailGPT look: green accents on a neutral
// surface.
var shell = Palette{
	ID:         "shell",
	Accent:     lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"},
	AccentSoft: lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"},
	Success:    lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#22C55E"},
	Warning:    lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"},
	Danger:     lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"},
	DangerDeep: lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#881337"},

	Surface:    lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"},
	SurfaceDim: lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"},
	Overlay:    lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"},

	TextPrimary:   lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"},
	TextSecondary: lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"},
	TextMuted:     lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"},
	TextInverse:   lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"},

	UserFg:       lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#E0F2FE"},
	UserBorder:   lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"},
	SnailFg:      lipgloss.AdaptiveColor{Light: "#065F46", Dark: "#A7F3D0"},
	SnailBorder:  lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"},
	NoticeFg:     lipgloss.AdaptiveColor{Light: "#92400E", Dark: "#FEF3C7"},
	NoticeBorder: lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#F59E0B"},
}

// dusk is a purple-leaning alternative.
var dusk = Palette{
	ID:         "dusk",
	Accent:     lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"},
	AccentSoft: lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"},
	Success:    lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#22C55E"},
	Warning:    lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"},
	Danger:     lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"},
	DangerDeep: lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#881337"},

	Surface:    lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"},
	SurfaceDim: lipgloss.AdaptiveColor{Light: "#F5F3FF", Dark: "#181825"},
	Overlay:    lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"},

	TextPrimary:   lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"},
	TextSecondary: lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"},
	TextMuted:     lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"},
	TextInverse:   lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"},

	UserFg:       lipgloss.AdaptiveColor{Light: "#1E40AF", Dark: "#E0F2FE"},
	UserBorder:   lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#3B82F6"},
	SnailFg:      lipgloss.AdaptiveColor{Light: "#5B4B8A", Dark: "#E9E4F5"},
	SnailBorder:  lipgloss.AdaptiveColor{Light: "#C4B5FD", Dark: "#A78BFA"},
	NoticeFg:     lipgloss.AdaptiveColor{Light: "#92400E", Dark: "#FEF3C7"},
	NoticeBorder: lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#F59E0B"},
}

// mono is a low-color palette for limited terminals.
var mono = Palette{
	ID:         "mono",
	Accent:     lipgloss.AdaptiveColor{Light: "#111827", Dark: "#E5E7EB"},
	AccentSoft: lipgloss.AdaptiveColor{Light: "#374151", Dark: "#D1D5DB"},
	Success:    lipgloss.AdaptiveColor{Light: "#111827", Dark: "#E5E7EB"},
	Warning:    lipgloss.AdaptiveColor{Light: "#374151", Dark: "#D1D5DB"},
	Danger:     lipgloss.AdaptiveColor{Light: "#111827", Dark: "#E5E7EB"},
	DangerDeep: lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"},

	Surface:    lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111827"},
	SurfaceDim: lipgloss.AdaptiveColor{Light: "#F9FAFB", Dark: "#1F2937"},
	Overlay:    lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"},

	TextPrimary:   lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"},
	TextSecondary: lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"},
	TextMuted:     lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"},
	TextInverse:   lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#111827"},

	UserFg:       lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"},
	UserBorder:   lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"},
	SnailFg:      lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"},
	SnailBorder:  lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"},
	NoticeFg:     lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"},
	NoticeBorder: lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6B7280"},
}

var palettes = map[string]Palette{
	shell.ID: shell,
	dusk.ID:  dusk,
	mono.ID:  mono,
}

// PaletteByID resolves a theme id from config, falling back to the
// default when unknown.
func PaletteByID(id string) Palette {
	if p, ok := palettes[id]; ok {
		return p
	}
	return palettes[DefaultThemeID]
}

// ThemeIDs returns the selectable theme ids.
func ThemeIDs() []string {
	return []string{shell.ID, dusk.ID, mono.ID}
}
