// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the SnailGPT
// TUI: selectable color palettes, a Theme of lipgloss styles built
// from the configured palette and detected terminal capabilities, and
// animation-level-aware spinners.
package styles
