// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the snailgpt TUI.
package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TruncateRunes truncates a string to a maximum number of runes,
// appending "..." when truncation happens. Counting runes rather than
// bytes keeps multi-byte UTF-8 characters intact.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateRunesNoEllipsis truncates to maxRunes without appending an
// ellipsis.
func TruncateRunesNoEllipsis(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// TitleFromPrompt derives a session title from the first user message:
// newlines flattened to spaces, then the first maxRunes characters with
// "..." appended when the message is longer. The ellipsis is appended
// after truncation, not budgeted into it, so short prompts pass through
// untouched. Every title, in memory or on disk, comes from this one
// function.
func TitleFromPrompt(prompt string, maxRunes int) string {
	prompt = strings.ReplaceAll(prompt, "\r", "")
	prompt = strings.ReplaceAll(prompt, "\n", " ")
	runes := []rune(prompt)
	if len(runes) <= maxRunes {
		return prompt
	}
	return string(runes[:maxRunes]) + "..."
}

// TruncateWidth truncates a string to a maximum terminal display
// width, accounting for double-width CJK characters.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth > 3 {
		return runewidth.Truncate(s, maxWidth, "...")
	}
	return runewidth.Truncate(s, maxWidth, "")
}

// StringWidth returns the display width of a string in terminal cells.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// RuneLen returns the number of runes in a string. Safer than len()
// for UTF-8 text.
func RuneLen(s string) int {
	return len([]rune(s))
}
