// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"time"
)

// =============================================================================
// ANIMATION LEVELS
// =============================================================================

// AnimationLevel controls how much motion the UI produces. Reduced
// keeps the spinner but slows it; off renders static indicators only.
type AnimationLevel int

const (
	AnimationFull AnimationLevel = iota
	AnimationReduced
	AnimationOff
)

// AnimationLevelByName resolves a config value. Unknown names mean
// full.
func AnimationLevelByName(name string) AnimationLevel {
	switch name {
	case "reduced":
		return AnimationReduced
	case "off":
		return AnimationOff
	default:
		return AnimationFull
	}
}

// String returns the config name for the level.
func (l AnimationLevel) String() string {
	switch l {
	case AnimationReduced:
		return "reduced"
	case AnimationOff:
		return "off"
	default:
		return "full"
	}
}

// =============================================================================
// SPINNERS
// =============================================================================

// SpinnerConfig holds the frames and speed for one spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration of each frame.
func (s SpinnerConfig) Duration() time.Duration {
	return time.Second / time.Duration(s.FPS)
}

// LineSpinner is the default thinking indicator.
var LineSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// DotsSpinner is the reduced-motion indicator.
var DotsSpinner = SpinnerConfig{
	Frames: []string{".  ", ".. ", "...", "   "},
	FPS:    4,
}

// StaticIndicator is shown when animation is off.
const StaticIndicator = "..."

// SpinnerFor returns the spinner appropriate for an animation level.
// At AnimationOff the returned config has a single static frame.
func SpinnerFor(level AnimationLevel) SpinnerConfig {
	switch level {
	case AnimationReduced:
		return DotsSpinner
	case AnimationOff:
		return SpinnerConfig{Frames: []string{StaticIndicator}, FPS: 1}
	default:
		return LineSpinner
	}
}

// =============================================================================
// PROGRESS
// =============================================================================

const (
	progressFull  = "#"
	progressEmpty = "-"
)

// RenderProgressBar renders an ASCII progress bar of the given width
// for a 0-100 percentage.
func RenderProgressBar(width int, percent float64) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(float64(width) * percent / 100)

	var sb strings.Builder
	sb.Grow(width)
	for i := 0; i < filled; i++ {
		sb.WriteString(progressFull)
	}
	for i := filled; i < width; i++ {
		sb.WriteString(progressEmpty)
	}
	return sb.String()
}
