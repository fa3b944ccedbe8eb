// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestPaletteByID(t *testing.T) {
	if got := PaletteByID("dusk"); got.ID != "dusk" {
		t.Errorf("PaletteByID(dusk) = %q", got.ID)
	}
	if got := PaletteByID("no-such-theme"); got.ID != DefaultThemeID {
		t.Errorf("unknown theme should fall back to %q, got %q", DefaultThemeID, got.ID)
	}
}

func TestAnimationLevelByName(t *testing.T) {
	tests := []struct {
		name string
		want AnimationLevel
	}{
		{"full", AnimationFull},
		{"reduced", AnimationReduced},
		{"off", AnimationOff},
		{"", AnimationFull},
		{"bogus", AnimationFull},
	}
	for _, tt := range tests {
		if got := AnimationLevelByName(tt.name); got != tt.want {
			t.Errorf("AnimationLevelByName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSpinnerFor(t *testing.T) {
	if s := SpinnerFor(AnimationOff); len(s.Frames) != 1 || s.Frames[0] != StaticIndicator {
		t.Errorf("off level should yield a static frame, got %v", s.Frames)
	}
	if s := SpinnerFor(AnimationFull); len(s.Frames) < 2 {
		t.Error("full level should animate")
	}
	if SpinnerFor(AnimationReduced).FPS >= SpinnerFor(AnimationFull).FPS {
		t.Error("reduced level should be slower than full")
	}
}

func TestRenderProgressBar(t *testing.T) {
	if got := RenderProgressBar(10, 50); got != "#####-----" {
		t.Errorf("RenderProgressBar(10, 50) = %q", got)
	}
	if got := RenderProgressBar(4, 150); got != "####" {
		t.Errorf("overflow should clamp, got %q", got)
	}
	if got := RenderProgressBar(0, 50); got != "" {
		t.Errorf("zero width should be empty, got %q", got)
	}
}

func TestGetLayoutMode(t *testing.T) {
	theme := &Theme{}
	theme.SetSize(40, 20)
	if theme.GetLayoutMode() != LayoutNarrow {
		t.Error("40 columns should be narrow")
	}
	theme.SetSize(80, 20)
	if theme.GetLayoutMode() != LayoutMedium {
		t.Error("80 columns should be medium")
	}
	theme.SetSize(140, 20)
	if theme.GetLayoutMode() != LayoutWide {
		t.Error("140 columns should be wide")
	}
}
