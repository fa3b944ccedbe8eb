// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the snailgpt TUI.
//
// It contains the atomic file write used by every persistence layer
// and rune/width-aware string helpers used for session titles and
// terminal layout.
package util
