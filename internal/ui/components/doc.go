// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable UI pieces for the SnailGPT TUI:
// non-blocking toast notifications and syntax-highlighted code blocks.
package components
