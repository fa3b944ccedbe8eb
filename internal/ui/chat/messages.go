// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the TUI.
//
// This file defines the Bubble Tea message types used by the chat
// interface: stream lifecycle, session management, and error display.
package chat

import (
	"time"

	"github.com/jeranaias/snailgpt-tui/internal/config"
	"github.com/jeranaias/snailgpt-tui/internal/model"
	"github.com/jeranaias/snailgpt-tui/internal/storage"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamRequestMsg asks the program root to start a completion stream.
// The chat model emits it after committing the user's message; the
// root spawns the network goroutine and feeds tokens back.
type StreamRequestMsg struct {
	MessageID string
	Prompt    string
}

// StreamStartMsg signals that streaming has begun.
type StreamStartMsg struct {
	MessageID string
	StartTime time.Time
}

// StreamTokenMsg delivers new content from the stream.
type StreamTokenMsg struct {
	MessageID string
	Token     string
	IsFirst   bool
}

// StreamTickMsg is sent at ~30fps during streaming so buffered tokens
// render in batches instead of per token.
type StreamTickMsg struct {
	Time time.Time
}

// StreamCompleteMsg signals that the stream finished normally. Stats
// may be nil, in which case the view finalizes its own statistics
// using TokenCount.
type StreamCompleteMsg struct {
	MessageID  string
	TokenCount int
	Stats      *model.Statistics
}

// StreamCancelledMsg signals that the user aborted the stream.
type StreamCancelledMsg struct {
	MessageID string
}

// StreamErrorMsg signals a failure during streaming.
type StreamErrorMsg struct {
	MessageID string
	Err       error
}

// NewStreamStartMsg creates a StreamStartMsg stamped now.
func NewStreamStartMsg(messageID string) StreamStartMsg {
	return StreamStartMsg{MessageID: messageID, StartTime: time.Now()}
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionSavedMsg confirms a session save.
type SessionSavedMsg struct {
	ID  string
	Err error
}

// SessionListMsg delivers the account's saved sessions.
type SessionListMsg struct {
	Sessions []storage.SessionMeta
	Err      error
}

// SessionSwitchedMsg confirms switching to a saved session.
type SessionSwitchedMsg struct {
	ID  string
	Err error
}

// SessionDeletedMsg confirms a session delete.
type SessionDeletedMsg struct {
	ID  string
	Err error
}

// SessionsClearedMsg confirms clearing all of the account's sessions.
type SessionsClearedMsg struct {
	Err error
}

// ExportDoneMsg reports the outcome of a transcript export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// ConfigReloadedMsg delivers a freshly loaded config after the file
// changed on disk. Presentation settings apply live; connection
// settings take effect on restart.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

// ErrorMsg displays a blocking error panel.
type ErrorMsg struct {
	Title   string
	Message string
}

// ErrorDismissMsg dismisses the current error panel.
type ErrorDismissMsg struct{}
