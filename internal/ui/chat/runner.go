// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/snailgpt-tui/internal/cloud"
)

// =============================================================================
// STREAM RUNNER
// =============================================================================

// SetSender installs the program's message injector. Must be called
// after tea.NewProgram and before the first submit; tokens from the
// network goroutine reach the Update loop through it.
func (m *Model) SetSender(send func(tea.Msg)) {
	m.send = send
}

// handleStreamRequest starts the network goroutine for one completion.
// Everything the goroutine touches is captured here; it communicates
// with the model only through send.
func (m *Model) handleStreamRequest(msg StreamRequestMsg) (tea.Model, tea.Cmd) {
	if m.send == nil {
		m.finalizeStream(nil, "Internal error: no message sender installed.")
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	messages := m.client.BuildMessages(m.manager.Current(), m.mode)

	client := m.client
	mode := m.mode
	send := m.send
	id := msg.MessageID

	go func() {
		defer cancel()

		send(NewStreamStartMsg(id))

		first := true
		count := 0
		err := client.ChatStream(ctx, messages, mode, func(chunk cloud.StreamChunk) {
			token := chunk.GetContent()
			if token == "" {
				return
			}
			send(StreamTokenMsg{MessageID: id, Token: token, IsFirst: first})
			first = false
			count++
		})

		switch {
		case err == nil:
			send(StreamCompleteMsg{MessageID: id, TokenCount: count})
		case errors.Is(err, context.Canceled):
			send(StreamCancelledMsg{MessageID: id})
		default:
			send(StreamErrorMsg{MessageID: id, Err: err})
		}
	}()

	return m, nil
}
