// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

const (
	// tokenBatchSize is how many tokens accumulate before a flush is due.
	tokenBatchSize = 15

	// streamFPS is the render cadence while streaming.
	streamFPS = 30

	// minFlushInterval throttles flushes between ticks.
	minFlushInterval = 33 * time.Millisecond
)

// StreamingBuffer batches incoming tokens so the viewport re-renders at
// a fixed frame rate instead of once per token. Safe for concurrent use:
// the network goroutine writes while the Update loop flushes.
type StreamingBuffer struct {
	mu        sync.Mutex
	pending   strings.Builder
	count     int
	lastFlush time.Time
}

// NewStreamingBuffer creates an empty buffer.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{lastFlush: time.Now()}
}

// Write appends a token and reports whether a flush is due, either
// because the batch filled or enough time passed since the last flush.
func (b *StreamingBuffer) Write(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending.WriteString(token)
	b.count++

	if b.count >= tokenBatchSize {
		return true
	}
	return time.Since(b.lastFlush) >= minFlushInterval
}

// Flush returns the pending content if the throttle interval elapsed,
// or "" if it is too soon. Resets the batch counter on flush.
func (b *StreamingBuffer) Flush() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if time.Since(b.lastFlush) < minFlushInterval {
		return ""
	}
	return b.flushLocked()
}

// ForceFlush returns any pending content regardless of timing. Used at
// stream completion so no tail tokens are dropped.
func (b *StreamingBuffer) ForceFlush() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

func (b *StreamingBuffer) flushLocked() string {
	out := b.pending.String()
	b.pending.Reset()
	b.count = 0
	b.lastFlush = time.Now()
	return out
}

// Pending reports whether unflushed content exists.
func (b *StreamingBuffer) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Len() > 0
}

// Reset discards all pending content.
func (b *StreamingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.Reset()
	b.count = 0
	b.lastFlush = time.Now()
}

// streamTickCmd schedules the next render tick while streaming.
func streamTickCmd() tea.Cmd {
	return tea.Tick(time.Second/streamFPS, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
