// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"
)

// =============================================================================
// CANCELLATION
// =============================================================================

// cancelManager holds the cancel function for the in-flight stream.
// The Update loop sets it when a stream starts and invokes it on Esc;
// the mutex keeps set and cancel ordered across goroutines.
type cancelManager struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

// set stores the cancel function for the active stream, cancelling any
// previous one first so at most one stream runs at a time.
func (cm *cancelManager) set(cancel context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel != nil {
		cm.cancel()
	}
	cm.cancel = cancel
}

// fire cancels the active stream if one exists and reports whether it did.
func (cm *cancelManager) fire() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancel == nil {
		return false
	}
	cm.cancel()
	cm.cancel = nil
	return true
}

// clear drops the stored cancel function without invoking it. Called
// when the stream ends on its own.
func (cm *cancelManager) clear() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancel = nil
}

// active reports whether a stream is currently cancellable.
func (cm *cancelManager) active() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.cancel != nil
}

// SetCancelFunc registers the cancel function for the stream the root
// program just started on this model's behalf.
func (m *Model) SetCancelFunc(cancel context.CancelFunc) {
	m.cancelMgr.set(cancel)
}

// CancelStream aborts the in-flight stream, if any.
func (m *Model) CancelStream() bool {
	return m.cancelMgr.fire()
}
