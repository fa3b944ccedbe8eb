// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the current chat session for one account.
package session

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/snailgpt-tui/internal/model"
	"github.com/jeranaias/snailgpt-tui/internal/storage"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager holds the current conversation of the logged-in account and
// drives persistence: dirty tracking, periodic auto-save, and the
// upsert after each completed exchange. Only one conversation is
// current at a time.
type Manager struct {
	mu sync.Mutex

	store     *storage.SessionStore
	accountID string

	conv *model.Conversation

	// Auto-save
	autoSaveEnabled  bool
	autoSaveInterval time.Duration
	lastAutoSave     time.Time
	isDirty          bool
}

// Config holds configuration for the session manager.
type Config struct {
	AutoSaveEnabled  bool
	AutoSaveInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		AutoSaveEnabled:  true,
		AutoSaveInterval: 30 * time.Second,
	}
}

// NewManager creates a manager for one account with a fresh
// conversation. The conversation has no ID until its first save.
func NewManager(store *storage.SessionStore, accountID, modelName string, cfg Config) *Manager {
	return &Manager{
		store:            store,
		accountID:        accountID,
		conv:             model.NewConversation(modelName),
		autoSaveEnabled:  cfg.AutoSaveEnabled,
		autoSaveInterval: cfg.AutoSaveInterval,
		lastAutoSave:     time.Now(),
	}
}

// =============================================================================
// CURRENT CONVERSATION
// =============================================================================

// Current returns the current conversation.
func (m *Manager) Current() *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conv
}

// AccountID returns the owning account's ID.
func (m *Manager) AccountID() string {
	return m.accountID
}

// NewSession discards the current pointer and starts a fresh
// conversation. The old conversation keeps whatever was last saved.
func (m *Manager) NewSession(modelName string) *model.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conv = model.NewConversation(modelName)
	m.isDirty = false
	return m.conv
}

// SwitchTo loads a stored session and makes it current.
func (m *Manager) SwitchTo(id string) (*model.Conversation, error) {
	sess, err := m.store.Load(m.accountID, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.conv = sess.ToConversation()
	m.isDirty = false
	return m.conv, nil
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Save upserts the current conversation. A conversation with no
// finalized assistant text is not persisted: a failed or cancelled
// first exchange leaves no session file behind.
func (m *Manager) Save() error {
	m.mu.Lock()
	conv := m.conv
	m.mu.Unlock()

	if !hasAssistantText(conv) {
		return nil
	}

	id, err := m.store.Upsert(m.accountID, storage.FromConversation(conv))
	if err != nil {
		return err
	}

	m.mu.Lock()
	conv.ID = id
	m.isDirty = false
	m.lastAutoSave = time.Now()
	m.mu.Unlock()
	return nil
}

// hasAssistantText reports whether any assistant message carries
// model-generated content. Cancellation and error notices sit in the
// transcript with the same role but never set Generated, so a
// notice-only exchange does not qualify for persistence.
func hasAssistantText(conv *model.Conversation) bool {
	for _, msg := range conv.GetHistory() {
		if msg.Role == model.RoleAssistant && msg.Generated && msg.GetDisplayContent() != "" {
			return true
		}
	}
	return false
}

// List returns the account's stored sessions, most recent first.
func (m *Manager) List() ([]storage.SessionMeta, error) {
	return m.store.List(m.accountID)
}

// Delete removes one stored session. When it is the current one the
// in-memory conversation is reset as well.
func (m *Manager) Delete(id string) error {
	if err := m.store.Delete(m.accountID, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conv.ID == id {
		m.conv = model.NewConversation(m.conv.Model)
		m.isDirty = false
	}
	return nil
}

// ClearAll removes every stored session of the account and resets the
// current conversation.
func (m *Manager) ClearAll() error {
	if err := m.store.ClearAll(m.accountID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.conv = model.NewConversation(m.conv.Model)
	m.isDirty = false
	return nil
}

// =============================================================================
// DIRTY TRACKING
// =============================================================================

// MarkDirty indicates the session has unsaved changes.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = true
}

// IsDirty returns whether the session has unsaved changes.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isDirty
}

// ShouldAutoSave returns true when the auto-save interval has elapsed
// with unsaved changes.
func (m *Manager) ShouldAutoSave() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.autoSaveEnabled || !m.isDirty {
		return false
	}
	return time.Since(m.lastAutoSave) >= m.autoSaveInterval
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to check session state.
type TickMsg struct {
	Time time.Time
}

// AutoSaveMsg indicates auto-save should occur.
type AutoSaveMsg struct{}

// TickCmd returns a command that ticks once per second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick processes a tick: emits AutoSaveMsg when due and keeps
// the tick loop running.
func (m *Manager) HandleTick() tea.Cmd {
	var cmds []tea.Cmd

	if m.ShouldAutoSave() {
		cmds = append(cmds, func() tea.Msg {
			return AutoSaveMsg{}
		})
	}

	cmds = append(cmds, TickCmd())
	return tea.Batch(cmds...)
}
