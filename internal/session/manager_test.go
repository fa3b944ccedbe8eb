// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the current chat session for one account.
package session

import (
	"testing"
	"time"

	"github.com/jeranaias/snailgpt-tui/internal/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store, err := storage.NewSessionStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return NewManager(store, "acct-1", "test-model", DefaultConfig())
}

func completeExchange(m *Manager, prompt, reply string) {
	conv := m.Current()
	conv.AddUserMessage(prompt)
	msg := conv.AddAssistantMessage()
	msg.AppendToken(reply)
	msg.FinalizeStream(nil)
	m.MarkDirty()
}

func TestSave_MintsIDOnce(t *testing.T) {
	m := newTestManager(t)
	completeExchange(m, "hello", "hi")

	if m.Current().ID != "" {
		t.Fatal("Conversation should have no ID before first save")
	}

	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	id := m.Current().ID
	if id == "" {
		t.Fatal("Save should mint an ID")
	}

	completeExchange(m, "more", "again")
	if err := m.Save(); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	if m.Current().ID != id {
		t.Errorf("ID changed across saves: %q -> %q", id, m.Current().ID)
	}

	metas, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 1 {
		t.Errorf("Session count = %d, want 1", len(metas))
	}
}

func TestSave_SkipsWithoutAssistantText(t *testing.T) {
	m := newTestManager(t)
	m.Current().AddUserMessage("hello")
	m.MarkDirty()

	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	metas, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("Session count = %d, want 0 (no assistant text yet)", len(metas))
	}
}

func TestSave_SkipsNoticeOnlyConversation(t *testing.T) {
	m := newTestManager(t)
	conv := m.Current()
	conv.AddUserMessage("hello")
	msg := conv.AddAssistantMessage()
	msg.AppendNotice("_Generation cancelled._")
	msg.FinalizeStream(nil)
	m.MarkDirty()

	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	metas, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("Session count = %d, want 0 (notice text only)", len(metas))
	}
}

func TestSave_KeepsPartialReplyWithNotice(t *testing.T) {
	m := newTestManager(t)
	conv := m.Current()
	conv.AddUserMessage("hello")
	msg := conv.AddAssistantMessage()
	msg.AppendToken("partial answer")
	msg.AppendNotice("\n\n_Generation cancelled._")
	msg.FinalizeStream(nil)
	m.MarkDirty()

	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	metas, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 1 {
		t.Errorf("Session count = %d, want 1 (partial reply present)", len(metas))
	}
}

func TestNewSessionAndSwitchBack(t *testing.T) {
	m := newTestManager(t)
	completeExchange(m, "first topic", "answer one")
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	firstID := m.Current().ID

	m.NewSession("test-model")
	if m.Current().ID != "" {
		t.Error("New session should start without an ID")
	}
	if !m.Current().IsEmpty() {
		t.Error("New session should start empty")
	}

	conv, err := m.SwitchTo(firstID)
	if err != nil {
		t.Fatalf("SwitchTo failed: %v", err)
	}
	if conv.ID != firstID {
		t.Errorf("Switched ID = %q, want %q", conv.ID, firstID)
	}
	if conv.MessageCount() != 2 {
		t.Errorf("Message count = %d, want 2", conv.MessageCount())
	}
}

func TestDelete_ResetsCurrentWhenDeleted(t *testing.T) {
	m := newTestManager(t)
	completeExchange(m, "hello", "hi")
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	id := m.Current().ID

	if err := m.Delete(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if m.Current().ID != "" || !m.Current().IsEmpty() {
		t.Error("Current conversation should reset after deleting it")
	}
}

func TestClearAll(t *testing.T) {
	m := newTestManager(t)
	completeExchange(m, "one", "1")
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	m.NewSession("test-model")
	completeExchange(m, "two", "2")
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := m.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	metas, err := m.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("Session count = %d, want 0", len(metas))
	}
}

func TestShouldAutoSave(t *testing.T) {
	store, err := storage.NewSessionStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	m := NewManager(store, "acct-1", "test-model", Config{
		AutoSaveEnabled:  true,
		AutoSaveInterval: 10 * time.Millisecond,
	})

	if m.ShouldAutoSave() {
		t.Error("Clean session should not auto-save")
	}

	m.MarkDirty()
	time.Sleep(20 * time.Millisecond)
	if !m.ShouldAutoSave() {
		t.Error("Dirty session past interval should auto-save")
	}

	completeExchange(m, "hi", "hello")
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if m.ShouldAutoSave() {
		t.Error("Saved session should not auto-save")
	}
}
