// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides per-account session persistence.
package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/snailgpt-tui/internal/model"
)

const (
	acctAlice = "acct-alice"
	acctBob   = "acct-bob"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := NewSessionStoreWithDir(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func userSession(content string) *StoredSession {
	return &StoredSession{
		Model: "test-model",
		Messages: []StoredMessage{
			{ID: "m1", Role: "user", Content: content, Timestamp: time.Now()},
			{ID: "m2", Role: "assistant", Content: "reply", Timestamp: time.Now()},
		},
	}
}

// =============================================================================
// UPSERT TESTS
// =============================================================================

func TestUpsert_MintsIDOnFirstSave(t *testing.T) {
	store := newTestStore(t)

	sess := userSession("hello")
	id, err := store.Upsert(acctAlice, sess)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected non-empty ID")
	}
	if !strings.HasPrefix(id, "sess_") {
		t.Errorf("ID should start with 'sess_', got %q", id)
	}
	if sess.ID != id {
		t.Errorf("Session ID not set on struct: %q vs %q", sess.ID, id)
	}
}

func TestUpsert_SameIDReplacesInPlace(t *testing.T) {
	store := newTestStore(t)

	sess := userSession("hello")
	id, err := store.Upsert(acctAlice, sess)
	if err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	sess.Messages = append(sess.Messages, StoredMessage{
		ID: "m3", Role: "user", Content: "follow-up", Timestamp: time.Now(),
	})
	id2, err := store.Upsert(acctAlice, sess)
	if err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}
	if id2 != id {
		t.Errorf("ID changed on re-upsert: %q -> %q", id, id2)
	}

	metas, err := store.List(acctAlice)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 1 {
		t.Errorf("Session count = %d, want 1 (replace in place)", len(metas))
	}

	loaded, err := store.Load(acctAlice, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Messages) != 3 {
		t.Errorf("Message count = %d, want 3", len(loaded.Messages))
	}
}

func TestUpsert_NewIDIncreasesCount(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Upsert(acctAlice, userSession("first")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.Upsert(acctAlice, userSession("second")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	metas, err := store.List(acctAlice)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 2 {
		t.Errorf("Session count = %d, want 2", len(metas))
	}
}

func TestUpsert_TitleFixedAtCreation(t *testing.T) {
	store := newTestStore(t)

	long := "this first message is well over thirty characters long"
	sess := userSession(long)
	id, err := store.Upsert(acctAlice, sess)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	loaded, err := store.Load(acctAlice, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	wantTitle := string([]rune(long)[:30]) + "..."
	if loaded.Title != wantTitle {
		t.Errorf("Title = %q, want %q", loaded.Title, wantTitle)
	}

	// Re-upserting never recomputes the title.
	loaded.Messages[0].Content = "changed"
	if _, err := store.Upsert(acctAlice, loaded); err != nil {
		t.Fatalf("Re-upsert failed: %v", err)
	}
	again, err := store.Load(acctAlice, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if again.Title != wantTitle {
		t.Errorf("Title recomputed: %q, want %q", again.Title, wantTitle)
	}
}

func TestUpsert_MultilineTitleMatchesConversationTitle(t *testing.T) {
	store := newTestStore(t)

	prompt := "explain this stack trace\npanic: runtime error: index out of range"
	conv := model.NewConversation("test-model")
	conv.AddUserMessage(prompt)

	// The stored path derives its own title when none is set. Both
	// paths must land on the exact same string.
	sess := userSession(prompt)
	id, err := store.Upsert(acctAlice, sess)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	loaded, err := store.Load(acctAlice, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Title != conv.Title {
		t.Errorf("Stored title %q differs from conversation title %q", loaded.Title, conv.Title)
	}
	if strings.ContainsAny(loaded.Title, "\r\n") {
		t.Errorf("Title contains raw newlines: %q", loaded.Title)
	}
}

func TestUpsert_RejectsPathEscapingIDs(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Upsert("../evil", userSession("x")); err == nil {
		t.Error("Expected error for path-escaping account ID")
	}

	sess := userSession("x")
	sess.ID = "../../etc/passwd"
	if _, err := store.Upsert(acctAlice, sess); err == nil {
		t.Error("Expected error for path-escaping session ID")
	}
}

// =============================================================================
// LIST TESTS
// =============================================================================

func TestList_SortedByRecency(t *testing.T) {
	store := newTestStore(t)

	first := userSession("oldest")
	first.ID = "sess_a"
	firstID, err := store.Upsert(acctAlice, first)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	second := userSession("newest")
	second.ID = "sess_b"
	if _, err := store.Upsert(acctAlice, second); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	// Touch the first session again so it becomes most recent.
	reloaded, err := store.Load(acctAlice, firstID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := store.Upsert(acctAlice, reloaded); err != nil {
		t.Fatalf("Re-upsert failed: %v", err)
	}

	metas, err := store.List(acctAlice)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("Session count = %d, want 2", len(metas))
	}
	if metas[0].ID != firstID {
		t.Errorf("Most recent session = %q, want %q", metas[0].ID, firstID)
	}
}

func TestList_EmptyAccount(t *testing.T) {
	store := newTestStore(t)

	metas, err := store.List("acct-nobody")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("Session count = %d, want 0", len(metas))
	}
}

// =============================================================================
// DELETE / CLEAR TESTS
// =============================================================================

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Upsert(acctAlice, userSession("hello"))
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := store.Delete(acctAlice, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Load(acctAlice, id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Load after delete = %v, want ErrSessionNotFound", err)
	}

	if err := store.Delete(acctAlice, id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Second delete = %v, want ErrSessionNotFound", err)
	}
}

func TestClearAll_ScopedToOneAccount(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Upsert(acctAlice, userSession("alice 1")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.Upsert(acctAlice, userSession("alice 2")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := store.Upsert(acctBob, userSession("bob 1")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := store.ClearAll(acctAlice); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	aliceSessions, err := store.List(acctAlice)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(aliceSessions) != 0 {
		t.Errorf("Alice's sessions = %d, want 0", len(aliceSessions))
	}

	bobSessions, err := store.List(acctBob)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(bobSessions) != 1 {
		t.Errorf("Bob's sessions = %d, want 1 (untouched)", len(bobSessions))
	}
}

// =============================================================================
// CONVERSION AND EXPORT TESTS
// =============================================================================

func TestConversionRoundTrip(t *testing.T) {
	conv := model.NewConversation("test-model")
	conv.AddUserMessage("hello")
	msg := conv.AddAssistantMessage()
	msg.AppendToken("world")
	msg.FinalizeStream(nil)

	sess := FromConversation(conv)
	if len(sess.Messages) != 2 {
		t.Fatalf("Stored message count = %d, want 2", len(sess.Messages))
	}
	if sess.Title != "hello" {
		t.Errorf("Title = %q, want %q", sess.Title, "hello")
	}

	back := sess.ToConversation()
	if back.MessageCount() != 2 {
		t.Errorf("Round-trip message count = %d, want 2", back.MessageCount())
	}
	if back.GetLastMessage().Content != "world" {
		t.Errorf("Round-trip content = %q, want %q", back.GetLastMessage().Content, "world")
	}
}

func TestExportMarkdown(t *testing.T) {
	sess := userSession("what is a snail?")
	sess.Title = "what is a snail?"
	sess.Model = "test-model"

	md := sess.ExportMarkdown()
	if !strings.Contains(md, "# what is a snail?") {
		t.Error("Markdown export missing title header")
	}
	if !strings.Contains(md, "## You") || !strings.Contains(md, "## SnailGPT") {
		t.Error("Markdown export missing role headers")
	}
	if !strings.Contains(md, "reply") {
		t.Error("Markdown export missing assistant content")
	}
}
