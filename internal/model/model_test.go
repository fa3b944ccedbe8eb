// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID should start with 'msg_', got %q", msg.ID)
	}
	if msg.IsStreaming {
		t.Error("User message should not be streaming")
	}
}

func TestStreamingMessage_AppendAndFinalize(t *testing.T) {
	msg := NewAssistantMessage()

	if !msg.IsStreaming {
		t.Fatal("New assistant message should be streaming")
	}

	msg.AppendToken("Hello")
	msg.AppendToken(", ")
	msg.AppendToken("world")

	if got := msg.GetDisplayContent(); got != "Hello, world" {
		t.Errorf("Display content = %q, want %q", got, "Hello, world")
	}
	if msg.Content != "" {
		t.Errorf("Content should be empty until finalized, got %q", msg.Content)
	}

	stats := NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(3)
	msg.FinalizeStream(stats)

	if msg.IsStreaming {
		t.Error("Message should not be streaming after finalize")
	}
	if msg.Content != "Hello, world" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hello, world")
	}
	if msg.TokenCount != 3 {
		t.Errorf("TokenCount = %d, want 3", msg.TokenCount)
	}
}

func TestMessage_AppendAfterFinalizeDropped(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("partial")
	msg.FinalizeStream(nil)

	// A trailing chunk from a cancelled stream must be discarded.
	msg.AppendToken(" trailing")

	if msg.Content != "partial" {
		t.Errorf("Content = %q, want %q", msg.Content, "partial")
	}
}

func TestMessage_GeneratedFlag(t *testing.T) {
	notice := NewAssistantMessage()
	notice.AppendNotice("_Generation cancelled._")
	notice.FinalizeStream(nil)

	if notice.Generated {
		t.Error("Notice-only message should not be marked generated")
	}
	if notice.Content != "_Generation cancelled._" {
		t.Errorf("Content = %q, want the notice text", notice.Content)
	}

	reply := NewAssistantMessage()
	reply.AppendToken("partial")
	reply.AppendNotice("\n\n_Generation cancelled._")
	reply.FinalizeStream(nil)

	if !reply.Generated {
		t.Error("Message with model tokens should be marked generated")
	}
}

func TestMessage_Preview_Unicode(t *testing.T) {
	msg := NewUserMessage("héllo wörld, this is a long message")
	preview := msg.Preview(10)

	if len([]rune(preview)) > 10 {
		t.Errorf("Preview too long: %q (%d runes)", preview, len([]rune(preview)))
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("Preview should end with ellipsis, got %q", preview)
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_TitleFixedAtFirstUserMessage(t *testing.T) {
	conv := NewConversation("test-model")

	conv.AddUserMessage("What is the airspeed velocity of an unladen swallow?")
	title := conv.Title

	if !strings.HasSuffix(title, "...") {
		t.Errorf("Long prompt title should end with ellipsis, got %q", title)
	}
	if got := len([]rune(title)); got != TitleRunes+3 {
		t.Errorf("Title rune length = %d, want %d", got, TitleRunes+3)
	}

	// Later messages never change the title.
	conv.AddAssistantMessage()
	conv.AppendToLast("African or European?")
	conv.FinalizeLast(nil)
	conv.AddUserMessage("A different question entirely")

	if conv.Title != title {
		t.Errorf("Title changed: %q -> %q", title, conv.Title)
	}
}

func TestConversation_TitleShortPromptNoEllipsis(t *testing.T) {
	conv := NewConversation("test-model")
	conv.AddUserMessage("short prompt")

	if conv.Title != "short prompt" {
		t.Errorf("Title = %q, want %q", conv.Title, "short prompt")
	}
}

func TestConversation_OneUserOneAssistantPerExchange(t *testing.T) {
	conv := NewConversation("test-model")

	conv.AddUserMessage("hello")
	asst := conv.AddAssistantMessage()
	conv.AppendToLast("hi ")
	conv.AppendToLast("there")
	conv.FinalizeLast(nil)

	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount = %d, want 2", conv.MessageCount())
	}
	if asst.Content != "hi there" {
		t.Errorf("Assistant content = %q, want %q", asst.Content, "hi there")
	}
}

func TestConversation_AppendToLastIgnoredWhenFinalized(t *testing.T) {
	conv := NewConversation("test-model")
	conv.AddUserMessage("hello")
	conv.AddAssistantMessage()
	conv.AppendToLast("done")
	conv.FinalizeLast(nil)

	conv.AppendToLast(" late chunk")

	if got := conv.GetLastMessage().Content; got != "done" {
		t.Errorf("Content = %q, want %q", got, "done")
	}
}

func TestConversation_RecentHistory(t *testing.T) {
	conv := NewConversation("test-model")
	conv.AddSystemMessage("system preamble")
	for i := 0; i < 5; i++ {
		conv.AddUserMessage("question")
		msg := conv.AddAssistantMessage()
		msg.AppendToken("answer")
		msg.FinalizeStream(nil)
	}

	recent := conv.RecentHistory(6)
	if len(recent) != 6 {
		t.Fatalf("RecentHistory length = %d, want 6", len(recent))
	}
	for _, msg := range recent {
		if msg.Role == RoleSystem {
			t.Error("RecentHistory should exclude system messages")
		}
	}
	// Order preserved: oldest of the window first, assistant last.
	if recent[len(recent)-1].Role != RoleAssistant {
		t.Errorf("Last message role = %q, want assistant", recent[len(recent)-1].Role)
	}
}

func TestConversation_RemoveLastMessage(t *testing.T) {
	conv := NewConversation("test-model")
	conv.AddUserMessage("hello")
	conv.AddAssistantMessage()

	conv.RemoveLastMessage()

	if conv.MessageCount() != 1 {
		t.Errorf("MessageCount = %d, want 1", conv.MessageCount())
	}
	if conv.GetLastMessage().Role != RoleUser {
		t.Error("Remaining message should be the user message")
	}
}

func TestConversation_ClearHistory(t *testing.T) {
	conv := NewConversation("test-model")
	conv.AddUserMessage("hello")
	conv.ClearHistory()

	if !conv.IsEmpty() {
		t.Error("Conversation should be empty after ClearHistory")
	}
}

// =============================================================================
// STATISTICS TESTS
// =============================================================================

func TestStatistics_Finalize(t *testing.T) {
	stats := NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(100)

	if stats.CompletionTokens != 100 {
		t.Errorf("CompletionTokens = %d, want 100", stats.CompletionTokens)
	}
	if stats.TotalDuration <= 0 {
		t.Error("TotalDuration should be positive")
	}
	if stats.TokensPerSecond <= 0 {
		t.Error("TokensPerSecond should be positive")
	}
}

func TestStatistics_RecordFirstTokenIdempotent(t *testing.T) {
	stats := NewStatistics()
	stats.RecordFirstToken()
	first := stats.FirstTokenTime
	stats.RecordFirstToken()

	if stats.FirstTokenTime != first {
		t.Error("RecordFirstToken should be idempotent")
	}
}
