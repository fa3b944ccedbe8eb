// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeranaias/snailgpt-tui/internal/model"
)

func TestModeByName(t *testing.T) {
	tests := []struct {
		name string
		want Mode
	}{
		{"extreme", ModeExtreme},
		{"normal", ModeNormal},
		{"high", ModeHigh},
		{"HIGH", ModeHigh},
		{"", ModeNormal},
		{"bogus", ModeNormal},
	}
	for _, tt := range tests {
		if got := ModeByName(tt.name); got != tt.want {
			t.Errorf("ModeByName(%q) = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestModeParameters(t *testing.T) {
	if ModeExtreme.MaxTokens != 200 || ModeExtreme.Temperature != 0.5 || ModeExtreme.HistoryTurns != 2 {
		t.Errorf("extreme mode parameters wrong: %+v", ModeExtreme)
	}
	if ModeNormal.MaxTokens != 400 || ModeNormal.Temperature != 0.7 || ModeNormal.HistoryTurns != 6 {
		t.Errorf("normal mode parameters wrong: %+v", ModeNormal)
	}
	if ModeHigh.MaxTokens != 600 || ModeHigh.Temperature != 0.7 || ModeHigh.HistoryTurns != 6 {
		t.Errorf("high mode parameters wrong: %+v", ModeHigh)
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")

	if got := ResolveAPIKey("config-key"); got != "config-key" {
		t.Errorf("config key should win, got %q", got)
	}
	if got := ResolveAPIKey(""); got != "env-key" {
		t.Errorf("env key should be the fallback, got %q", got)
	}

	t.Setenv(EnvAPIKey, "")
	if got := ResolveAPIKey("  "); got != "" {
		t.Errorf("expected empty resolution, got %q", got)
	}
}

func TestAPIKeyMasked_NeverLeaksKey(t *testing.T) {
	c := New("sk-secret-key-value-12345")
	masked := c.APIKeyMasked()
	if strings.Contains(masked, "secret") || strings.Contains(masked, "12345") {
		t.Errorf("masked key leaks fragments: %s", masked)
	}

	if New("").APIKeyMasked() != "[not set]" {
		t.Error("empty key should render as [not set]")
	}
}

func TestBuildMessages_SystemPreambleFirst(t *testing.T) {
	conv := model.NewConversation("test-model")
	conv.AddUserMessage("question one")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("answer one")
	asst.FinalizeStream(nil)
	conv.AddUserMessage("question two")

	c := New("key").WithPersona("You are a test assistant.")
	messages := c.BuildMessages(conv, ModeNormal)

	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if messages[0].Role != "system" {
		t.Errorf("first message should be the system preamble, got role %q", messages[0].Role)
	}
	if !strings.Contains(messages[0].Content, "You are a test assistant.") {
		t.Errorf("preamble should carry the persona: %q", messages[0].Content)
	}
	if messages[1].Content != "question one" || messages[3].Content != "question two" {
		t.Error("history should be in insertion order")
	}
}

func TestBuildMessages_ExtremeWindow(t *testing.T) {
	conv := model.NewConversation("test-model")
	for i := 0; i < 5; i++ {
		conv.AddUserMessage("user turn")
		asst := conv.AddAssistantMessage()
		asst.AppendToken("assistant turn")
		asst.FinalizeStream(nil)
	}

	c := New("key")
	messages := c.BuildMessages(conv, ModeExtreme)

	// System preamble plus the two most recent turns.
	if len(messages) != 3 {
		t.Fatalf("extreme mode should send 2 history turns, got %d messages", len(messages))
	}
}

func TestChat_NotConfigured(t *testing.T) {
	c := New("")
	_, err := c.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")}, ModeNormal)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestChat_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := New("test-key").WithBaseURL(srv.URL)
	resp, err := c.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")}, ModeNormal)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.GetContent() != "hello" {
		t.Errorf("GetContent = %q, want %q", resp.GetContent(), "hello")
	}
}

func TestChat_AuthErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	c := New("test-key").WithBaseURL(srv.URL)
	_, err := c.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")}, ModeNormal)
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
	if calls != 1 {
		t.Errorf("auth failure should not be retried, got %d calls", calls)
	}
}

func TestHandleErrorResponse_FallbackWithoutBody(t *testing.T) {
	c := New("key")
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthFailed},
		{http.StatusPaymentRequired, ErrInsufficientCredits},
		{http.StatusNotFound, ErrModelNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		if err := c.handleErrorResponse(tt.status, nil); !errors.Is(err, tt.want) {
			t.Errorf("status %d: got %v, want %v", tt.status, err, tt.want)
		}
	}

	var apiErr *APIError
	err := c.handleErrorResponse(http.StatusInternalServerError, []byte("oops"))
	if !errors.As(err, &apiErr) || apiErr.Status != 500 {
		t.Errorf("unexpected 5xx mapping: %v", err)
	}
}

func TestUserMessage(t *testing.T) {
	if msg := UserMessage(ErrNotConfigured); !strings.Contains(msg, EnvAPIKey) {
		t.Errorf("not-configured message should name the env var: %q", msg)
	}
	if msg := UserMessage(context.Canceled); msg != "Generation cancelled." {
		t.Errorf("cancel message = %q", msg)
	}
}

func TestCalculateBackoff(t *testing.T) {
	c := New("key")
	if c.calculateBackoff(1) >= c.calculateBackoff(2) {
		t.Error("backoff should grow with attempts")
	}
	if c.calculateBackoff(20) != retryMaxDelay {
		t.Errorf("backoff should cap at %v", retryMaxDelay)
	}
}
