// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides per-account session persistence.
package storage

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/snailgpt-tui/internal/model"
	"github.com/jeranaias/snailgpt-tui/internal/util"
)

// =============================================================================
// STORED TYPES
// =============================================================================

// StoredSession is the on-disk form of one chat session.
type StoredSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []StoredMessage `json:"messages"`
}

// StoredMessage is the persisted form of one message.
type StoredMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Generated distinguishes model output from client-written
	// notices; preserved across load so persistence rules hold for
	// reopened sessions.
	Generated bool `json:"generated,omitempty"`

	// Statistics (assistant messages)
	TokenCount   int     `json:"token_count,omitempty"`
	DurationMs   int64   `json:"duration_ms,omitempty"`
	TokensPerSec float64 `json:"tokens_per_sec,omitempty"`
	TTFTMs       int64   `json:"ttft_ms,omitempty"`
}

// SessionMeta contains metadata for listing sessions.
type SessionMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore persists sessions as JSON files, one directory per
// account under BaseDir. Writes are whole-file read-modify-write with
// atomic rename: two concurrent writers of the same session race and
// the last writer wins. There is no cross-process locking.
type SessionStore struct {
	// BaseDir is the root directory, default ~/.snailgpt/sessions/.
	BaseDir string

	// MaxSessions limits stored sessions per account (0 = unlimited).
	MaxSessions int
}

// NewSessionStore creates a session store rooted at the default
// location.
func NewSessionStore() (*SessionStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewSessionStoreWithDir(filepath.Join(homeDir, ".snailgpt", "sessions"))
}

// NewSessionStoreWithDir creates a store with a custom root directory.
func NewSessionStoreWithDir(baseDir string) (*SessionStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &SessionStore{
		BaseDir:     baseDir,
		MaxSessions: 100,
	}, nil
}

// =============================================================================
// UPSERT
// =============================================================================

// Upsert persists a session for one account and returns its ID. A
// session with an existing ID is replaced in place; a session without
// an ID gets one minted here, at first save, and keeps it forever.
// Called once per completed exchange.
func (s *SessionStore) Upsert(accountID string, sess *StoredSession) (string, error) {
	if err := validateKey(accountID); err != nil {
		return "", err
	}

	if sess.ID == "" {
		sess.ID = generateSessionID()
	} else if err := validateKey(sess.ID); err != nil {
		return "", err
	}

	if sess.Title == "" {
		sess.Title = deriveStoredTitle(sess)
	}

	sess.UpdatedAt = time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = sess.UpdatedAt
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return "", err
	}

	if err := util.AtomicWriteFile(s.filePath(accountID, sess.ID), data, 0644); err != nil {
		return "", err
	}

	if s.MaxSessions > 0 {
		s.enforceLimit(accountID)
	}

	return sess.ID, nil
}

// deriveStoredTitle mirrors the in-memory title rule for sessions
// saved without one: first user message, 30 runes, ellipsis.
func deriveStoredTitle(sess *StoredSession) string {
	for _, msg := range sess.Messages {
		if msg.Role == "user" && msg.Content != "" {
			return util.TitleFromPrompt(msg.Content, model.TitleRunes)
		}
	}
	return "New Chat"
}

// enforceLimit removes the oldest sessions of one account when over
// the limit.
func (s *SessionStore) enforceLimit(accountID string) {
	metas, err := s.List(accountID)
	if err != nil || len(metas) <= s.MaxSessions {
		return
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.Before(metas[j].UpdatedAt)
	})

	excess := len(metas) - s.MaxSessions
	for i := 0; i < excess; i++ {
		s.Delete(accountID, metas[i].ID)
	}
}

// =============================================================================
// LOAD / LIST
// =============================================================================

// Load retrieves one session of one account.
func (s *SessionStore) Load(accountID, id string) (*StoredSession, error) {
	if err := validateKey(accountID); err != nil {
		return nil, err
	}
	if err := validateKey(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.filePath(accountID, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var sess StoredSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// List returns the session summaries of one account, most recently
// updated first. Other accounts' sessions are never visible here.
func (s *SessionStore) List(accountID string) ([]SessionMeta, error) {
	if err := validateKey(accountID); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.accountDir(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionMeta{}, nil
		}
		return nil, err
	}

	var metas []SessionMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		sess, err := s.Load(accountID, id)
		if err != nil {
			continue // skip corrupted files
		}

		preview := ""
		for _, msg := range sess.Messages {
			if msg.Role == "user" {
				preview = util.TruncateRunes(msg.Content, 80)
				break
			}
		}

		metas = append(metas, SessionMeta{
			ID:           sess.ID,
			Title:        sess.Title,
			Model:        sess.Model,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: len(sess.Messages),
			Preview:      preview,
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})

	return metas, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes one session of one account.
func (s *SessionStore) Delete(accountID, id string) error {
	if err := validateKey(accountID); err != nil {
		return err
	}
	if err := validateKey(id); err != nil {
		return err
	}

	if err := os.Remove(s.filePath(accountID, id)); err != nil {
		if os.IsNotExist(err) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

// ClearAll removes every session of one account and nothing else.
func (s *SessionStore) ClearAll(accountID string) error {
	if err := validateKey(accountID); err != nil {
		return err
	}

	dir := s.accountDir(accountID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}

// =============================================================================
// MODEL CONVERSION
// =============================================================================

// FromConversation converts an in-memory conversation for persistence.
// Streaming messages are captured with their current display content.
func FromConversation(conv *model.Conversation) *StoredSession {
	sess := &StoredSession{
		ID:        conv.ID,
		Title:     conv.Title,
		Model:     conv.Model,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Messages:  make([]StoredMessage, 0, len(conv.Messages)),
	}

	for _, msg := range conv.Messages {
		sess.Messages = append(sess.Messages, StoredMessage{
			ID:           msg.ID,
			Role:         msg.Role.String(),
			Content:      msg.GetDisplayContent(),
			Timestamp:    msg.Timestamp,
			Generated:    msg.Generated,
			TokenCount:   msg.TokenCount,
			DurationMs:   msg.TotalDuration.Milliseconds(),
			TokensPerSec: msg.TokensPerSec,
			TTFTMs:       msg.TTFT.Milliseconds(),
		})
	}
	return sess
}

// ToConversation converts a stored session back to the in-memory form.
func (sess *StoredSession) ToConversation() *model.Conversation {
	conv := &model.Conversation{
		ID:        sess.ID,
		Title:     sess.Title,
		Model:     sess.Model,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Messages:  make([]*model.Message, 0, len(sess.Messages)),
	}

	for _, sm := range sess.Messages {
		msg := &model.Message{
			ID:            sm.ID,
			Role:          model.Role(sm.Role),
			Content:       sm.Content,
			Timestamp:     sm.Timestamp,
			Generated:     sm.Generated,
			TokenCount:    sm.TokenCount,
			TotalDuration: time.Duration(sm.DurationMs) * time.Millisecond,
			TokensPerSec:  sm.TokensPerSec,
			TTFT:          time.Duration(sm.TTFTMs) * time.Millisecond,
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders the session as a Markdown transcript.
func (sess *StoredSession) ExportMarkdown() string {
	var sb strings.Builder

	sb.WriteString("# " + sess.Title + "\n\n")
	sb.WriteString("- Model: " + sess.Model + "\n")
	sb.WriteString("- Created: " + sess.CreatedAt.Format(time.RFC3339) + "\n")
	sb.WriteString("- Updated: " + sess.UpdatedAt.Format(time.RFC3339) + "\n\n")

	for _, msg := range sess.Messages {
		switch msg.Role {
		case "user":
			sb.WriteString("## You\n\n")
		case "assistant":
			sb.WriteString("## SnailGPT\n\n")
		default:
			sb.WriteString("## " + msg.Role + "\n\n")
		}
		sb.WriteString(msg.Content + "\n\n")
	}
	return sb.String()
}

// ExportJSON renders the session as indented JSON.
func (sess *StoredSession) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(sess, "", "  ")
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *SessionStore) accountDir(accountID string) string {
	return filepath.Join(s.BaseDir, accountID)
}

func (s *SessionStore) filePath(accountID, id string) string {
	return filepath.Join(s.accountDir(accountID), id+".json")
}

// generateSessionID mints a time-based session ID with a short random
// suffix so two sessions created within the same second stay distinct.
func generateSessionID() string {
	bytes := make([]byte, 3)
	rand.Read(bytes)
	return "sess_" + time.Now().Format("20060102_150405") + "_" + hex.EncodeToString(bytes)
}

// validateKey rejects identifiers that could escape the store
// directory.
func validateKey(key string) error {
	if key == "" {
		return &SessionError{Message: "empty identifier"}
	}
	if strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid identifier %q", key)
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrSessionNotFound is returned when a session doesn't exist.
// Check with errors.Is(err, ErrSessionNotFound).
var ErrSessionNotFound = &SessionError{Message: "session not found"}

// SessionError represents a session-store error.
type SessionError struct {
	Message string
}

func (e *SessionError) Error() string {
	return e.Message
}

// Is implements errors.Is support.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
