// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package account provides the sqlite-backed user account store.
package account

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ACCOUNT TYPE
// =============================================================================

// Account is one user record. Email is immutable once created; email
// and username are each globally unique (case-sensitive exact match).
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	RecoveryCode string
	AvatarURL    string // empty means no avatar
	Role         string
	CreatedAt    time.Time
}

// ProfilePatch describes a profile update. Nil fields are untouched.
// A password change must carry the account's recovery code unless the
// account's role is recovery-exempt.
type ProfilePatch struct {
	Username     *string
	AvatarURL    *string
	NewPassword  *string
	RecoveryCode string
}

// =============================================================================
// STORE
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	recovery_code TEXT NOT NULL,
	avatar_url    TEXT,
	role          TEXT NOT NULL DEFAULT 'user',
	created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is the sqlite-backed account store.
type Store struct {
	db *sql.DB

	exemptRoles map[string]bool

	// Per-identifier login throttles. Burst of a few attempts, then
	// one per second; an entry is created lazily on first attempt.
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Open opens (creating if needed) the account database at path.
// exemptRoles lists roles allowed to change their password without a
// recovery code.
func Open(path string, exemptRoles []string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}

	// Single connection: sqlite handles one writer, and serializing
	// through one conn avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, &StoreError{Op: "pragma", Err: err}
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &StoreError{Op: "init schema", Err: err}
	}

	exempt := make(map[string]bool, len(exemptRoles))
	for _, r := range exemptRoles {
		exempt[r] = true
	}

	return &Store{
		db:          db,
		exemptRoles: exempt,
		limiters:    make(map[string]*rate.Limiter),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// REGISTER
// =============================================================================

// Register creates a new account. Email and username must be unused;
// a 6-digit recovery code is issued and the avatar starts unset.
func (s *Store) Register(email, username, password string) (*Account, error) {
	email = norm.NFC.String(strings.TrimSpace(email))
	username = norm.NFC.String(strings.TrimSpace(username))

	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email must be a valid address", ErrValidation)
	}
	if username == "" {
		return nil, fmt.Errorf("%w: username must not be empty", ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password must not be empty", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &StoreError{Op: "hash password", Err: err}
	}

	code, err := generateRecoveryCode()
	if err != nil {
		return nil, &StoreError{Op: "generate recovery code", Err: err}
	}

	acct := &Account{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		RecoveryCode: code,
		Role:         "user",
		CreatedAt:    time.Now(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, &StoreError{Op: "register", Err: err}
	}
	defer tx.Rollback()

	// Explicit pre-checks give the caller a precise duplicate error
	// instead of a generic constraint violation.
	var n int
	if err := tx.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", acct.Email).Scan(&n); err != nil {
		return nil, &StoreError{Op: "register", Err: err}
	}
	if n > 0 {
		return nil, ErrDuplicateEmail
	}
	if err := tx.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", acct.Username).Scan(&n); err != nil {
		return nil, &StoreError{Op: "register", Err: err}
	}
	if n > 0 {
		return nil, ErrDuplicateUsername
	}

	_, err = tx.Exec(
		`INSERT INTO users (id, email, username, password_hash, recovery_code, avatar_url, role, created_at)
		 VALUES (?, ?, ?, ?, ?, NULL, ?, ?)`,
		acct.ID, acct.Email, acct.Username, acct.PasswordHash, acct.RecoveryCode, acct.Role, acct.CreatedAt,
	)
	if err != nil {
		return nil, &StoreError{Op: "register", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &StoreError{Op: "register", Err: err}
	}
	return acct, nil
}

// =============================================================================
// LOGIN
// =============================================================================

// Login authenticates by email or username plus password.
func (s *Store) Login(identifier, password string) (*Account, error) {
	identifier = norm.NFC.String(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if !s.loginLimiter(identifier).Allow() {
		return nil, ErrRateLimited
	}

	acct, err := s.queryOne("SELECT id, email, username, password_hash, recovery_code, avatar_url, role, created_at FROM users WHERE email = ? OR username = ?", identifier, identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, &StoreError{Op: "login", Err: err}
	}

	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}

// maxLoginLimiters bounds the per-identifier limiter map. Login
// attempts arrive one at a time from a single terminal, so the map
// stays tiny in practice; the cap stops a scripted caller from growing
// it without bound.
const maxLoginLimiters = 1024

// loginLimiter returns the throttle for one identifier, creating it
// on first use. When the map hits maxLoginLimiters it is reset before
// inserting; dropping limiter state re-grants at most one burst per
// identifier, which is harmless next to unbounded growth.
func (s *Store) loginLimiter(identifier string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	lim, ok := s.limiters[identifier]
	if !ok {
		if len(s.limiters) >= maxLoginLimiters {
			s.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Every(time.Second), 5)
		s.limiters[identifier] = lim
	}
	return lim
}

// =============================================================================
// PROFILE UPDATE
// =============================================================================

// UpdateProfile applies a patch to the account identified by email.
// Renames re-check username uniqueness excluding the account itself;
// avatar changes are unconditional; password changes are gated by the
// recovery code unless the account's role is exempt.
func (s *Store) UpdateProfile(email string, patch ProfilePatch) (*Account, error) {
	email = norm.NFC.String(strings.TrimSpace(email))

	tx, err := s.db.Begin()
	if err != nil {
		return nil, &StoreError{Op: "update profile", Err: err}
	}
	defer tx.Rollback()

	acct, err := queryOneTx(tx, "SELECT id, email, username, password_hash, recovery_code, avatar_url, role, created_at FROM users WHERE email = ?", email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, &StoreError{Op: "update profile", Err: err}
	}

	if patch.Username != nil {
		newName := norm.NFC.String(strings.TrimSpace(*patch.Username))
		if newName == "" {
			return nil, fmt.Errorf("%w: username must not be empty", ErrValidation)
		}
		if newName != acct.Username {
			var n int
			if err := tx.QueryRow("SELECT COUNT(*) FROM users WHERE username = ? AND id != ?", newName, acct.ID).Scan(&n); err != nil {
				return nil, &StoreError{Op: "update profile", Err: err}
			}
			if n > 0 {
				return nil, ErrDuplicateUsername
			}
			acct.Username = newName
		}
	}

	if patch.AvatarURL != nil {
		acct.AvatarURL = *patch.AvatarURL
	}

	if patch.NewPassword != nil {
		if *patch.NewPassword == "" {
			return nil, fmt.Errorf("%w: password must not be empty", ErrValidation)
		}
		if !s.exemptRoles[acct.Role] && patch.RecoveryCode != acct.RecoveryCode {
			return nil, ErrInvalidRecoveryCode
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, &StoreError{Op: "hash password", Err: err}
		}
		acct.PasswordHash = string(hash)
	}

	var avatar interface{}
	if acct.AvatarURL != "" {
		avatar = acct.AvatarURL
	}
	_, err = tx.Exec(
		"UPDATE users SET username = ?, password_hash = ?, avatar_url = ? WHERE id = ?",
		acct.Username, acct.PasswordHash, avatar, acct.ID,
	)
	if err != nil {
		return nil, &StoreError{Op: "update profile", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &StoreError{Op: "update profile", Err: err}
	}
	return acct, nil
}

// SetRole changes an account's role. Exposed for external
// administration; nothing in the client UI calls it.
func (s *Store) SetRole(email, role string) error {
	email = norm.NFC.String(strings.TrimSpace(email))

	res, err := s.db.Exec("UPDATE users SET role = ? WHERE email = ?", role, email)
	if err != nil {
		return &StoreError{Op: "set role", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &StoreError{Op: "set role", Err: err}
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetByEmail returns the account with the given email.
func (s *Store) GetByEmail(email string) (*Account, error) {
	email = norm.NFC.String(strings.TrimSpace(email))

	acct, err := s.queryOne("SELECT id, email, username, password_hash, recovery_code, avatar_url, role, created_at FROM users WHERE email = ?", email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, &StoreError{Op: "get", Err: err}
	}
	return acct, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) queryOne(query string, args ...interface{}) (*Account, error) {
	return scanAccount(s.db.QueryRow(query, args...))
}

func queryOneTx(tx *sql.Tx, query string, args ...interface{}) (*Account, error) {
	return scanAccount(tx.QueryRow(query, args...))
}

func scanAccount(row rowScanner) (*Account, error) {
	var acct Account
	var avatar sql.NullString
	err := row.Scan(&acct.ID, &acct.Email, &acct.Username, &acct.PasswordHash,
		&acct.RecoveryCode, &avatar, &acct.Role, &acct.CreatedAt)
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		acct.AvatarURL = avatar.String
	}
	return &acct, nil
}

// generateRecoveryCode returns a 6-digit code uniformly sampled from
// 100000-999999.
func generateRecoveryCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
