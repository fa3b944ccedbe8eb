// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package account provides the sqlite-backed user account store.
package account

import "errors"

// Sentinel errors returned by store operations. Callers match them
// with errors.Is and translate them into user-facing messages.
var (
	// ErrDuplicateEmail means the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateUsername means the username is already taken.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrInvalidCredentials covers both unknown identifier and wrong
	// password. A single error keeps login from acting as an account
	// existence oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound means no account exists for the given email.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidRecoveryCode means the supplied recovery code does not
	// match the stored one.
	ErrInvalidRecoveryCode = errors.New("invalid recovery code")

	// ErrRateLimited means too many login attempts for one identifier.
	ErrRateLimited = errors.New("too many login attempts, slow down")

	// ErrValidation means input failed client-side checks (empty
	// field, malformed email) before touching the database.
	ErrValidation = errors.New("validation failed")
)

// StoreError wraps a failure of the underlying database with the
// operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "account " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
