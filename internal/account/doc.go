// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package account provides the sqlite-backed user account store:
// registration with unique email/username and issued recovery codes,
// login by either identifier with bcrypt verification and per-identity
// throttling, and recovery-code-gated password changes with a
// configurable role exemption.
package account
