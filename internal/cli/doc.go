// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the terminal flow that runs before the TUI
// starts: the login, registration, and password-reset prompts.
// Passwords are read without echo; recovery codes gate password
// resets unless the account's role is configured as exempt.
package cli
