// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the current conversation of the logged-in
// account and drives persistence through the session store: dirty
// tracking, periodic auto-save, and the upsert performed after each
// completed exchange.
package session
