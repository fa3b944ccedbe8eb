// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides per-account session persistence as JSON
// files under ~/.snailgpt/sessions/<account>/. Saves are whole-file
// atomic writes; concurrent writers of the same session race and the
// last writer wins.
package storage
