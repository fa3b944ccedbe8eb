// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and
// messages: roles, immutable messages with a streaming accumulation
// path, per-generation statistics, and the conversation container
// whose message order is the context replayed to the inference API.
package model
