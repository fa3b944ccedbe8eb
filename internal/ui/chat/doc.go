// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main conversation view.
//
// The view is a single Bubble Tea model. Streaming tokens arrive from
// a network goroutine as StreamTokenMsg values, accumulate in a
// StreamingBuffer, and are flushed into the transcript at a fixed
// frame rate by StreamTickMsg. Every stream ends through exactly one
// path, finalizeStream, whether it completed, failed, or was
// cancelled with Esc.
package chat
