// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud implements the streaming chat client.
//
// The client speaks to any OpenAI-compatible chat completions endpoint
// with bearer-token auth. Two transport shapes are supported, selected
// by configuration: event-framed SSE (the default) and raw byte
// chunks. Generation modes (extreme/normal/high) bundle the token
// budget, temperature, and rolling history window sent per request.
//
// Streaming requests are bounded only by their context; cancellation
// aborts the body read at the next yield point.
package cloud
