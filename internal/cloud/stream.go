// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// STREAMING TYPES
// =============================================================================

// MaxEventSize is the maximum allowed size for a single SSE event.
const MaxEventSize = 64 * 1024

// StreamChunk is one unit of streamed output. In event-framed mode it
// is the decoded delta from one SSE event; in raw mode it wraps the
// bytes of one body read.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`

	// Raw holds verbatim body bytes in raw chunk mode.
	Raw string `json:"-"`
}

// GetContent returns the text carried by this chunk.
func (c *StreamChunk) GetContent() string {
	if c.Raw != "" {
		return c.Raw
	}
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// IsDone reports whether the server marked the stream finished.
func (c *StreamChunk) IsDone() bool {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason != ""
	}
	return false
}

// GetFinishReason returns the finish reason, if any.
func (c *StreamChunk) GetFinishReason() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason
	}
	return ""
}

// StreamCallback is called for each chunk received.
type StreamCallback func(chunk StreamChunk)

// StreamError is a streaming failure that preserves any partial
// content received before the error.
type StreamError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// StreamStats holds statistics collected during one stream.
type StreamStats struct {
	FirstTokenTime time.Duration
	TotalTime      time.Duration
	TokenCount     int
	Model          string
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates an SSE reader over r.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent returns the payload of the next data line. Processing is
// line oriented: every data line is one event, decoded independently,
// with no joining across lines, so a `data: [DONE]` directly after a
// delta line (no blank separator) still terminates cleanly. A final
// line missing its trailing newline is returned before io.EOF
// surfaces. Lines without a data field (event:, id:, retry:,
// comments, blanks) are skipped.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	for {
		line, err := s.reader.ReadBytes('\n')

		// ReadBytes can return a partial line together with io.EOF;
		// the bytes are handled first so that line is not lost.
		if len(line) > 0 {
			if len(line) > MaxEventSize {
				return nil, fmt.Errorf("event too large: %d bytes", len(line))
			}
			trimmed := bytes.TrimRight(line, "\r\n")
			if bytes.HasPrefix(trimmed, []byte("data:")) {
				return bytes.TrimSpace(trimmed[5:]), nil
			}
		}

		if err != nil {
			return nil, err
		}
	}
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream performs a streaming chat completion in the client's
// configured transport format. The callback runs once per chunk.
// Cancelling the context aborts the read at the next yield point.
func (c *Client) ChatStream(ctx context.Context, messages []ChatMessage, mode Mode, callback StreamCallback) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	resp, err := c.openStream(ctx, messages, mode)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if c.format == FormatRaw {
		return c.processRawStream(ctx, resp.Body, callback)
	}
	return c.processEventStream(ctx, resp.Body, callback)
}

// openStream sends the streaming request and checks the status line.
func (c *Client) openStream(ctx context.Context, messages []ChatMessage, mode Mode) (*http.Response, error) {
	url := c.baseURL + "/chat/completions"
	reqBody := c.buildRequest(messages, mode, true)

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}
	return resp, nil
}

// processEventStream reads the SSE stream until `data: [DONE]`, a
// finish reason, EOF, or cancellation. Malformed data lines are
// skipped; they never abort the stream.
func (c *Client) processEventStream(ctx context.Context, body io.Reader, callback StreamCallback) error {
	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			continue
		}

		callback(chunk)

		if chunk.IsDone() {
			return nil
		}
	}
}

// ChatStreamAccumulate streams a completion and returns the full text
// at the end. On failure the partial content is returned alongside the
// error.
func (c *Client) ChatStreamAccumulate(ctx context.Context, messages []ChatMessage, mode Mode) (string, error) {
	var accumulated strings.Builder

	err := c.ChatStream(ctx, messages, mode, func(chunk StreamChunk) {
		accumulated.WriteString(chunk.GetContent())
	})

	if err != nil {
		var streamErr *StreamError
		if errors.As(err, &streamErr) && streamErr.Partial != "" {
			return streamErr.Partial, err
		}
		return accumulated.String(), err
	}
	return accumulated.String(), nil
}

// ChatStreamWithStats streams a completion and collects timing and
// token statistics.
func (c *Client) ChatStreamWithStats(ctx context.Context, messages []ChatMessage, mode Mode, callback StreamCallback) (*StreamStats, error) {
	stats := &StreamStats{}
	startTime := time.Now()
	var firstTokenTime time.Time
	tokenCount := 0

	wrapped := func(chunk StreamChunk) {
		if chunk.GetContent() != "" {
			tokenCount++
			if firstTokenTime.IsZero() {
				firstTokenTime = time.Now()
				stats.FirstTokenTime = firstTokenTime.Sub(startTime)
			}
		}
		if chunk.Model != "" {
			stats.Model = chunk.Model
		}
		callback(chunk)
	}

	err := c.ChatStream(ctx, messages, mode, wrapped)

	stats.TotalTime = time.Since(startTime)
	stats.TokenCount = tokenCount
	return stats, err
}
