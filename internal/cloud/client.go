// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/snailgpt-tui/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the default OpenAI-compatible endpoint.
	DefaultBaseURL = "https://router.huggingface.co/v1"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "mistralai/Mistral-7B-Instruct-v0.3"

	// DefaultTimeout applies to non-streaming requests only. Streaming
	// requests are bounded by their context.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the retry budget for transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize limits non-streaming response bodies.
	MaxResponseSize = 10 * 1024 * 1024
)

// Stream transport formats. "events" is line-oriented SSE with a
// `data: ` prefix per event; "raw" appends response body chunks
// verbatim as they arrive.
const (
	FormatEvents = "events"
	FormatRaw    = "raw"
)

// EnvAPIKey is the environment variable consulted when the config file
// carries no API key.
const EnvAPIKey = "SNAILGPT_API_KEY"

// DefaultPersona is the system-message persona used when the config
// does not override it.
const DefaultPersona = "You are SnailGPT, a friendly and concise AI assistant. Answer clearly and keep responses focused."

var (
	// sharedHTTPClient serves non-streaming requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient serves streaming requests. It carries no
	// client-level timeout; cancellation comes from the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates no API key could be resolved.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates the API rejected the key (HTTP 401).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrInsufficientCredits indicates the account is out of credits (HTTP 402).
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrModelNotFound indicates the requested model does not exist (HTTP 404).
	ErrModelNotFound = errors.New("model not found")

	// ErrRateLimited indicates too many requests (HTTP 429).
	ErrRateLimited = errors.New("rate limited")
)

// APIError represents a structured error response from the API.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// apiErrorResponse is the wire shape of an error body.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// GENERATION MODES
// =============================================================================

// Mode bundles the generation parameters for one quality level.
type Mode struct {
	Name         string
	MaxTokens    int
	Temperature  float64
	HistoryTurns int
}

// The three generation modes. Extreme trades quality for speed: a
// shorter token budget, lower temperature, and a two-turn context
// window.
var (
	ModeExtreme = Mode{Name: "extreme", MaxTokens: 200, Temperature: 0.5, HistoryTurns: 2}
	ModeNormal  = Mode{Name: "normal", MaxTokens: 400, Temperature: 0.7, HistoryTurns: 6}
	ModeHigh    = Mode{Name: "high", MaxTokens: 600, Temperature: 0.7, HistoryTurns: 6}
)

// ModeByName resolves a mode name from config. Unknown names fall back
// to normal.
func ModeByName(name string) Mode {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "extreme":
		return ModeExtreme
	case "high":
		return ModeHigh
	default:
		return ModeNormal
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is a single message in the chat completions request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// ChatRequest is the request body for the chat completions endpoint.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse is a non-streaming chat completions response.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GetContent returns the content of the first choice, or empty string.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to an OpenAI-compatible chat completions API with
// bearer-token auth.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	format     string
	persona    string
	maxRetries int
}

// ResolveAPIKey applies the credential chain: the config file value
// wins, then the SNAILGPT_API_KEY environment variable, then none.
func ResolveAPIKey(configKey string) string {
	if key := strings.TrimSpace(configKey); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv(EnvAPIKey))
}

// New creates a client with the given API key. An empty key is
// allowed; requests on an unconfigured client fail with
// ErrNotConfigured before any network traffic.
func New(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		format:     FormatEvents,
		persona:    DefaultPersona,
		maxRetries: DefaultMaxRetries,
	}
}

// WithBaseURL sets a custom base URL.
func (c *Client) WithBaseURL(url string) *Client {
	if url = strings.TrimSpace(url); url != "" {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
	return c
}

// WithModel sets the model identifier.
func (c *Client) WithModel(m string) *Client {
	if m = strings.TrimSpace(m); m != "" {
		c.model = m
	}
	return c
}

// WithStreamFormat selects the transport shape, FormatEvents or
// FormatRaw. Unknown values keep the current format.
func (c *Client) WithStreamFormat(format string) *Client {
	switch format {
	case FormatEvents, FormatRaw:
		c.format = format
	}
	return c
}

// WithPersona overrides the system-message persona.
func (c *Client) WithPersona(p string) *Client {
	if p = strings.TrimSpace(p); p != "" {
		c.persona = p
	}
	return c
}

// WithMaxRetries sets the retry budget for non-streaming requests.
func (c *Client) WithMaxRetries(n int) *Client {
	if n > 0 {
		c.maxRetries = n
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// StreamFormat returns the configured transport shape.
func (c *Client) StreamFormat() string {
	return c.format
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns a display-safe description of the key. No
// fragment of the key itself is ever included.
func (c *Client) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), c.keyFingerprint())
}

// keyFingerprint returns a short SHA-256 fingerprint of the key for
// logging.
func (c *Client) keyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// =============================================================================
// REQUEST CONSTRUCTION
// =============================================================================

// BuildMessages assembles the wire messages for one completion: a
// synthesized system message carrying the persona and current date,
// followed by the rolling window of the most recent turns.
func (c *Client) BuildMessages(conv *model.Conversation, mode Mode) []ChatMessage {
	history := conv.RecentHistory(mode.HistoryTurns)
	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, NewSystemMessage(c.systemPreamble()))

	for _, msg := range history {
		// Skip the in-flight assistant placeholder and anything empty.
		if msg.IsStreaming || msg.Content == "" {
			continue
		}
		messages = append(messages, ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return messages
}

// systemPreamble composes the persona with the current date so the
// assistant can answer date-relative questions.
func (c *Client) systemPreamble() string {
	return c.persona + " Today's date is " + time.Now().Format("Monday, January 2, 2006") + "."
}

// buildRequest fills in the per-mode generation parameters.
func (c *Client) buildRequest(messages []ChatMessage, mode Mode, stream bool) ChatRequest {
	return ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Stream:      stream,
		Temperature: mode.Temperature,
		MaxTokens:   mode.MaxTokens,
	}
}

// setHeaders sets the headers common to all API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "snailgpt/1.0")
}

// =============================================================================
// NON-STREAMING CHAT
// =============================================================================

// Chat performs a blocking chat completion with retry and exponential
// backoff for transient errors.
func (c *Client) Chat(ctx context.Context, messages []ChatMessage, mode Mode) (*ChatResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	url := c.baseURL + "/chat/completions"
	reqBody := c.buildRequest(messages, mode, false)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.doRequest(ctx, url, reqBody)
		if err != nil {
			if c.isRetryable(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return resp, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return nil, errors.New("max retries exceeded")
}

// doRequest performs a single request to the chat completions endpoint.
func (c *Client) doRequest(ctx context.Context, requestURL string, reqBody ChatRequest) (*ChatResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &chatResp, nil
}

// readResponse reads a response body with a size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// handleErrorResponse converts HTTP error responses to sentinel errors
// the UI can match on.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		msg := apiErr.Error.Message
		switch statusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrAuthFailed, msg)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ErrInsufficientCredits, msg)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelNotFound, msg)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, msg)
		default:
			return &APIError{Code: apiErr.Error.Code, Message: msg, Status: statusCode}
		}
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusPaymentRequired:
		return ErrInsufficientCredits
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{Message: string(body), Status: statusCode}
	}
}

// UserMessage maps a client error to a short message fit for the
// transcript.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "No API key configured. Set one in ~/.snailgpt/config.toml or via " + EnvAPIKey + "."
	case errors.Is(err, ErrAuthFailed):
		return "Authentication failed. Check your API key."
	case errors.Is(err, ErrInsufficientCredits):
		return "Your account is out of credits."
	case errors.Is(err, ErrModelNotFound):
		return "The configured model was not found."
	case errors.Is(err, ErrRateLimited):
		return "Rate limited. Wait a moment and try again."
	case errors.Is(err, context.Canceled):
		return "Generation cancelled."
	default:
		return "Request failed: " + err.Error()
	}
}

// isRetryable reports whether an error should trigger a retry.
func (c *Client) isRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return false
}

// calculateBackoff returns the delay before the next retry attempt.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
