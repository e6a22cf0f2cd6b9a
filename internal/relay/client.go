// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package relay provides the HTTP client for the stream relay backend.
package relay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the relay client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeBadRequest
	ErrTypeServer
	ErrTypeConnection
)

// Sentinel errors for easy checking.
var (
	ErrNotRunning = &ClientError{Type: ErrTypeNotRunning, Message: "relay server is not running"}
	ErrTimeout    = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// IsNotRunning reports whether err means the relay could not be reached.
func IsNotRunning(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeNotRunning
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the relay client.
type ClientConfig struct {
	// BaseURL is the relay base URL (default: http://127.0.0.1:5001)
	BaseURL string

	// Timeout for non-streaming requests (default: 90s, image synthesis is slow)
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL: "http://127.0.0.1:5001",
		Timeout: 90 * time.Second,
	}
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// HistoryPart is one text fragment of a history entry.
type HistoryPart struct {
	Text string `json:"text"`
}

// HistoryItem is one prior conversation turn in the wire format.
type HistoryItem struct {
	Role  string        `json:"role"`
	Parts []HistoryPart `json:"parts"`
}

// generateRequest is the body of POST /api/generate.
type generateRequest struct {
	Prompt  string        `json:"prompt"`
	History []HistoryItem `json:"history,omitempty"`
}

// visionRequest is the body of POST /api/vision.
type visionRequest struct {
	Prompt   string `json:"prompt"`
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

// imageRequest is the body of POST /api/generate-image.
type imageRequest struct {
	Prompt string `json:"prompt"`
}

// imageResponse is the success body of POST /api/generate-image.
type imageResponse struct {
	Success     bool   `json:"success"`
	Base64Image string `json:"base64Image"`
}

// =============================================================================
// CLIENT
// =============================================================================

// ChunkCallback is invoked for each decoded text chunk as it arrives.
type ChunkCallback func(chunk string)

// Client talks to the stream relay backend.
//
// The Client is thread-safe for concurrent use, though the chat flow issues
// at most one generation at a time.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a relay client with the given configuration.
// A nil config uses defaults.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:5001"
	}
	if config.Timeout == 0 {
		config.Timeout = 90 * time.Second
	}
	return &Client{
		config: config,
		// No Timeout on the streaming client: a generation stream stays open
		// for as long as the model keeps producing text.
		httpClient: &http.Client{},
	}
}

// BaseURL returns the configured relay base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// STREAMING CALLS
// =============================================================================

// Generate runs a text generation through the relay, invoking onChunk for
// each decoded text chunk. Returns the full accumulated reply.
func (c *Client) Generate(ctx context.Context, prompt string, history []HistoryItem, onChunk ChunkCallback) (string, error) {
	body := generateRequest{Prompt: prompt, History: history}
	return c.stream(ctx, "/api/generate", body, onChunk)
}

// GenerateVision runs an image understanding generation through the relay.
// The image bytes are base64-encoded onto the wire.
func (c *Client) GenerateVision(ctx context.Context, prompt, mimeType string, imageData []byte, onChunk ChunkCallback) (string, error) {
	body := visionRequest{
		Prompt:   prompt,
		Image:    base64.StdEncoding.EncodeToString(imageData),
		MimeType: mimeType,
	}
	return c.stream(ctx, "/api/vision", body, onChunk)
}

// stream POSTs the body and relays the chunked text/plain response through
// the callback. Chunks are passed through a ChunkDecoder so callback text is
// always valid UTF-8 even when the connection splits a rune.
func (c *Client) stream(ctx context.Context, path string, body interface{}, onChunk ChunkCallback) (string, error) {
	resp, err := c.post(ctx, path, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.errorFromStatus(resp)
	}

	var full strings.Builder
	decoder := NewChunkDecoder()
	buf := make([]byte, 4096)

	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if text := decoder.Decode(buf[:n]); text != "" {
				full.WriteString(text)
				if onChunk != nil {
					onChunk(text)
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			if ctx.Err() != nil {
				return full.String(), &ClientError{Type: ErrTypeTimeout, Message: "stream interrupted", Cause: ctx.Err()}
			}
			return full.String(), &ClientError{Type: ErrTypeConnection, Message: "stream read failed", Cause: err}
		}
	}

	if tail := decoder.Flush(); tail != "" {
		full.WriteString(tail)
		if onChunk != nil {
			onChunk(tail)
		}
	}

	return full.String(), nil
}

// =============================================================================
// IMAGE SYNTHESIS
// =============================================================================

// GenerateImage renders an image through the relay and returns the raw bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	resp, err := c.post(ctx, "/api/generate-image", imageRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromStatus(resp)
	}

	var ir imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return nil, &ClientError{Type: ErrTypeServer, Message: "invalid image response", Cause: err}
	}
	if !ir.Success || ir.Base64Image == "" {
		return nil, &ClientError{Type: ErrTypeServer, Message: "image generation reported no image"}
	}

	data, err := base64.StdEncoding.DecodeString(ir.Base64Image)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeServer, Message: "invalid base64 image data", Cause: err}
	}
	return data, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// post issues a JSON POST and classifies transport failures.
func (c *Client) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, ErrTimeout
		}
		if strings.Contains(err.Error(), "connection refused") {
			return nil, ErrNotRunning
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "request failed", Cause: err}
	}
	return resp, nil
}

// errorFromStatus drains an error response into a ClientError.
func (c *Client) errorFromStatus(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)

	message := payload.Message
	if message == "" {
		message = "relay returned " + resp.Status
	}

	errType := ErrTypeServer
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		errType = ErrTypeBadRequest
	}
	return &ClientError{Type: errType, Message: message}
}
