// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/genai"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Gemini gateway client.
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

// ErrorType categorizes gateway errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeMissingKey
	ErrTypeUpstream
	ErrTypeInvalidResponse
	ErrTypeCanceled
)

// Sentinel errors for easy checking.
var (
	ErrMissingKey      = &ClientError{Type: ErrTypeMissingKey, Message: "GEMINI_API_KEY is not set"}
	ErrInvalidResponse = &ClientError{Type: ErrTypeInvalidResponse, Message: "invalid response from Gemini API"}
)

// upstreamError wraps an SDK failure.
func upstreamError(msg string, cause error) *ClientError {
	return &ClientError{Type: ErrTypeUpstream, Message: msg, Cause: cause}
}

// IsMissingKey reports whether the error is the missing-API-key error.
func IsMissingKey(err error) bool {
	return errors.Is(err, ErrMissingKey)
}

// =============================================================================
// SYSTEM INSTRUCTION
// =============================================================================

// systemInstruction defines the Elli persona applied to every text and
// vision request.
const systemInstruction = `You are Elli, a friendly and helpful AI assistant created by Rafi for learning purposes. You are designed to assist students with their questions, explain complex topics, and help with their studies. Your capabilities include analyzing text, understanding the content of images, and reading documents. Always maintain a positive, encouraging, and educational tone. When a user asks "who are you?" or about your identity, introduce yourself as Elli and mention you were created by Rafi.`

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Gemini gateway client.
type ClientConfig struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// TextModel handles text and vision generation (default: "gemini-1.5-flash-latest")
	TextModel string

	// ImageModel handles image generation (default: "imagen-3.0-generate-002")
	ImageModel string

	// StreamTimeout bounds a full streaming generation (default: 2m)
	StreamTimeout time.Duration

	// ImageTimeout bounds an image generation call (default: 60s)
	ImageTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		TextModel:     "gemini-1.5-flash-latest",
		ImageModel:    "imagen-3.0-generate-002",
		StreamTimeout: 2 * time.Minute,
		ImageTimeout:  60 * time.Second,
	}
}

// =============================================================================
// HISTORY
// =============================================================================

// HistoryTurn is one prior conversation turn sent as generation context.
// Role is "user" or "model".
type HistoryTurn struct {
	Role string
	Text string
}

// =============================================================================
// CLIENT
// =============================================================================

// StreamCallback is invoked for each text chunk as it arrives from the API.
type StreamCallback func(chunk string)

// Client handles communication with the Gemini API.
//
// The Client is thread-safe for concurrent use.
type Client struct {
	config *ClientConfig
	genai  *genai.Client
}

// NewClient creates a Gemini gateway client.
func NewClient(ctx context.Context, config *ClientConfig) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.APIKey == "" {
		return nil, ErrMissingKey
	}
	if config.TextModel == "" {
		config.TextModel = "gemini-1.5-flash-latest"
	}
	if config.ImageModel == "" {
		config.ImageModel = "imagen-3.0-generate-002"
	}
	if config.StreamTimeout == 0 {
		config.StreamTimeout = 2 * time.Minute
	}
	if config.ImageTimeout == 0 {
		config.ImageTimeout = 60 * time.Second
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: config.APIKey})
	if err != nil {
		return nil, upstreamError("failed to create Gemini client", err)
	}

	return &Client{config: config, genai: gc}, nil
}

// =============================================================================
// TEXT GENERATION
// =============================================================================

// GenerateStream runs a text generation with conversation history, invoking
// onChunk for every piece of text as it arrives. It returns the full
// accumulated reply, or an error if the stream failed before completing.
func (c *Client) GenerateStream(ctx context.Context, prompt string, history []HistoryTurn, onChunk StreamCallback) (string, error) {
	contents := buildContents(history)
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	})
	return c.stream(ctx, contents, onChunk)
}

// GenerateVisionStream runs a multimodal generation over an inline image and
// a text prompt, streaming chunks through onChunk.
func (c *Client) GenerateVisionStream(ctx context.Context, prompt, mimeType string, imageData []byte, onChunk StreamCallback) (string, error) {
	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
				{Text: prompt},
			},
		},
	}
	return c.stream(ctx, contents, onChunk)
}

// stream drives a GenerateContentStream iteration and fans chunks out to the
// callback.
func (c *Client) stream(ctx context.Context, contents []*genai.Content, onChunk StreamCallback) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.StreamTimeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}

	it := c.genai.Models.GenerateContentStream(ctx, c.config.TextModel, contents, config)

	var full strings.Builder
	for resp, err := range it {
		if err != nil {
			if ctx.Err() != nil {
				return full.String(), &ClientError{Type: ErrTypeCanceled, Message: "generation canceled", Cause: ctx.Err()}
			}
			return full.String(), upstreamError("generation stream failed", err)
		}
		if resp == nil {
			continue
		}
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part == nil || part.Text == "" {
					continue
				}
				full.WriteString(part.Text)
				if onChunk != nil {
					onChunk(part.Text)
				}
			}
		}
	}

	return full.String(), nil
}

// =============================================================================
// IMAGE GENERATION
// =============================================================================

// GenerateImage renders a single image for the prompt and returns the raw
// image bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ImageTimeout)
	defer cancel()

	config := &genai.GenerateImagesConfig{NumberOfImages: 1}
	resp, err := c.genai.Models.GenerateImages(ctx, c.config.ImageModel, prompt, config)
	if err != nil {
		return nil, upstreamError("image generation failed", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, ErrInvalidResponse
	}
	img := resp.GeneratedImages[0]
	if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
		return nil, ErrInvalidResponse
	}
	return img.Image.ImageBytes, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// buildContents maps prior turns to SDK content entries. Unknown roles are
// treated as user turns.
func buildContents(history []HistoryTurn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, h := range history {
		role := genai.RoleUser
		if h.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: h.Text}},
		})
	}
	return contents
}
