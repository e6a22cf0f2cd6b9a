// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ellichat/elli/internal/gemini"
)

// =============================================================================
// STUB GENERATOR
// =============================================================================

// stubGenerator scripts upstream behavior for handler tests.
type stubGenerator struct {
	chunks     []string
	streamErr  error
	imageBytes []byte
	imageErr   error

	// recorded inputs
	lastPrompt   string
	lastHistory  []gemini.HistoryTurn
	lastMimeType string
	lastImage    []byte
	calls        int
}

func (g *stubGenerator) GenerateStream(ctx context.Context, prompt string, history []gemini.HistoryTurn, onChunk gemini.StreamCallback) (string, error) {
	g.calls++
	g.lastPrompt = prompt
	g.lastHistory = history
	var full strings.Builder
	for _, c := range g.chunks {
		full.WriteString(c)
		onChunk(c)
	}
	return full.String(), g.streamErr
}

func (g *stubGenerator) GenerateVisionStream(ctx context.Context, prompt, mimeType string, imageData []byte, onChunk gemini.StreamCallback) (string, error) {
	g.calls++
	g.lastPrompt = prompt
	g.lastMimeType = mimeType
	g.lastImage = imageData
	var full strings.Builder
	for _, c := range g.chunks {
		full.WriteString(c)
		onChunk(c)
	}
	return full.String(), g.streamErr
}

func (g *stubGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	g.calls++
	g.lastPrompt = prompt
	return g.imageBytes, g.imageErr
}

// =============================================================================
// HELPERS
// =============================================================================

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// TEXT GENERATION TESTS
// =============================================================================

func TestGenerateStreamsChunksVerbatim(t *testing.T) {
	gen := &stubGenerator{chunks: []string{"Hello", ", ", "world!"}}
	srv := NewServer(0, gen)

	rec := postJSON(t, srv.Handler(), "/api/generate", GenerateRequest{Prompt: "hi"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if got := rec.Body.String(); got != "Hello, world!" {
		t.Errorf("body = %q, want %q", got, "Hello, world!")
	}
	if gen.lastPrompt != "hi" {
		t.Errorf("prompt = %q, want %q", gen.lastPrompt, "hi")
	}
}

func TestGenerateMissingPrompt(t *testing.T) {
	gen := &stubGenerator{}
	srv := NewServer(0, gen)

	rec := postJSON(t, srv.Handler(), "/api/generate", GenerateRequest{})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if gen.calls != 0 {
		t.Error("upstream should not be called on validation failure")
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if resp["message"] != "A prompt is required." {
		t.Errorf("message = %q", resp["message"])
	}
}

func TestGenerateHistoryFlattened(t *testing.T) {
	gen := &stubGenerator{chunks: []string{"ok"}}
	srv := NewServer(0, gen)

	postJSON(t, srv.Handler(), "/api/generate", GenerateRequest{
		Prompt: "next",
		History: []HistoryItem{
			{Role: "user", Parts: []HistoryPart{{Text: "first "}, {Text: "question"}}},
			{Role: "model", Parts: []HistoryPart{{Text: "first answer"}}},
		},
	})

	want := []gemini.HistoryTurn{
		{Role: "user", Text: "first question"},
		{Role: "model", Text: "first answer"},
	}
	if len(gen.lastHistory) != len(want) {
		t.Fatalf("history len = %d, want %d", len(gen.lastHistory), len(want))
	}
	for i, h := range gen.lastHistory {
		if h != want[i] {
			t.Errorf("history[%d] = %+v, want %+v", i, h, want[i])
		}
	}
}

func TestGenerateUpstreamErrorInBand(t *testing.T) {
	gen := &stubGenerator{
		chunks:    []string{"partial "},
		streamErr: errors.New("upstream exploded"),
	}
	srv := NewServer(0, gen)

	rec := postJSON(t, srv.Handler(), "/api/generate", GenerateRequest{Prompt: "hi"})

	// Headers were committed before the failure, so the status stays 200 and
	// the error surfaces as the final chunk.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := "partial " + errGenerate
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
}

func TestGenerateInvalidJSON(t *testing.T) {
	srv := NewServer(0, &stubGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// =============================================================================
// VISION TESTS
// =============================================================================

func TestVisionStreamsChunks(t *testing.T) {
	gen := &stubGenerator{chunks: []string{"I see ", "a cat"}}
	srv := NewServer(0, gen)

	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47}
	rec := postJSON(t, srv.Handler(), "/api/vision", VisionRequest{
		Prompt:   "what is this?",
		Image:    base64.StdEncoding.EncodeToString(imageBytes),
		MimeType: "image/png",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "I see a cat" {
		t.Errorf("body = %q", got)
	}
	if !bytes.Equal(gen.lastImage, imageBytes) {
		t.Error("image bytes not decoded correctly")
	}
	if gen.lastMimeType != "image/png" {
		t.Errorf("mimeType = %q", gen.lastMimeType)
	}
}

func TestVisionMissingFields(t *testing.T) {
	tests := []struct {
		name string
		req  VisionRequest
	}{
		{"missing prompt", VisionRequest{Image: "aGk=", MimeType: "image/png"}},
		{"missing image", VisionRequest{Prompt: "hi", MimeType: "image/png"}},
		{"missing mimeType", VisionRequest{Prompt: "hi", Image: "aGk="}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{}
			srv := NewServer(0, gen)

			rec := postJSON(t, srv.Handler(), "/api/vision", tt.req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if gen.calls != 0 {
				t.Error("upstream should not be called on validation failure")
			}
		})
	}
}

func TestVisionInvalidBase64(t *testing.T) {
	srv := NewServer(0, &stubGenerator{})

	rec := postJSON(t, srv.Handler(), "/api/vision", VisionRequest{
		Prompt:   "hi",
		Image:    "!!not base64!!",
		MimeType: "image/png",
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestVisionUpstreamErrorInBand(t *testing.T) {
	gen := &stubGenerator{streamErr: errors.New("boom")}
	srv := NewServer(0, gen)

	rec := postJSON(t, srv.Handler(), "/api/vision", VisionRequest{
		Prompt:   "hi",
		Image:    "aGk=",
		MimeType: "image/png",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != errVision {
		t.Errorf("body = %q, want %q", got, errVision)
	}
}

// =============================================================================
// IMAGE SYNTHESIS TESTS
// =============================================================================

func TestGenerateImageSuccess(t *testing.T) {
	imageBytes := []byte("fake-png-bytes")
	gen := &stubGenerator{imageBytes: imageBytes}
	srv := NewServer(0, gen)

	rec := postJSON(t, srv.Handler(), "/api/generate-image", ImageRequest{Prompt: "a sunset"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ImageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false, want true")
	}
	if resp.Base64Image != base64.StdEncoding.EncodeToString(imageBytes) {
		t.Error("base64Image does not match generated bytes")
	}
}

func TestGenerateImageMissingPrompt(t *testing.T) {
	gen := &stubGenerator{}
	srv := NewServer(0, gen)

	rec := postJSON(t, srv.Handler(), "/api/generate-image", ImageRequest{})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if gen.calls != 0 {
		t.Error("upstream should not be called on validation failure")
	}
}

func TestGenerateImageUpstreamError(t *testing.T) {
	gen := &stubGenerator{imageErr: errors.New("quota exceeded")}
	srv := NewServer(0, gen)

	rec := postJSON(t, srv.Handler(), "/api/generate-image", ImageRequest{Prompt: "a sunset"})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error body: %v", err)
	}
	if resp["message"] != "Server error while generating image." {
		t.Errorf("message = %q", resp["message"])
	}
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestCORSPreflight(t *testing.T) {
	handler := CORSMiddleware(DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight should not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/generate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Allow-Origin = %q, want *", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(0, &stubGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %q, want ok", resp["status"])
	}
}
