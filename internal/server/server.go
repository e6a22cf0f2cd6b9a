// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the stream relay HTTP server.
//
// Endpoints:
//   - POST /api/generate       - Text generation, chunked text/plain stream
//   - POST /api/vision         - Image understanding, chunked text/plain stream
//   - POST /api/generate-image - Image synthesis, JSON response
//   - GET  /health             - Health check
//
// The two streaming endpoints relay upstream text chunks verbatim: headers
// are committed before the upstream call, each chunk is written and flushed
// as it arrives, and an upstream failure surfaces as a fixed in-band error
// line at the end of the (already 200) stream.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ellichat/elli/internal/gemini"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the relay server.
	DefaultPort = 5001

	// MaxRequestBodySize caps request bodies (10MB, sized for inline images).
	MaxRequestBodySize = 10 * 1024 * 1024

	// Version is the server version.
	Version = "1.0.0"

	// errGenerate is the in-band error line for a failed text generation.
	errGenerate = "An error occurred during generation."

	// errVision is the in-band error line for a failed image understanding.
	errVision = "An error occurred during image understanding."
)

// ============================================================================
// GENERATOR INTERFACE
// ============================================================================

// Generator is the upstream generation surface the relay forwards to.
// *gemini.Client satisfies it; tests substitute a stub.
type Generator interface {
	GenerateStream(ctx context.Context, prompt string, history []gemini.HistoryTurn, onChunk gemini.StreamCallback) (string, error)
	GenerateVisionStream(ctx context.Context, prompt, mimeType string, imageData []byte, onChunk gemini.StreamCallback) (string, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

// HistoryPart is one text fragment of a history entry.
type HistoryPart struct {
	Text string `json:"text"`
}

// HistoryItem is one prior conversation turn in the wire format.
type HistoryItem struct {
	Role  string        `json:"role"`
	Parts []HistoryPart `json:"parts"`
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt  string        `json:"prompt"`
	History []HistoryItem `json:"history,omitempty"`
}

// VisionRequest is the body of POST /api/vision.
// Image carries base64-encoded bytes.
type VisionRequest struct {
	Prompt   string `json:"prompt"`
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

// ImageRequest is the body of POST /api/generate-image.
type ImageRequest struct {
	Prompt string `json:"prompt"`
}

// ImageResponse is the success body of POST /api/generate-image.
type ImageResponse struct {
	Success     bool   `json:"success"`
	Base64Image string `json:"base64Image"`
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the stream relay HTTP server.
type Server struct {
	port      int
	router    *http.ServeMux
	server    *http.Server
	generator Generator
}

// NewServer creates a relay server forwarding to the given generator.
// If port is 0, the default port (5001) is used.
func NewServer(port int, generator Generator) *Server {
	if port == 0 {
		port = DefaultPort
	}

	s := &Server{
		port:      port,
		router:    http.NewServeMux(),
		generator: generator,
	}

	s.setupRoutes()
	return s
}

// Port returns the server port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the routed handler without the outer middleware chain.
// Used by tests to exercise routes directly.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/generate", s.handleGenerate)
	s.router.HandleFunc("POST /api/vision", s.handleVision)
	s.router.HandleFunc("POST /api/generate-image", s.handleGenerateImage)
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// ============================================================================
// TEXT GENERATION HANDLER
// ============================================================================

// handleGenerate handles POST /api/generate.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.decodeError(w, err)
		return
	}

	// Validation happens before any upstream work.
	if req.Prompt == "" {
		s.writeError(w, http.StatusBadRequest, "A prompt is required.")
		return
	}

	history := flattenHistory(req.History)

	s.streamText(w, r, errGenerate, func(ctx context.Context, onChunk gemini.StreamCallback) error {
		_, err := s.generator.GenerateStream(ctx, req.Prompt, history, onChunk)
		return err
	})
}

// ============================================================================
// VISION HANDLER
// ============================================================================

// handleVision handles POST /api/vision.
func (s *Server) handleVision(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req VisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.decodeError(w, err)
		return
	}

	if req.Prompt == "" || req.Image == "" || req.MimeType == "" {
		s.writeError(w, http.StatusBadRequest, "Prompt, image, and mimeType are required")
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Image must be base64-encoded")
		return
	}

	s.streamText(w, r, errVision, func(ctx context.Context, onChunk gemini.StreamCallback) error {
		_, err := s.generator.GenerateVisionStream(ctx, req.Prompt, req.MimeType, imageData, onChunk)
		return err
	})
}

// ============================================================================
// IMAGE SYNTHESIS HANDLER
// ============================================================================

// handleGenerateImage handles POST /api/generate-image.
func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.decodeError(w, err)
		return
	}

	if req.Prompt == "" {
		s.writeError(w, http.StatusBadRequest, "A prompt is required to generate an image.")
		return
	}

	imageBytes, err := s.generator.GenerateImage(r.Context(), req.Prompt)
	if err != nil {
		log.Printf("IMAGE_ERROR | err=%v", err)
		s.writeError(w, http.StatusInternalServerError, "Server error while generating image.")
		return
	}

	s.writeJSON(w, http.StatusOK, ImageResponse{
		Success:     true,
		Base64Image: base64.StdEncoding.EncodeToString(imageBytes),
	})
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}

// ============================================================================
// STREAM RELAY
// ============================================================================

// streamText commits chunked text/plain headers, runs the generation, and
// relays each chunk verbatim with a flush. If the generation fails the fixed
// errLine is written as the final chunk; the status is already 200 at that
// point and stays 200.
func (s *Server) streamText(w http.ResponseWriter, r *http.Request, errLine string, run func(ctx context.Context, onChunk gemini.StreamCallback) error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	err := run(r.Context(), func(chunk string) {
		// Chunks are relayed verbatim, one write per upstream chunk.
		if _, werr := fmt.Fprint(w, chunk); werr != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	})

	if err != nil {
		log.Printf("STREAM_ERROR | path=%s err=%v", r.URL.Path, err)
		fmt.Fprint(w, errLine)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server. Blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)

	handler := Chain(
		RecoveryMiddleware(),
		LoggingMiddleware(log.Default()),
		CORSMiddleware(DefaultCORSConfig()),
	)(s.router)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: generation streams can legitimately run for minutes.
		IdleTimeout: 120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// decodeError maps a body decode failure to a client error response.
func (s *Server) decodeError(w http.ResponseWriter, err error) {
	if strings.Contains(err.Error(), "request body too large") {
		s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize))
		return
	}
	log.Printf("Invalid request body: %v", err)
	s.writeError(w, http.StatusBadRequest, "Invalid request format")
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"message": message})
}

// flattenHistory maps wire history entries to gateway turns, joining the
// text parts of each entry.
func flattenHistory(items []HistoryItem) []gemini.HistoryTurn {
	if len(items) == 0 {
		return nil
	}
	turns := make([]gemini.HistoryTurn, 0, len(items))
	for _, item := range items {
		var sb strings.Builder
		for _, part := range item.Parts {
			sb.WriteString(part.Text)
		}
		turns = append(turns, gemini.HistoryTurn{Role: item.Role, Text: sb.String()})
	}
	return turns
}
