// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// CHUNK DECODER TESTS
// =============================================================================

func TestChunkDecoderASCII(t *testing.T) {
	d := NewChunkDecoder()

	if got := d.Decode([]byte("hello ")); got != "hello " {
		t.Errorf("Decode = %q", got)
	}
	if got := d.Decode([]byte("world")); got != "world" {
		t.Errorf("Decode = %q", got)
	}
	if got := d.Flush(); got != "" {
		t.Errorf("Flush = %q, want empty", got)
	}
}

func TestChunkDecoderSplitRune(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		splits []int // byte offsets to cut at
	}{
		{"two-byte rune split", "héllo", []int{2}},
		{"three-byte rune split", "日本語", []int{1, 4, 7}},
		{"four-byte rune split", "a𝄞b", []int{2, 3}},
		{"emoji split mid-rune", "hi👋there", []int{3, 4, 5}},
		{"split at every byte", "é日𝄞", []int{1, 2, 3, 4, 5, 6, 7, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewChunkDecoder()
			data := []byte(tt.text)

			var out strings.Builder
			prev := 0
			for _, cut := range tt.splits {
				out.WriteString(d.Decode(data[prev:cut]))
				prev = cut
			}
			out.WriteString(d.Decode(data[prev:]))
			out.WriteString(d.Flush())

			if out.String() != tt.text {
				t.Errorf("reassembled = %q, want %q", out.String(), tt.text)
			}
		})
	}
}

func TestChunkDecoderEmitsOnlyValidUTF8(t *testing.T) {
	d := NewChunkDecoder()
	data := []byte("日") // 3 bytes

	first := d.Decode(data[:2])
	if first != "" {
		t.Errorf("partial rune emitted early: %q", first)
	}
	second := d.Decode(data[2:])
	if second != "日" {
		t.Errorf("Decode = %q, want 日", second)
	}
}

func TestChunkDecoderEmptyChunk(t *testing.T) {
	d := NewChunkDecoder()
	if got := d.Decode(nil); got != "" {
		t.Errorf("Decode(nil) = %q", got)
	}
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func newTestClient(url string) *Client {
	return NewClient(&ClientConfig{BaseURL: url})
}

func TestGenerateStreamsChunks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Prompt != "hello" {
			t.Errorf("prompt = %q", req.Prompt)
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher := w.(http.Flusher)
		for _, chunk := range []string{"Hi ", "there", "!"} {
			w.Write([]byte(chunk))
			flusher.Flush()
		}
	}))
	defer ts.Close()

	var chunks []string
	full, err := newTestClient(ts.URL).Generate(context.Background(), "hello", nil, func(c string) {
		chunks = append(chunks, c)
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if full != "Hi there!" {
		t.Errorf("full = %q", full)
	}
	if strings.Join(chunks, "") != "Hi there!" {
		t.Errorf("chunks = %q", chunks)
	}
}

func TestGenerateSplitRuneAcrossWrites(t *testing.T) {
	// The server splits a three-byte rune across two writes; the client must
	// reassemble it exactly.
	text := "天気は晴れ"
	data := []byte(text)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write(data[:4])
		flusher.Flush()
		w.Write(data[4:])
		flusher.Flush()
	}))
	defer ts.Close()

	var out strings.Builder
	full, err := newTestClient(ts.URL).Generate(context.Background(), "p", nil, func(c string) {
		out.WriteString(c)
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if full != text {
		t.Errorf("full = %q, want %q", full, text)
	}
	if out.String() != text {
		t.Errorf("callback text = %q, want %q", out.String(), text)
	}
}

func TestGenerateSendsHistory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.History) != 2 {
			t.Errorf("history len = %d, want 2", len(req.History))
		}
		if req.History[1].Role != "model" {
			t.Errorf("history[1].Role = %q", req.History[1].Role)
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	history := []HistoryItem{
		{Role: "user", Parts: []HistoryPart{{Text: "q"}}},
		{Role: "model", Parts: []HistoryPart{{Text: "a"}}},
	}
	if _, err := newTestClient(ts.URL).Generate(context.Background(), "p", history, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestGenerateBadRequestError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "A prompt is required."})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Generate(context.Background(), "", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "A prompt is required.") {
		t.Errorf("err = %v", err)
	}
}

func TestGenerateConnectionRefused(t *testing.T) {
	// Port chosen from the ephemeral range with nothing listening.
	client := newTestClient("http://127.0.0.1:59999")
	_, err := client.Generate(context.Background(), "p", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotRunning(err) {
		t.Errorf("expected not-running error, got %v", err)
	}
}

func TestGenerateImageRoundtrip(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate-image" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(imageResponse{
			Success:     true,
			Base64Image: "aGVsbG8=", // "hello"
		})
	}))
	defer ts.Close()

	data, err := newTestClient(ts.URL).GenerateImage(context.Background(), "a sunset")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}
}

func TestGenerateImageServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "Server error while generating image."})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).GenerateImage(context.Background(), "a sunset")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Server error") {
		t.Errorf("err = %v", err)
	}
}
