// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini provides the gateway client for the Google Gemini API.
//
// The client wraps the official google.golang.org/genai SDK behind three
// operations: streaming text generation with conversation history,
// streaming image understanding, and one-shot image synthesis. Every
// generation carries the Elli persona as the system instruction.
//
// # Usage
//
//	client, err := gemini.NewClient(ctx, &gemini.ClientConfig{
//		APIKey: os.Getenv("GEMINI_API_KEY"),
//	})
//	if err != nil {
//		return err
//	}
//	full, err := client.GenerateStream(ctx, "hello", nil, func(chunk string) {
//		fmt.Print(chunk)
//	})
//
// Errors are ClientError values with a machine-readable type; sentinel
// errors like ErrMissingKey support errors.Is checks.
package gemini
