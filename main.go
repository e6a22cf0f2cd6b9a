// elli - A Gemini-backed chat assistant for the terminal.
//
// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ellichat/elli/internal/config"
	"github.com/ellichat/elli/internal/gemini"
	"github.com/ellichat/elli/internal/model"
	"github.com/ellichat/elli/internal/relay"
	"github.com/ellichat/elli/internal/server"
	"github.com/ellichat/elli/internal/store"
	"github.com/ellichat/elli/internal/ui/chat"
	"github.com/ellichat/elli/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "1.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cmd := ""
	args := os.Args[1:]
	if len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "", "chat", "tui":
		runChat()
	case "serve":
		runServe()
	case "version", "--version", "-v":
		fmt.Printf("elli %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`elli - chat with Elli in your terminal

Usage:
  elli [chat]      Start the chat interface (default)
  elli serve       Run the relay server
  elli version     Print version information
  elli help        Show this help

The relay server must be running for the chat interface to work.
Set GEMINI_API_KEY before running "elli serve".
`)
}

// =============================================================================
// SERVE
// =============================================================================

// loadConfig reads the configuration, seeding the config file with the
// defaults on first run so users have something to edit.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	if path, err := config.ConfigPath(); err == nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			if err := config.Save(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "warning: could not write config file: %v\n", err)
			}
		}
	}
	return cfg
}

// runServe starts the relay server and blocks until interrupted.
func runServe() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clientCfg := gemini.DefaultConfig()
	clientCfg.APIKey = cfg.Gateway.APIKey
	clientCfg.TextModel = cfg.Gateway.TextModel
	clientCfg.ImageModel = cfg.Gateway.ImageModel

	client, err := gemini.NewClient(ctx, clientCfg)
	if err != nil {
		fatal(err)
	}

	srv := server.NewServer(cfg.Server.Port, client)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			fatal(err)
		}
	case err := <-errCh:
		if err != nil {
			fatal(err)
		}
	}
}

// =============================================================================
// CHAT
// =============================================================================

// runChat starts the TUI against the relay server.
func runChat() {
	cfg := loadConfig()

	sessionStore, err := store.NewSessionStore()
	if err != nil {
		fatal(err)
	}

	// A persisted session restores both the transcript and the theme choice.
	var transcript *model.Transcript
	var savedTheme string
	if sessionStore.Exists() {
		transcript, savedTheme, err = sessionStore.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not restore session: %v\n", err)
		}
	}
	themePref := cfg.UI.Theme
	if savedTheme != "" {
		themePref = savedTheme
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		fatal(err)
	}

	m := chat.New(chat.Options{
		Relay: relay.NewClient(&relay.ClientConfig{
			BaseURL: cfg.Client.RelayURL,
		}),
		Store:      sessionStore,
		Theme:      styles.NewTheme(themePref),
		ImageDir:   filepath.Join(configDir, "images"),
		Transcript: transcript,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
