// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for elli.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides. File location: ~/.elli/config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete elli configuration.
type Config struct {
	// Server configuration
	Server ServerConfig `toml:"server"`

	// Gateway (Gemini) configuration
	Gateway GatewayConfig `toml:"gateway"`

	// Client (chat TUI) configuration
	Client ClientConfig `toml:"client"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ServerConfig contains relay server configuration.
type ServerConfig struct {
	// Port the relay listens on (default: 5001)
	Port int `toml:"port"`
}

// GatewayConfig contains Gemini gateway configuration.
type GatewayConfig struct {
	// APIKey authenticates against the Gemini API.
	// Prefer the GEMINI_API_KEY environment variable over storing it here.
	APIKey string `toml:"api_key"`

	// TextModel handles text and vision generation.
	TextModel string `toml:"text_model"`

	// ImageModel handles image synthesis.
	ImageModel string `toml:"image_model"`
}

// ClientConfig contains chat client configuration.
type ClientConfig struct {
	// RelayURL is the base URL of the relay server.
	RelayURL string `toml:"relay_url"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is "dark" or "light".
	Theme string `toml:"theme"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 5001,
		},
		Gateway: GatewayConfig{
			TextModel:  "gemini-1.5-flash-latest",
			ImageModel: "imagen-3.0-generate-002",
		},
		Client: ClientConfig{
			RelayURL: "http://127.0.0.1:5001",
		},
		UI: UIConfig{
			Theme: "dark",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the elli configuration directory (~/.elli).
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".elli"), nil
}

// ConfigPath returns the configuration file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the configuration file, falling back to defaults when it does
// not exist, and applies environment overrides last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadFile(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile loads configuration from a TOML file into cfg.
func LoadFile(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// Save writes the configuration to its default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the configuration to path. The API key lives in the file,
// so permissions are owner-only.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# elli configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// OVERRIDES / DEFAULTS / VALIDATION
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	// GEMINI_API_KEY
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Gateway.APIKey = key
	}

	// PORT
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}

	// ELLI_RELAY_URL
	if url := os.Getenv("ELLI_RELAY_URL"); url != "" {
		c.Client.RelayURL = url
	}

	// ELLI_THEME
	if theme := os.Getenv("ELLI_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Gateway.TextModel == "" {
		c.Gateway.TextModel = def.Gateway.TextModel
	}
	if c.Gateway.ImageModel == "" {
		c.Gateway.ImageModel = def.Gateway.ImageModel
	}
	if c.Client.RelayURL == "" {
		c.Client.RelayURL = def.Client.RelayURL
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.UI.Theme != "dark" && c.UI.Theme != "light" {
		return fmt.Errorf("ui.theme must be \"dark\" or \"light\", got %q", c.UI.Theme)
	}
	return nil
}
