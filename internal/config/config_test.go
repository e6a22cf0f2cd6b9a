// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 5001 {
		t.Errorf("Port = %d, want 5001", cfg.Server.Port)
	}
	if cfg.Client.RelayURL != "http://127.0.0.1:5001" {
		t.Errorf("RelayURL = %q", cfg.Client.RelayURL)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q, want dark", cfg.UI.Theme)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = 7000

[gateway]
text_model = "gemini-custom"

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Gateway.TextModel != "gemini-custom" {
		t.Errorf("TextModel = %q", cfg.Gateway.TextModel)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q, want light", cfg.UI.Theme)
	}
	// Untouched sections keep their defaults.
	if cfg.Client.RelayURL != "http://127.0.0.1:5001" {
		t.Errorf("RelayURL = %q", cfg.Client.RelayURL)
	}
}

func TestSaveToRoundtrip(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 6001
	cfg.UI.Theme = "light"
	cfg.Gateway.APIKey = "test-key"

	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := SaveTo(cfg, path); err != nil {
		t.Fatal(err)
	}

	// The key lives in the file; it must be owner-only.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}

	loaded := Default()
	if err := LoadFile(loaded, path); err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 6001 {
		t.Errorf("Port = %d, want 6001", loaded.Server.Port)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("Theme = %q, want light", loaded.UI.Theme)
	}
	if loaded.Gateway.APIKey != "test-key" {
		t.Errorf("APIKey = %q", loaded.Gateway.APIKey)
	}
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\nport="), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := LoadFile(Default(), path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("PORT", "8123")
	t.Setenv("ELLI_RELAY_URL", "http://10.0.0.5:5001")
	t.Setenv("ELLI_THEME", "light")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Gateway.APIKey != "test-key" {
		t.Errorf("APIKey = %q", cfg.Gateway.APIKey)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Client.RelayURL != "http://10.0.0.5:5001" {
		t.Errorf("RelayURL = %q", cfg.Client.RelayURL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

func TestApplyEnvOverridesInvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.Port != 5001 {
		t.Errorf("Port = %d, want default 5001", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"port zero after defaults", func(c *Config) { c.Server.Port = -1 }, true},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, true},
		{"light theme ok", func(c *Config) { c.UI.Theme = "light" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetDefaultsFillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Server.Port != 5001 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Gateway.TextModel == "" {
		t.Error("TextModel should be defaulted")
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}
