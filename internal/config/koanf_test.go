// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Realtime.MaxReconnectAttempts != 5 {
		t.Errorf("Realtime.MaxReconnectAttempts = %d, want 5", cfg.Realtime.MaxReconnectAttempts)
	}
	if cfg.Realtime.ReconnectBaseDelay != time.Second {
		t.Errorf("Realtime.ReconnectBaseDelay = %v, want 1s", cfg.Realtime.ReconnectBaseDelay)
	}
	if cfg.Realtime.ReconnectMaxDelay != 30*time.Second {
		t.Errorf("Realtime.ReconnectMaxDelay = %v, want 30s", cfg.Realtime.ReconnectMaxDelay)
	}
	if !cfg.Editor.AutoSave {
		t.Error("Editor.AutoSave should be true by default")
	}
	if cfg.Editor.SnapshotMaxAge != time.Hour {
		t.Errorf("Editor.SnapshotMaxAge = %v, want 1h", cfg.Editor.SnapshotMaxAge)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFile_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sensorboard.yaml")
	yaml := `
realtime:
  url: wss://iot.example.com/api/ws
  max_reconnect_attempts: 3
  ping_interval: 0s
api:
  base_url: https://iot.example.com
  token: secret-token
editor:
  auto_save: false
  snapshot_max_age: 2h
storage:
  in_memory: true
  path: ""
identity:
  user_id: user-1
  organization_id: org-1
devserver:
  cors_origins:
    - https://app.example.com
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Realtime.URL != "wss://iot.example.com/api/ws" {
		t.Errorf("Realtime.URL = %q", cfg.Realtime.URL)
	}
	if cfg.Realtime.MaxReconnectAttempts != 3 {
		t.Errorf("MaxReconnectAttempts = %d, want 3", cfg.Realtime.MaxReconnectAttempts)
	}
	if cfg.Realtime.PingInterval != 0 {
		t.Errorf("PingInterval = %v, want 0", cfg.Realtime.PingInterval)
	}
	if cfg.Realtime.ReconnectMaxDelay != 30*time.Second {
		t.Errorf("unset field should keep default, got %v", cfg.Realtime.ReconnectMaxDelay)
	}
	if cfg.API.Token != "secret-token" {
		t.Errorf("API.Token = %q", cfg.API.Token)
	}
	if cfg.Editor.AutoSave {
		t.Error("Editor.AutoSave should be false")
	}
	if cfg.Editor.SnapshotMaxAge != 2*time.Hour {
		t.Errorf("SnapshotMaxAge = %v, want 2h", cfg.Editor.SnapshotMaxAge)
	}
	if !cfg.Storage.InMemory {
		t.Error("Storage.InMemory should be true")
	}
	if cfg.Identity.UserID != "user-1" || cfg.Identity.OrganizationID != "org-1" {
		t.Errorf("Identity = %+v", cfg.Identity)
	}
	if len(cfg.DevServer.CORSOrigins) != 1 || cfg.DevServer.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.DevServer.CORSOrigins)
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("identity:\n  user_id: from-file\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SENSORBOARD_USER_ID", "from-env")
	t.Setenv("SENSORBOARD_RECONNECT_MAX_DELAY", "45s")
	t.Setenv("SENSORBOARD_SEED_DEVICES", "dev-1, dev-2,,dev-3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Identity.UserID != "from-env" {
		t.Errorf("UserID = %q, want from-env", cfg.Identity.UserID)
	}
	if cfg.Realtime.ReconnectMaxDelay != 45*time.Second {
		t.Errorf("ReconnectMaxDelay = %v, want 45s", cfg.Realtime.ReconnectMaxDelay)
	}
	if got := strings.Join(cfg.DevServer.SeedDevices, "|"); got != "dev-1|dev-2|dev-3" {
		t.Errorf("SeedDevices = %q", got)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadWithKoanf_ConfigPathEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("identity:\n  organization_id: org-from-path\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Identity.OrganizationID != "org-from-path" {
		t.Errorf("OrganizationID = %q", cfg.Identity.OrganizationID)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"SENSORBOARD_REALTIME_URL": "realtime.url",
		"sensorboard_api_token":    "api.token",
		"LOG_FORMAT":               "logging.format",
		"PATH":                     "",
		"HOME":                     "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:      "realtime url scheme",
			mutate:    func(c *Config) { c.Realtime.URL = "ftp://example.com" },
			wantField: "Realtime.URL",
		},
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Logging.Level = "loud" },
			wantField: "Logging.Level",
		},
		{
			name:      "storage path required on disk",
			mutate:    func(c *Config) { c.Storage.Path = "" },
			wantField: "Storage.Path",
		},
		{
			name: "storage path optional in memory",
			mutate: func(c *Config) {
				c.Storage.Path = ""
				c.Storage.InMemory = true
			},
		},
		{
			name:      "short jwt secret",
			mutate:    func(c *Config) { c.DevServer.JWTSecret = "short" },
			wantField: "DevServer.JWTSecret",
		},
		{
			name:      "max delay below base",
			mutate:    func(c *Config) { c.Realtime.ReconnectMaxDelay = 500 * time.Millisecond },
			wantField: "realtime.reconnect_max_delay",
		},
		{
			name:      "autosave interval exceeds max age",
			mutate:    func(c *Config) { c.Editor.AutoSaveInterval = 2 * time.Hour },
			wantField: "editor.auto_save_interval",
		},
		{
			name:   "autosave interval disabled",
			mutate: func(c *Config) { c.Editor.AutoSaveInterval = 0 },
		},
		{
			name:      "bad cors origin",
			mutate:    func(c *Config) { c.DevServer.CORSOrigins = []string{"example.com"} },
			wantField: "devserver.cors_origins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error for %s", tt.wantField)
			}
			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) {
				if cfgErr.Field != tt.wantField {
					t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, tt.wantField)
				}
				return
			}
			if !strings.Contains(err.Error(), strings.Split(tt.wantField, ".")[1]) {
				t.Errorf("error %q does not mention %s", err, tt.wantField)
			}
		})
	}
}
