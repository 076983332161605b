// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"sensorboard.yaml",
	"config.yaml",
	"config.yml",
	"/etc/sensorboard/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Realtime: RealtimeConfig{
			URL:                  "http://localhost:8080",
			MaxReconnectAttempts: 5,
			ReconnectBaseDelay:   time.Second,
			ReconnectMaxDelay:    30 * time.Second,
			HandshakeTimeout:     10 * time.Second,
			WriteTimeout:         10 * time.Second,
			PingInterval:         30 * time.Second,
		},
		API: APIConfig{
			BaseURL:                 "http://localhost:8080",
			Timeout:                 30 * time.Second,
			BreakerMaxRequests:      3,
			BreakerInterval:         time.Minute,
			BreakerTimeout:          30 * time.Second,
			BreakerFailureThreshold: 5,
		},
		Editor: EditorConfig{
			AutoSave:         true,
			AutoSaveInterval: 30 * time.Second,
			SnapshotMaxAge:   time.Hour,
		},
		Storage: StorageConfig{
			Path:     "/data/sensorboard/snapshots",
			InMemory: false,
		},
		DevServer: DevServerConfig{
			Addr:             "127.0.0.1:8080",
			CORSOrigins:      []string{"*"},
			HTTPRateLimit:    600,
			MessageRateLimit: 20,
			MessageBurst:     40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in defaults without reading files or the environment.
func Default() *Config {
	return defaultConfig()
}

// LoadWithKoanf loads configuration in three layers, later layers winning:
//  1. built-in defaults
//  2. optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. mapped environment variables
func LoadWithKoanf() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is LoadWithKoanf with an explicit config file path. An empty path
// skips the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// SENSORBOARD_REALTIME_URL -> realtime.url, LOG_LEVEL -> logging.level
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"devserver.cors_origins",
	"devserver.seed_devices",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"sensorboard_realtime_url":         "realtime.url",
	"sensorboard_max_reconnect":        "realtime.max_reconnect_attempts",
	"sensorboard_reconnect_base_delay": "realtime.reconnect_base_delay",
	"sensorboard_reconnect_max_delay":  "realtime.reconnect_max_delay",
	"sensorboard_handshake_timeout":    "realtime.handshake_timeout",
	"sensorboard_write_timeout":        "realtime.write_timeout",
	"sensorboard_ping_interval":        "realtime.ping_interval",
	"sensorboard_api_url":              "api.base_url",
	"sensorboard_api_token":            "api.token",
	"sensorboard_api_timeout":          "api.timeout",
	"sensorboard_breaker_max_requests": "api.breaker_max_requests",
	"sensorboard_breaker_interval":     "api.breaker_interval",
	"sensorboard_breaker_timeout":      "api.breaker_timeout",
	"sensorboard_breaker_failures":     "api.breaker_failure_threshold",
	"sensorboard_auto_save":            "editor.auto_save",
	"sensorboard_auto_save_interval":   "editor.auto_save_interval",
	"sensorboard_snapshot_max_age":     "editor.snapshot_max_age",
	"sensorboard_storage_key":          "editor.storage_key",
	"sensorboard_storage_path":         "storage.path",
	"sensorboard_storage_in_memory":    "storage.in_memory",
	"sensorboard_storage_sync_writes":  "storage.sync_writes",
	"sensorboard_user_id":              "identity.user_id",
	"sensorboard_organization_id":      "identity.organization_id",
	"sensorboard_devserver_addr":       "devserver.addr",
	"sensorboard_jwt_secret":           "devserver.jwt_secret",
	"sensorboard_cors_origins":         "devserver.cors_origins",
	"sensorboard_http_rate_limit":      "devserver.http_rate_limit",
	"sensorboard_message_rate_limit":   "devserver.message_rate_limit",
	"sensorboard_message_burst":        "devserver.message_burst",
	"sensorboard_warm_cache":           "devserver.warm_cache",
	"sensorboard_seed_devices":         "devserver.seed_devices",
	"log_level":                        "logging.level",
	"log_format":                       "logging.format",
	"log_caller":                       "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
