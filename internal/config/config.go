// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Realtime  RealtimeConfig  `koanf:"realtime"`
	API       APIConfig       `koanf:"api"`
	Editor    EditorConfig    `koanf:"editor"`
	Storage   StorageConfig   `koanf:"storage"`
	Identity  IdentityConfig  `koanf:"identity"`
	DevServer DevServerConfig `koanf:"devserver"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// RealtimeConfig configures the WebSocket session to the device-data server.
type RealtimeConfig struct {
	// URL is the server base (http/https) or full WebSocket endpoint (ws/wss).
	// An http(s) base is rewritten to ws(s)://host/api/ws.
	URL string `koanf:"url" validate:"required,ws_url"`

	// MaxReconnectAttempts bounds automatic reconnects after an unexpected close.
	// Default: 5
	MaxReconnectAttempts int `koanf:"max_reconnect_attempts" validate:"min=0,max=100"`

	// ReconnectBaseDelay is the first backoff step; each attempt doubles it.
	// Default: 1s
	ReconnectBaseDelay time.Duration `koanf:"reconnect_base_delay" validate:"gt=0"`

	// ReconnectMaxDelay caps the backoff.
	// Default: 30s
	ReconnectMaxDelay time.Duration `koanf:"reconnect_max_delay" validate:"gt=0"`

	HandshakeTimeout time.Duration `koanf:"handshake_timeout" validate:"gt=0"`
	WriteTimeout     time.Duration `koanf:"write_timeout" validate:"gt=0"`

	// PingInterval sends PING keepalives on an open session. 0 disables.
	// Default: 30s
	PingInterval time.Duration `koanf:"ping_interval" validate:"min=0"`
}

// APIConfig configures the batch widget REST client.
type APIConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// Circuit breaker settings (gobreaker).
	BreakerMaxRequests      uint32        `koanf:"breaker_max_requests" validate:"min=1"`
	BreakerInterval         time.Duration `koanf:"breaker_interval" validate:"min=0"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold" validate:"min=1"`
}

// EditorConfig configures the widget edit engine and its snapshots.
type EditorConfig struct {
	// AutoSave persists a snapshot after every mutation.
	// Default: true
	AutoSave bool `koanf:"auto_save"`

	// AutoSaveInterval runs a periodic snapshot of a dirty editor. 0 disables.
	// Default: 30s
	AutoSaveInterval time.Duration `koanf:"auto_save_interval" validate:"min=0"`

	// SnapshotMaxAge discards recovered snapshots older than this.
	// Default: 1h
	SnapshotMaxAge time.Duration `koanf:"snapshot_max_age" validate:"gt=0"`

	// StorageKey overrides the per-device snapshot key (dashboard_edit_{deviceId}).
	StorageKey string `koanf:"storage_key"`
}

// StorageConfig configures the snapshot store.
type StorageConfig struct {
	// Path is the badger directory. Ignored when InMemory is true.
	Path       string `koanf:"path" validate:"required_if=InMemory false"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// IdentityConfig carries the caller identity used for subscriptions and cache warm-up.
type IdentityConfig struct {
	UserID         string `koanf:"user_id"`
	OrganizationID string `koanf:"organization_id"`
}

// DevServerConfig configures the local contract server (sensorboard devserver).
type DevServerConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`

	// JWTSecret enables bearer-token auth on the REST routes when set.
	JWTSecret string `koanf:"jwt_secret" validate:"omitempty,min=32"`

	CORSOrigins []string `koanf:"cors_origins"`

	// HTTPRateLimit is requests per minute per client IP on REST routes. 0 disables.
	HTTPRateLimit int `koanf:"http_rate_limit" validate:"min=0"`

	// MessageRateLimit is inbound WebSocket messages per second per connection.
	MessageRateLimit float64 `koanf:"message_rate_limit" validate:"gt=0"`
	MessageBurst     int     `koanf:"message_burst" validate:"min=1"`

	// WarmCache makes CONNECTION_ESTABLISHED report cacheReady=true.
	WarmCache bool `koanf:"warm_cache"`

	// SeedDevices pre-registers device IDs so batch calls do not 404.
	SeedDevices []string `koanf:"seed_devices"`
}

// LoggingConfig holds logging configuration (see internal/logging).
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format" validate:"oneof=json console"`

	Caller bool `koanf:"caller"`
}
