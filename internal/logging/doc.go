// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

// Package logging provides centralized zerolog-based logging for Sensorboard.
//
// JSON output is the default; console output is available for interactive use
// (the CLI switches to it when attached to a terminal).
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("device_id", id).Msg("Session mounted")
//	logging.Warn().Err(err).Msg("Snapshot write failed")
//
//	log := logging.Component("realtime")
//	log.Debug().Int("attempt", n).Msg("Reconnect scheduled")
//
// # Configuration
//
// Environment Variables (read through internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false (default: false)
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event is never emitted.
//
// # slog Interop
//
// SlogHandler adapts zerolog to log/slog for libraries that only accept a *slog.Logger
// (sutureslog in internal/supervisor).
package logging
