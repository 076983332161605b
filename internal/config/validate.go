// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/sensorboard/internal/validation"
)

// ConfigError reports an invalid setting by its koanf path.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks struct tags first, then cross-field rules.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Realtime.ReconnectMaxDelay < c.Realtime.ReconnectBaseDelay {
		return &ConfigError{
			Field:   "realtime.reconnect_max_delay",
			Message: fmt.Sprintf("must be >= reconnect_base_delay (%s)", c.Realtime.ReconnectBaseDelay),
		}
	}

	if c.Editor.AutoSaveInterval > 0 && c.Editor.AutoSaveInterval >= c.Editor.SnapshotMaxAge {
		return &ConfigError{
			Field:   "editor.auto_save_interval",
			Message: "must be shorter than snapshot_max_age or snapshots expire before they are refreshed",
		}
	}

	for _, origin := range c.DevServer.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return &ConfigError{
				Field:   "devserver.cors_origins",
				Message: fmt.Sprintf("origin %q must be * or an http(s) origin", origin),
			}
		}
	}

	return nil
}
