// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

// Package validation wraps go-playground/validator v10 behind a process-wide
// singleton with Sensorboard-specific tags.
//
// It is used for configuration checks (internal/config), for the structural
// pre-flight of batch requests before they leave the editor (internal/editor),
// and for server-side checks in the development server (internal/devserver).
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    return fmt.Errorf("invalid batch request: %w", err)
//	}
//
//	if err := validation.ValidateVar("definition.type", w.Definition.Type, "required,widget_type"); err != nil {
//	    // report per-item failure
//	}
//
// Custom tags:
//   - widget_type: the value names a known models.WidgetType
//   - ws_url: absolute URL with http, https, ws or wss scheme
package validation
