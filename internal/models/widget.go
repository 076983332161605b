// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GridColumns is the fixed width of the dashboard grid.
const GridColumns = 12

// TemporaryIDPrefix marks client-generated widget IDs that the server has not seen yet.
const TemporaryIDPrefix = "widget-"

// WidgetType identifies the renderer for a widget. The set is closed.
type WidgetType string

const (
	WidgetTypeSwitch    WidgetType = "switch"
	WidgetTypeSlider    WidgetType = "slider"
	WidgetTypeGauge     WidgetType = "gauge"
	WidgetTypeChart     WidgetType = "chart"
	WidgetTypeValue     WidgetType = "value"
	WidgetTypeIndicator WidgetType = "indicator"
	WidgetTypeButton    WidgetType = "button"
	WidgetTypeMap       WidgetType = "map"
	WidgetTypeText      WidgetType = "text"
	WidgetTypeTerminal  WidgetType = "terminal"
)

// Size is a width/height pair in grid units.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GenericWidgetSize is used for widget types without a declared default.
var GenericWidgetSize = Size{Width: 3, Height: 2}

var defaultWidgetSizes = map[WidgetType]Size{
	WidgetTypeSwitch:    {Width: 2, Height: 2},
	WidgetTypeSlider:    {Width: 4, Height: 2},
	WidgetTypeGauge:     {Width: 3, Height: 3},
	WidgetTypeChart:     {Width: 6, Height: 4},
	WidgetTypeValue:     {Width: 2, Height: 2},
	WidgetTypeIndicator: {Width: 2, Height: 2},
	WidgetTypeButton:    {Width: 2, Height: 1},
	WidgetTypeMap:       {Width: 6, Height: 5},
	WidgetTypeText:      {Width: 4, Height: 2},
	WidgetTypeTerminal:  {Width: 6, Height: 4},
}

// WidgetTypes returns every known widget type in declaration order.
func WidgetTypes() []WidgetType {
	return []WidgetType{
		WidgetTypeSwitch, WidgetTypeSlider, WidgetTypeGauge, WidgetTypeChart, WidgetTypeValue,
		WidgetTypeIndicator, WidgetTypeButton, WidgetTypeMap, WidgetTypeText, WidgetTypeTerminal,
	}
}

// Valid reports whether t is one of the known widget types.
func (t WidgetType) Valid() bool {
	_, ok := defaultWidgetSizes[t]
	return ok
}

// DefaultSize returns the declared default size for a widget type,
// falling back to GenericWidgetSize.
func DefaultSize(t WidgetType) Size {
	if size, ok := defaultWidgetSizes[t]; ok {
		return size
	}
	return GenericWidgetSize
}

// Position places a widget on the grid. X and Y address the top-left cell.
type Position struct {
	X      int `json:"x" validate:"min=0"`
	Y      int `json:"y" validate:"min=0"`
	Width  int `json:"width" validate:"min=1"`
	Height int `json:"height" validate:"min=1"`
}

// Overlaps reports whether two rectangles share at least one cell.
// Both x-ranges and y-ranges must intersect; touching edges do not overlap.
func (p Position) Overlaps(o Position) bool {
	return p.X < o.X+o.Width && o.X < p.X+p.Width &&
		p.Y < o.Y+o.Height && o.Y < p.Y+p.Height
}

// Bottom returns the first row below the rectangle.
func (p Position) Bottom() int {
	return p.Y + p.Height
}

// WidgetDefinition describes what kind of widget this is.
type WidgetDefinition struct {
	Type WidgetType `json:"type"`
}

// Widget is a placed UI element on a device dashboard.
type Widget struct {
	ID         string           `json:"id" validate:"required"`
	DeviceID   string           `json:"deviceId,omitempty"`
	Name       string           `json:"name,omitempty"`
	Definition WidgetDefinition `json:"definition"`
	Position   *Position        `json:"position,omitempty"`
	Settings   map[string]any   `json:"settings,omitempty"`
}

// Clone returns a deep copy of the widget.
func (w Widget) Clone() Widget {
	out := w
	if w.Position != nil {
		pos := *w.Position
		out.Position = &pos
	}
	out.Settings = CloneSettings(w.Settings)
	return out
}

// NewTemporaryID returns a client-side widget ID. The timestamp keeps IDs roughly
// ordered by creation; the random suffix keeps IDs created in the same millisecond apart.
func NewTemporaryID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s%d-%s", TemporaryIDPrefix, now.UnixMilli(), suffix)
}

// IsTemporaryID reports whether id was generated on the client.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TemporaryIDPrefix)
}

// CloneSettings deep-copies a settings map, including nested maps and slices.
func CloneSettings(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneSettings(val)
	case []any:
		cp := make([]any, len(val))
		for i := range val {
			cp[i] = cloneValue(val[i])
		}
		return cp
	default:
		return v
	}
}

// MergeSettings deep-merges src into a copy of dst. Nested maps are merged key by key;
// any other value in src replaces the value in dst.
func MergeSettings(dst, src map[string]any) map[string]any {
	if dst == nil && src == nil {
		return nil
	}
	out := CloneSettings(dst)
	if out == nil {
		out = make(map[string]any, len(src))
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := out[k].(map[string]any)
		if srcIsMap && dstIsMap {
			out[k] = MergeSettings(dstMap, srcMap)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}
