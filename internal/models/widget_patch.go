// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package models

// WidgetPatch is a partial widget. Nil fields are "not changed".
type WidgetPatch struct {
	DeviceID   *string           `json:"deviceId,omitempty"`
	Name       *string           `json:"name,omitempty"`
	Definition *WidgetDefinition `json:"definition,omitempty"`
	Position   *Position         `json:"position,omitempty"`
	Settings   map[string]any    `json:"settings,omitempty"`
}

// PatchFromWidget captures every field of w as a patch.
func PatchFromWidget(w Widget) WidgetPatch {
	w = w.Clone()
	def := w.Definition
	patch := WidgetPatch{
		Definition: &def,
		Position:   w.Position,
		Settings:   w.Settings,
	}
	if w.DeviceID != "" {
		patch.DeviceID = &w.DeviceID
	}
	if w.Name != "" {
		patch.Name = &w.Name
	}
	return patch
}

// IsEmpty reports whether the patch changes nothing.
func (p WidgetPatch) IsEmpty() bool {
	return p.DeviceID == nil && p.Name == nil && p.Definition == nil &&
		p.Position == nil && len(p.Settings) == 0
}

// Clone returns a deep copy of the patch.
func (p WidgetPatch) Clone() WidgetPatch {
	out := WidgetPatch{Settings: CloneSettings(p.Settings)}
	if p.DeviceID != nil {
		v := *p.DeviceID
		out.DeviceID = &v
	}
	if p.Name != nil {
		v := *p.Name
		out.Name = &v
	}
	if p.Definition != nil {
		v := *p.Definition
		out.Definition = &v
	}
	if p.Position != nil {
		v := *p.Position
		out.Position = &v
	}
	return out
}

// Merge returns p with other layered on top. Settings are deep-merged.
func (p WidgetPatch) Merge(other WidgetPatch) WidgetPatch {
	out := p.Clone()
	other = other.Clone()
	if other.DeviceID != nil {
		out.DeviceID = other.DeviceID
	}
	if other.Name != nil {
		out.Name = other.Name
	}
	if other.Definition != nil {
		out.Definition = other.Definition
	}
	if other.Position != nil {
		out.Position = other.Position
	}
	if other.Settings != nil {
		out.Settings = MergeSettings(out.Settings, other.Settings)
	}
	return out
}

// ApplyTo returns a copy of w with the patch applied. Settings, when
// present, replace the widget's settings as a whole.
func (p WidgetPatch) ApplyTo(w Widget) Widget {
	out := w.Clone()
	p = p.Clone()
	if p.DeviceID != nil {
		out.DeviceID = *p.DeviceID
	}
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Definition != nil {
		out.Definition = *p.Definition
	}
	if p.Position != nil {
		out.Position = p.Position
	}
	if p.Settings != nil {
		out.Settings = p.Settings
	}
	return out
}
