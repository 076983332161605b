// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package models

// SnapshotVersion is written into every persisted editor snapshot.
const SnapshotVersion = "1.0"

// PendingChange is the unsaved diff for one widget.
type PendingChange struct {
	Changes WidgetPatch `json:"changes"`
	// IsNew marks widgets created locally and never saved.
	IsNew bool `json:"isNew,omitempty"`
}

// EditState is the editor's staging area: the current widget view plus the
// diff against the last state the server acknowledged.
type EditState struct {
	Widgets        []Widget                 `json:"widgets"`
	PendingChanges map[string]PendingChange `json:"pendingChanges"`
	// DeletedWidgets has set semantics; order is deletion order.
	DeletedWidgets []string `json:"deletedWidgets"`
}

// HasChanges reports whether there is anything to save.
func (s EditState) HasChanges() bool {
	return len(s.PendingChanges) > 0 || len(s.DeletedWidgets) > 0
}

// Clone returns a deep copy of the state.
func (s EditState) Clone() EditState {
	out := EditState{
		Widgets:        make([]Widget, len(s.Widgets)),
		PendingChanges: make(map[string]PendingChange, len(s.PendingChanges)),
		DeletedWidgets: make([]string, len(s.DeletedWidgets)),
	}
	for i := range s.Widgets {
		out.Widgets[i] = s.Widgets[i].Clone()
	}
	for id, pc := range s.PendingChanges {
		out.PendingChanges[id] = PendingChange{Changes: pc.Changes.Clone(), IsNew: pc.IsNew}
	}
	copy(out.DeletedWidgets, s.DeletedWidgets)
	return out
}

// PersistedWidgetState is the durable snapshot of an in-progress editing session.
type PersistedWidgetState struct {
	State EditState `json:"state"`
	// Timestamp is unix milliseconds at write time.
	Timestamp int64  `json:"timestamp"`
	DeviceID  string `json:"deviceId"`
	Version   string `json:"version"`
}
