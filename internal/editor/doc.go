// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

/*
Package editor stages dashboard widget edits locally and commits them to the
server as a single batch.

# Pure core

Every edit is an Operation (AddWidget, UpdateWidget, MoveWidget,
DeleteWidget, DuplicateWidget) and Apply(state, op) returns the next state
without touching its input:

	s := editor.NewState(serverWidgets)
	s = editor.Apply(s, editor.NewAddWidget(w, time.Now()))
	req := editor.BuildBatchRequest(s)

The diff lives in EditState.PendingChanges (keyed by widget ID, with IsNew
for widgets the server has never seen) and EditState.DeletedWidgets. A
widget that is created and deleted before a save leaves no trace in either.

Widgets added without a position are placed by FindNextAvailablePosition on
the 12-column grid. Validate reports duplicate IDs and missing types as
errors and unplaced, unknown-type or overlapping widgets as warnings; it
never blocks an edit.

Operations have a JSON form ({"op":"add",...}) read by DecodeOperations for
scripted edits.

# Engine

Engine wraps the pure core for one mounted editor: it recovers a persisted
snapshot at Mount, writes snapshots after mutations or on a timer, and
SaveChanges sends exactly one request through a BatchClient. A response
with failures yields a *BatchFailedError and leaves the diff intact, so a
retry sends the same bytes.
*/
package editor
