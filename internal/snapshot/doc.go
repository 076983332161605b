// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

/*
Package snapshot persists in-progress dashboard edits so they survive a crash
or an accidental exit.

A snapshot is a models.PersistedWidgetState stored under
"dashboard_edit_{deviceId}" (or a caller-supplied key) in a BadgerDB-backed
Store:

	store, err := snapshot.OpenBadgerStore(cfg.Storage)
	mgr := snapshot.NewManager(store, deviceID, snapshot.Options{MaxAge: time.Hour})

	mgr.Save(state)                   // after a mutation
	state, ok := mgr.Recover(prompter) // at editor mount
	mgr.Clear()                       // after save or cancel

Load discards snapshots that are older than MaxAge, belong to another device,
carry an unknown version, or cannot be decoded, and wipes them from the store.
Entries are also written with a Badger TTL equal to MaxAge.

Storage errors never reach the caller. They are logged and counted in
snapshot_operations_total{result="error"}, and the editor carries on without
persistence.

Autosaver adds a periodic snapshot (robfig/cron "@every") for editors that
only persist on a timer.
*/
package snapshot
