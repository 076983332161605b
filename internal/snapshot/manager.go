// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package snapshot

import (
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/metrics"
	"github.com/tomtom215/sensorboard/internal/models"
)

// KeyPrefix is prepended to the device ID to form the default storage key.
const KeyPrefix = "dashboard_edit_"

// DefaultMaxAge is how long a snapshot stays eligible for recovery.
const DefaultMaxAge = time.Hour

// Key returns the storage key for deviceID, or override when it is set.
func Key(deviceID, override string) string {
	if override != "" {
		return override
	}
	return KeyPrefix + deviceID
}

// Options configures a Manager.
type Options struct {
	// KeyOverride replaces the per-device key.
	KeyOverride string
	// MaxAge defaults to DefaultMaxAge.
	MaxAge time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Manager persists and recovers the editing session of one device.
//
// Every storage or codec failure is logged and swallowed: a broken store
// degrades the editor to running without persistence.
type Manager struct {
	store    Store
	deviceID string
	key      string
	maxAge   time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewManager returns a Manager for deviceID backed by store.
func NewManager(store Store, deviceID string, opts Options) *Manager {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	key := Key(deviceID, opts.KeyOverride)
	return &Manager{
		store:    store,
		deviceID: deviceID,
		key:      key,
		maxAge:   opts.MaxAge,
		now:      opts.Clock,
		log: logging.Component("snapshot").With().
			Str("device_id", deviceID).
			Str("key", key).
			Logger(),
	}
}

// Key returns the storage key in use.
func (m *Manager) Key() string {
	return m.key
}

// MaxAge returns the recovery window.
func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// Save writes state with the current timestamp. It reports whether the
// snapshot reached the store.
func (m *Manager) Save(state models.EditState) bool {
	snap := models.PersistedWidgetState{
		State:     state,
		Timestamp: m.now().UnixMilli(),
		DeviceID:  m.deviceID,
		Version:   models.SnapshotVersion,
	}

	data, err := json.Marshal(snap)
	if err != nil {
		metrics.RecordSnapshotOperation("save", err)
		m.log.Error().Err(err).Msg("Failed to encode editor snapshot")
		return false
	}

	// The TTL is a backstop; Load enforces MaxAge against the timestamp.
	err = m.store.Put(m.key, data, m.maxAge)
	metrics.RecordSnapshotOperation("save", err)
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to write editor snapshot")
		return false
	}
	m.log.Debug().
		Int("pending", len(state.PendingChanges)).
		Int("deleted", len(state.DeletedWidgets)).
		Msg("Editor snapshot saved")
	return true
}

// Load returns the stored snapshot if it is readable, belongs to this
// device, has the current version and is younger than MaxAge. Snapshots
// failing any of those checks are wiped.
func (m *Manager) Load() (models.PersistedWidgetState, bool) {
	var snap models.PersistedWidgetState

	data, err := m.store.Get(m.key)
	if errors.Is(err, ErrNotFound) {
		metrics.RecordSnapshotOperation("load", nil)
		return snap, false
	}
	metrics.RecordSnapshotOperation("load", err)
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to read editor snapshot")
		return snap, false
	}

	if err := json.Unmarshal(data, &snap); err != nil {
		m.log.Warn().Err(err).Msg("Discarding corrupted editor snapshot")
		m.Clear()
		return models.PersistedWidgetState{}, false
	}

	switch {
	case snap.DeviceID != m.deviceID:
		m.log.Warn().Str("stored_device_id", snap.DeviceID).Msg("Discarding editor snapshot for another device")
	case snap.Version != models.SnapshotVersion:
		m.log.Warn().Str("version", snap.Version).Msg("Discarding editor snapshot with unsupported version")
	case m.now().Sub(time.UnixMilli(snap.Timestamp)) > m.maxAge:
		m.log.Info().
			Time("written_at", time.UnixMilli(snap.Timestamp)).
			Dur("max_age", m.maxAge).
			Msg("Discarding expired editor snapshot")
	default:
		if snap.State.PendingChanges == nil {
			snap.State.PendingChanges = map[string]models.PendingChange{}
		}
		if snap.State.DeletedWidgets == nil {
			snap.State.DeletedWidgets = []string{}
		}
		return snap, true
	}

	m.Clear()
	return models.PersistedWidgetState{}, false
}

// Clear removes the stored snapshot.
func (m *Manager) Clear() {
	err := m.store.Delete(m.key)
	metrics.RecordSnapshotOperation("clear", err)
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to clear editor snapshot")
	}
}

// Recover offers a usable snapshot that carries unsaved work to p. It
// returns the snapshot's state when p accepts; a declined snapshot is
// wiped. Snapshots without unsaved work are wiped without asking. A nil
// Prompter skips recovery and leaves storage untouched.
func (m *Manager) Recover(p Prompter) (models.EditState, bool) {
	if p == nil {
		return models.EditState{}, false
	}

	snap, ok := m.Load()
	if !ok {
		return models.EditState{}, false
	}
	if !snap.State.HasChanges() {
		m.Clear()
		return models.EditState{}, false
	}

	if !p.ConfirmRecovery(snap) {
		m.log.Info().Msg("Editor snapshot recovery declined")
		m.Clear()
		return models.EditState{}, false
	}

	m.log.Info().
		Int("pending", len(snap.State.PendingChanges)).
		Int("deleted", len(snap.State.DeletedWidgets)).
		Msg("Recovered editor snapshot")
	return snap.State, true
}
