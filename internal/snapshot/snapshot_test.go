// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package snapshot

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/sensorboard/internal/config"
	"github.com/tomtom215/sensorboard/internal/metrics"
	"github.com/tomtom215/sensorboard/internal/models"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadgerStore(config.StorageConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadgerStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func dirtyState() models.EditState {
	name := "Boiler"
	return models.EditState{
		Widgets: []models.Widget{{ID: "w1", Name: name, Definition: models.WidgetDefinition{Type: models.WidgetTypeGauge}}},
		PendingChanges: map[string]models.PendingChange{
			"w1": {Changes: models.WidgetPatch{Name: &name}},
		},
		DeletedWidgets: []string{"w2"},
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

// brokenStore fails every operation.
type brokenStore struct{}

var errBroken = errors.New("disk quota exceeded")

func (brokenStore) Get(string) ([]byte, error)              { return nil, errBroken }
func (brokenStore) Put(string, []byte, time.Duration) error { return errBroken }
func (brokenStore) Delete(string) error                     { return errBroken }
func (brokenStore) Close() error                            { return nil }

type recordingPrompter struct {
	answer bool
	asked  int
}

func (p *recordingPrompter) ConfirmRecovery(models.PersistedWidgetState) bool {
	p.asked++
	return p.answer
}

func (p *recordingPrompter) ConfirmDiscard() bool { return p.answer }

func TestKey(t *testing.T) {
	t.Parallel()

	if got := Key("dev-1", ""); got != "dashboard_edit_dev-1" {
		t.Errorf("Key() = %q", got)
	}
	if got := Key("dev-1", "custom"); got != "custom" {
		t.Errorf("Key() with override = %q", got)
	}
}

func TestBadgerStore_CRUD(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := store.Put("k", []byte("v"), 0); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := store.Get("k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get() = %q, %v", got, err)
	}
	if err := store.Delete("k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete error = %v", err)
	}
	if err := store.Delete("never-existed"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestBadgerStore_TTL(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	if err := store.Put("short", []byte("v"), time.Second); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := store.Get("short"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired key error = %v, want ErrNotFound", err)
	}
}

func TestBadgerStore_ClosedAndDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := OpenBadgerStore(config.StorageConfig{Path: dir, SyncWrites: true})
	if err != nil {
		t.Fatalf("OpenBadgerStore() error = %v", err)
	}
	if err := store.Put("k", []byte("persisted"), 0); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := store.Get("k"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Get after close error = %v, want ErrStoreClosed", err)
	}

	reopened, err := OpenBadgerStore(config.StorageConfig{Path: dir})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get("k")
	if err != nil || string(got) != "persisted" {
		t.Errorf("Get after reopen = %q, %v", got, err)
	}
}

func TestOpenBadgerStore_RequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := OpenBadgerStore(config.StorageConfig{}); err == nil {
		t.Error("expected error without path")
	}
}

func TestManager_SaveLoadClear(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	m := NewManager(openTestStore(t), "dev-1", Options{Clock: clock.now})

	if _, ok := m.Load(); ok {
		t.Fatal("Load() on empty store should report false")
	}

	state := dirtyState()
	if !m.Save(state) {
		t.Fatal("Save() reported failure")
	}

	snap, ok := m.Load()
	if !ok {
		t.Fatal("Load() after Save should succeed")
	}
	if snap.DeviceID != "dev-1" || snap.Version != "1.0" || snap.Timestamp != clock.t.UnixMilli() {
		t.Errorf("snapshot metadata = %+v", snap)
	}
	if len(snap.State.PendingChanges) != 1 || snap.State.DeletedWidgets[0] != "w2" {
		t.Errorf("snapshot state = %+v", snap.State)
	}

	m.Clear()
	if _, ok := m.Load(); ok {
		t.Error("Load() after Clear should report false")
	}
}

func TestManager_ExpiredSnapshotIsWipedAndNeverOffered(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	m := NewManager(store, "dev-1", Options{Clock: clock.now, MaxAge: time.Hour})
	m.Save(dirtyState())

	clock.t = clock.t.Add(time.Hour + time.Millisecond)

	p := &recordingPrompter{answer: true}
	if _, ok := m.Recover(p); ok {
		t.Error("expired snapshot must not be recovered")
	}
	if p.asked != 0 {
		t.Error("expired snapshot must not be offered")
	}
	if _, err := store.Get(m.Key()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired snapshot still in store: %v", err)
	}
}

func TestManager_SnapshotAtExactlyMaxAgeIsKept(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	m := NewManager(openTestStore(t), "dev-1", Options{Clock: clock.now, MaxAge: time.Hour})
	m.Save(dirtyState())
	clock.t = clock.t.Add(time.Hour)

	if _, ok := m.Load(); !ok {
		t.Error("snapshot exactly MaxAge old should still load")
	}
}

func TestManager_DiscardsInvalidSnapshots(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data func(now time.Time) []byte
	}{
		{
			name: "corrupted json",
			data: func(time.Time) []byte { return []byte("{not json") },
		},
		{
			name: "other device",
			data: func(now time.Time) []byte {
				b, _ := json.Marshal(models.PersistedWidgetState{
					State: dirtyState(), Timestamp: now.UnixMilli(), DeviceID: "dev-2", Version: "1.0",
				})
				return b
			},
		},
		{
			name: "unknown version",
			data: func(now time.Time) []byte {
				b, _ := json.Marshal(models.PersistedWidgetState{
					State: dirtyState(), Timestamp: now.UnixMilli(), DeviceID: "dev-1", Version: "0.9",
				})
				return b
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := openTestStore(t)
			now := time.UnixMilli(1_700_000_000_000)
			m := NewManager(store, "dev-1", Options{Clock: func() time.Time { return now }})
			if err := store.Put(m.Key(), tt.data(now), 0); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			if _, ok := m.Load(); ok {
				t.Error("Load() should reject the snapshot")
			}
			if _, err := store.Get(m.Key()); !errors.Is(err, ErrNotFound) {
				t.Errorf("rejected snapshot still stored: %v", err)
			}
		})
	}
}

func TestManager_BrokenStoreDegrades(t *testing.T) {
	errorsBefore := testutil.ToFloat64(metrics.SnapshotOperations.WithLabelValues("save", "error"))

	m := NewManager(brokenStore{}, "dev-1", Options{})
	if m.Save(dirtyState()) {
		t.Error("Save() should report false on a broken store")
	}
	if _, ok := m.Load(); ok {
		t.Error("Load() should report false on a broken store")
	}
	m.Clear()
	if _, ok := m.Recover(AutoPrompter{Recover: true}); ok {
		t.Error("Recover() should report false on a broken store")
	}

	if got := testutil.ToFloat64(metrics.SnapshotOperations.WithLabelValues("save", "error")) - errorsBefore; got != 1 {
		t.Errorf("save error metric delta = %v, want 1", got)
	}
}

func TestManager_Recover(t *testing.T) {
	t.Parallel()

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()
		m := NewManager(openTestStore(t), "dev-1", Options{})
		m.Save(dirtyState())

		p := &recordingPrompter{answer: true}
		state, ok := m.Recover(p)
		if !ok || p.asked != 1 {
			t.Fatalf("Recover() = %v, asked %d", ok, p.asked)
		}
		if len(state.PendingChanges) != 1 || len(state.DeletedWidgets) != 1 {
			t.Errorf("recovered state = %+v", state)
		}
	})

	t.Run("declined wipes", func(t *testing.T) {
		t.Parallel()
		m := NewManager(openTestStore(t), "dev-1", Options{})
		m.Save(dirtyState())

		if _, ok := m.Recover(AutoPrompter{Recover: false}); ok {
			t.Error("declined recovery reported true")
		}
		if _, ok := m.Load(); ok {
			t.Error("declined snapshot should be wiped")
		}
	})

	t.Run("clean snapshot not offered", func(t *testing.T) {
		t.Parallel()
		m := NewManager(openTestStore(t), "dev-1", Options{})
		m.Save(models.EditState{Widgets: dirtyState().Widgets})

		p := &recordingPrompter{answer: true}
		if _, ok := m.Recover(p); ok || p.asked != 0 {
			t.Errorf("clean snapshot offered: ok=%v asked=%d", ok, p.asked)
		}
	})

	t.Run("nil prompter keeps snapshot", func(t *testing.T) {
		t.Parallel()
		m := NewManager(openTestStore(t), "dev-1", Options{})
		m.Save(dirtyState())

		if _, ok := m.Recover(nil); ok {
			t.Error("nil prompter recovered")
		}
		if _, ok := m.Load(); !ok {
			t.Error("nil prompter should leave the snapshot in place")
		}
	})
}

func TestAutosaver(t *testing.T) {
	t.Parallel()

	m := NewManager(openTestStore(t), "dev-1", Options{})

	var dirty atomic.Bool
	a, err := NewAutosaver(m, time.Second, func(write func(models.EditState) bool) bool {
		if !dirty.Load() {
			return false
		}
		return write(dirtyState())
	})
	if err != nil {
		t.Fatalf("NewAutosaver() error = %v", err)
	}

	if a.RunOnce() {
		t.Error("clean editor should not be saved")
	}
	if _, ok := m.Load(); ok {
		t.Error("nothing should be stored yet")
	}

	dirty.Store(true)
	if !a.RunOnce() {
		t.Error("dirty editor should be saved")
	}
	if _, ok := m.Load(); !ok {
		t.Error("snapshot should be stored")
	}

	m.Clear()
	a.Start()
	a.Start()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.Load(); ok {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	a.Stop()
	a.Stop()
	if _, ok := m.Load(); !ok {
		t.Error("scheduled autosave never ran")
	}
}

func TestNewAutosaver_RejectsBadInput(t *testing.T) {
	t.Parallel()

	m := NewManager(openTestStore(t), "dev-1", Options{})
	src := func(func(models.EditState) bool) bool { return false }

	if _, err := NewAutosaver(m, 0, src); err == nil {
		t.Error("zero interval should be rejected")
	}
	if _, err := NewAutosaver(nil, time.Second, src); err == nil {
		t.Error("nil manager should be rejected")
	}
	if _, err := NewAutosaver(m, time.Second, nil); err == nil {
		t.Error("nil source should be rejected")
	}
}
