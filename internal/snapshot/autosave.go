// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package snapshot

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/sensorboard/internal/models"
)

// SourceFunc passes its state to write when it has unsaved work and
// reports whether write ran. write must be called while the state is
// still locked, so a concurrent commit cannot land between the dirty
// check and the snapshot.
type SourceFunc func(write func(models.EditState) bool) bool

// Autosaver snapshots a dirty editor on a fixed interval.
type Autosaver struct {
	manager  *Manager
	source   SourceFunc
	interval time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewAutosaver returns a stopped Autosaver. cron's @every schedule has
// one-second resolution, so shorter intervals run once a second.
func NewAutosaver(m *Manager, interval time.Duration, source SourceFunc) (*Autosaver, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("autosave interval must be positive, got %s", interval)
	}
	if m == nil || source == nil {
		return nil, fmt.Errorf("autosave requires a manager and a source")
	}

	a := &Autosaver{
		manager:  m,
		source:   source,
		interval: interval,
		cron:     cron.New(),
	}
	if _, err := a.cron.AddFunc("@every "+interval.String(), func() { a.RunOnce() }); err != nil {
		return nil, fmt.Errorf("schedule autosave: %w", err)
	}
	return a, nil
}

// Start begins periodic snapshots. Calling Start twice has no effect.
func (a *Autosaver) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return
	}
	a.running = true
	a.cron.Start()
	a.manager.log.Debug().Dur("interval", a.interval).Msg("Periodic autosave started")
}

// Stop halts the schedule and waits for a running snapshot to finish.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	ctx := a.cron.Stop()
	a.mu.Unlock()

	<-ctx.Done()
	a.manager.log.Debug().Msg("Periodic autosave stopped")
}

// RunOnce snapshots the source if it is dirty and reports whether it wrote.
func (a *Autosaver) RunOnce() bool {
	return a.source(a.manager.Save)
}
