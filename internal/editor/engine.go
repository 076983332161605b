// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/metrics"
	"github.com/tomtom215/sensorboard/internal/models"
	"github.com/tomtom215/sensorboard/internal/snapshot"
	"github.com/tomtom215/sensorboard/internal/validation"
)

var (
	// ErrSaveInProgress is returned when SaveChanges is called during another save.
	ErrSaveInProgress = errors.New("save already in progress")

	// ErrEngineClosed is returned by SaveChanges after Close.
	ErrEngineClosed = errors.New("editor closed")
)

// BatchClient submits a batch of widget changes for one device.
type BatchClient interface {
	SaveBatch(ctx context.Context, deviceID string, req models.BatchRequest) (*models.BatchResponse, error)
}

// BatchFailedError reports per-item failures from a batch response. The
// errors are the server's, unmodified.
type BatchFailedError struct {
	Successful int
	Failed     int
	Errors     []models.OperationError
}

func (e *BatchFailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "batch save failed: %d of %d operations failed", e.Failed, e.Successful+e.Failed)
	for _, oe := range e.Errors {
		b.WriteString("; ")
		b.WriteString(oe.Operation)
		if oe.ID != "" {
			b.WriteString(" ")
			b.WriteString(oe.ID)
		}
		b.WriteString(": ")
		b.WriteString(oe.Error)
	}
	return b.String()
}

// Options configures an Engine.
type Options struct {
	// Client performs saves. Required for SaveChanges.
	Client BatchClient

	// Snapshots enables persistence and recovery. Nil disables both.
	Snapshots *snapshot.Manager

	// AutoSave persists a snapshot after every mutation.
	AutoSave bool

	// AutoSaveInterval persists a dirty state periodically. 0 disables.
	AutoSaveInterval time.Duration

	// Prompter answers the recovery prompt at mount. Nil skips recovery.
	Prompter snapshot.Prompter

	// Clock generates temporary IDs. Defaults to time.Now.
	Clock func() time.Time

	// OnChange receives a copy of the state after every change.
	OnChange func(models.EditState)
}

// Engine is the staging area for one mounted dashboard editor.
// All methods are safe for concurrent use; SaveChanges holds the engine
// for the duration of the request, so edits wait for it to finish.
type Engine struct {
	deviceID  string
	client    BatchClient
	snapshots *snapshot.Manager
	autoSave  bool
	autosaver *snapshot.Autosaver
	now       func() time.Time
	onChange  func(models.EditState)
	log       zerolog.Logger

	saveMu sync.Mutex

	mu        sync.Mutex
	state     models.EditState
	baseline  []models.Widget
	recovered bool
	closed    bool
}

// Mount creates the editor for deviceID over the widgets fetched from the
// server. If a recoverable snapshot exists and the prompter accepts it,
// the engine starts from the snapshot instead; Recovered reports which.
func Mount(deviceID string, widgets []models.Widget, opts Options) (*Engine, error) {
	if deviceID == "" {
		return nil, errors.New("editor: device id is required")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	e := &Engine{
		deviceID:  deviceID,
		client:    opts.Client,
		snapshots: opts.Snapshots,
		autoSave:  opts.AutoSave,
		now:       opts.Clock,
		onChange:  opts.OnChange,
		log:       logging.Component("editor").With().Str("device_id", deviceID).Logger(),
		state:     NewState(widgets),
		baseline:  NewState(widgets).Widgets,
	}

	if e.snapshots != nil {
		if state, ok := e.snapshots.Recover(opts.Prompter); ok {
			e.state = state
			e.recovered = true
		}

		if opts.AutoSaveInterval > 0 {
			a, err := snapshot.NewAutosaver(e.snapshots, opts.AutoSaveInterval, e.snapshotIfDirty)
			if err != nil {
				return nil, fmt.Errorf("editor autosave: %w", err)
			}
			e.autosaver = a
			a.Start()
		}
	}

	e.log.Debug().
		Int("widgets", len(e.state.Widgets)).
		Bool("recovered", e.recovered).
		Msg("Editor mounted")
	return e, nil
}

// DeviceID returns the device being edited.
func (e *Engine) DeviceID() string {
	return e.deviceID
}

// Recovered reports whether the engine started from a persisted snapshot.
func (e *Engine) Recovered() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recovered
}

// State returns a deep copy of the current editing state.
func (e *Engine) State() models.EditState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Widgets returns a copy of the current widget list.
func (e *Engine) Widgets() []models.Widget {
	return e.State().Widgets
}

// CanDiscard reports whether there is no unsaved work.
func (e *Engine) CanDiscard() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CanDiscard(e.state)
}

// Validate runs the advisory checks over the current state.
func (e *Engine) Validate() ValidationResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Validate(e.state)
}

// BatchRequest returns the request SaveChanges would send now.
func (e *Engine) BatchRequest() models.BatchRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return BuildBatchRequest(e.state)
}

// snapshotIfDirty hands a dirty state to write without releasing e.mu, so
// a save or cancel cannot clear the snapshot between the check and the write.
func (e *Engine) snapshotIfDirty(write func(models.EditState) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || CanDiscard(e.state) {
		return false
	}
	return write(e.state.Clone())
}

// Apply applies op to the current state.
func (e *Engine) Apply(op Operation) {
	e.mu.Lock()
	e.state = Apply(e.state, op)
	st := e.afterMutationLocked()
	e.mu.Unlock()

	e.notify(st)
}

// Add stages a new widget and returns it with its assigned ID and position.
func (e *Engine) Add(w models.Widget) models.Widget {
	op := NewAddWidget(w, e.now())
	e.Apply(op)
	return e.widgetOrZero(op.Widget.ID)
}

// Update merges changes into the widget with id. It reports false when
// the widget does not exist.
func (e *Engine) Update(id string, changes models.WidgetPatch) bool {
	if !e.has(id) {
		return false
	}
	e.Apply(UpdateWidget{ID: id, Changes: changes})
	return true
}

// Move sets the position of the widget with id.
func (e *Engine) Move(id string, pos models.Position) bool {
	if !e.has(id) {
		return false
	}
	e.Apply(MoveWidget{ID: id, Position: pos})
	return true
}

// Delete removes the widget with id. It reports false when the widget
// does not exist.
func (e *Engine) Delete(id string) bool {
	if !e.has(id) {
		return false
	}
	e.Apply(DeleteWidget{ID: id})
	return true
}

// Duplicate stages a copy of source and returns it.
func (e *Engine) Duplicate(source models.Widget) models.Widget {
	op := NewDuplicateWidget(source, e.now())
	e.Apply(op)
	return e.widgetOrZero(op.NewID)
}

func (e *Engine) has(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return indexOf(e.state.Widgets, id) >= 0
}

func (e *Engine) widgetOrZero(id string) models.Widget {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := indexOf(e.state.Widgets, id); i >= 0 {
		return e.state.Widgets[i].Clone()
	}
	return models.Widget{}
}

// afterMutationLocked persists the state when autosave is on and returns
// the copy to hand to the change listener. A state with nothing unsaved
// clears the snapshot instead.
func (e *Engine) afterMutationLocked() models.EditState {
	st := e.state.Clone()
	if e.autoSave && e.snapshots != nil {
		if CanDiscard(st) {
			e.snapshots.Clear()
		} else {
			e.snapshots.Save(st)
		}
	}
	return st
}

func (e *Engine) notify(st models.EditState) {
	if e.onChange != nil {
		e.onChange(st)
	}
}

// SaveChanges sends the pending diff as one batch request.
//
// With nothing to save it returns an empty response without a request.
// When the response reports no failures, the diff and the snapshot are
// cleared, temporary IDs are replaced with the server's IDs, and the
// result becomes the new baseline. When it reports failures, the response
// is returned together with a *BatchFailedError and local state is left
// as it was, so calling SaveChanges again resends the same request.
// Errors from the client itself are returned unchanged.
//
// ctx bounds the request. Edits wait while a save is running; a second
// concurrent SaveChanges fails with ErrSaveInProgress.
func (e *Engine) SaveChanges(ctx context.Context) (*models.BatchResponse, error) {
	if !e.saveMu.TryLock() {
		return nil, ErrSaveInProgress
	}
	defer e.saveMu.Unlock()

	e.mu.Lock()
	resp, saved, err := e.saveLocked(ctx)
	var st models.EditState
	if saved {
		st = e.state.Clone()
	}
	e.mu.Unlock()

	if saved {
		e.notify(st)
	}
	return resp, err
}

// saveLocked performs the save and reports whether local state was committed.
func (e *Engine) saveLocked(ctx context.Context) (*models.BatchResponse, bool, error) {
	if e.closed {
		return nil, false, ErrEngineClosed
	}
	if e.client == nil {
		return nil, false, errors.New("editor: no batch client configured")
	}

	req := BuildBatchRequest(e.state)
	if req.IsEmpty() {
		return &models.BatchResponse{
			Errors:  []models.OperationError{},
			Created: []models.CreatedWidget{},
			Updated: []string{},
			Deleted: []string{},
		}, false, nil
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		return nil, false, fmt.Errorf("editor: invalid batch request: %w", verr)
	}

	start := time.Now()
	resp, err := e.client.SaveBatch(ctx, e.deviceID, req)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordBatchRequest("error", duration)
		e.log.Error().Err(err).Msg("Widget batch save failed")
		return nil, false, err
	}

	if resp.Failed > 0 || len(resp.Errors) > 0 {
		result := "failed"
		if resp.Successful > 0 {
			result = "partial"
		}
		metrics.RecordBatchRequest(result, duration)
		for _, oe := range resp.Errors {
			metrics.WidgetBatchOperationFailures.WithLabelValues(oe.Operation).Inc()
		}
		e.log.Warn().
			Int("successful", resp.Successful).
			Int("failed", resp.Failed).
			Msg("Widget batch save reported failures")
		return resp, false, &BatchFailedError{
			Successful: resp.Successful,
			Failed:     resp.Failed,
			Errors:     append([]models.OperationError(nil), resp.Errors...),
		}
	}

	metrics.RecordBatchRequest("success", duration)
	e.commitLocked(resp.IDMapping())
	e.log.Info().
		Int("created", len(req.Create)).
		Int("updated", len(req.Update)).
		Int("deleted", len(req.Delete)).
		Msg("Widget changes saved")
	return resp, true, nil
}

// commitLocked adopts the current widgets as the saved baseline.
func (e *Engine) commitLocked(idMap map[string]string) {
	for i := range e.state.Widgets {
		if serverID, ok := idMap[e.state.Widgets[i].ID]; ok {
			e.state.Widgets[i].ID = serverID
		}
	}
	e.state.PendingChanges = map[string]models.PendingChange{}
	e.state.DeletedWidgets = []string{}
	e.baseline = e.state.Clone().Widgets
	e.recovered = false
	if e.snapshots != nil {
		e.snapshots.Clear()
	}
}

// CancelChanges restores the baseline and discards the diff and snapshot.
func (e *Engine) CancelChanges() {
	e.mu.Lock()
	e.state = NewState(e.baseline)
	e.recovered = false
	if e.snapshots != nil {
		e.snapshots.Clear()
	}
	st := e.state.Clone()
	e.mu.Unlock()

	e.log.Debug().Msg("Widget changes cancelled")
	e.notify(st)
}

// ConfirmLeave reports whether the editor may be left: always when clean,
// otherwise only if p confirms discarding.
func (e *Engine) ConfirmLeave(p snapshot.Prompter) bool {
	if e.CanDiscard() {
		return true
	}
	if p == nil {
		return false
	}
	return p.ConfirmDiscard()
}

// Close stops periodic autosave. The snapshot is left in place so the
// session can be recovered later. Close is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	a := e.autosaver
	e.mu.Unlock()

	if a != nil {
		a.Stop()
	}
	e.log.Debug().Msg("Editor closed")
}
