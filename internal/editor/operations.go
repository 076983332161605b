// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package editor

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorboard/internal/models"
)

// CopySuffix is appended to the name of a duplicated widget.
const CopySuffix = " (Copy)"

// Operation is one edit applied by Apply. The set of operations is closed.
type Operation interface {
	opName() string
}

// AddWidget appends a widget. Widget.ID must be set; a nil Position is
// computed with FindNextAvailablePosition.
type AddWidget struct {
	Widget models.Widget
}

// UpdateWidget merges Changes into the widget with ID.
type UpdateWidget struct {
	ID      string
	Changes models.WidgetPatch
}

// MoveWidget is UpdateWidget with only a position.
type MoveWidget struct {
	ID       string
	Position models.Position
}

// DeleteWidget removes the widget with ID.
type DeleteWidget struct {
	ID string
}

// DuplicateWidget copies Source (or the widget named by SourceID when Source
// is nil) under NewID.
type DuplicateWidget struct {
	SourceID string
	Source   *models.Widget
	NewID    string
}

func (AddWidget) opName() string       { return "add" }
func (UpdateWidget) opName() string    { return "update" }
func (MoveWidget) opName() string      { return "move" }
func (DeleteWidget) opName() string    { return "delete" }
func (DuplicateWidget) opName() string { return "duplicate" }

// NewAddWidget returns an AddWidget, assigning a temporary ID when w has none.
func NewAddWidget(w models.Widget, now time.Time) AddWidget {
	w = w.Clone()
	if w.ID == "" {
		w.ID = models.NewTemporaryID(now)
	}
	return AddWidget{Widget: w}
}

// NewDuplicateWidget returns a DuplicateWidget of source with a fresh temporary ID.
func NewDuplicateWidget(source models.Widget, now time.Time) DuplicateWidget {
	src := source.Clone()
	return DuplicateWidget{SourceID: src.ID, Source: &src, NewID: models.NewTemporaryID(now)}
}

// ===================================================================================================
// Wire form
// ===================================================================================================

// ErrUnknownOperation is returned when decoding an unrecognised "op" value.
var ErrUnknownOperation = errors.New("unknown operation")

type operationJSON struct {
	Op       string              `json:"op"`
	ID       string              `json:"id,omitempty"`
	SourceID string              `json:"sourceId,omitempty"`
	Widget   *models.Widget      `json:"widget,omitempty"`
	Changes  *models.WidgetPatch `json:"changes,omitempty"`
	Position *models.Position    `json:"position,omitempty"`
}

// EncodeOperations serializes ops as a JSON array for later replay.
func EncodeOperations(ops []Operation) ([]byte, error) {
	out := make([]operationJSON, 0, len(ops))
	for i, op := range ops {
		enc := operationJSON{Op: op.opName()}
		switch o := op.(type) {
		case AddWidget:
			w := o.Widget.Clone()
			enc.Widget = &w
		case UpdateWidget:
			enc.ID = o.ID
			changes := o.Changes.Clone()
			enc.Changes = &changes
		case MoveWidget:
			enc.ID = o.ID
			pos := o.Position
			enc.Position = &pos
		case DeleteWidget:
			enc.ID = o.ID
		case DuplicateWidget:
			enc.ID = o.NewID
			enc.SourceID = o.SourceID
			if o.Source != nil && o.SourceID == "" {
				return nil, fmt.Errorf("operation %d: duplicate without source id cannot be encoded", i)
			}
		}
		out = append(out, enc)
	}
	return json.Marshal(out)
}

// DecodeOperations parses a JSON array of operations. Adds and duplicates
// without an ID get a temporary ID derived from now, so the returned slice
// replays deterministically.
func DecodeOperations(data []byte, now time.Time) ([]Operation, error) {
	var raw []operationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode operations: %w", err)
	}

	ops := make([]Operation, 0, len(raw))
	for i, r := range raw {
		op, err := r.operation(now)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (r operationJSON) operation(now time.Time) (Operation, error) {
	switch r.Op {
	case "add":
		if r.Widget == nil {
			return nil, errors.New("add requires widget")
		}
		return NewAddWidget(*r.Widget, now), nil
	case "update":
		if r.ID == "" || r.Changes == nil {
			return nil, errors.New("update requires id and changes")
		}
		return UpdateWidget{ID: r.ID, Changes: *r.Changes}, nil
	case "move":
		if r.ID == "" || r.Position == nil {
			return nil, errors.New("move requires id and position")
		}
		return MoveWidget{ID: r.ID, Position: *r.Position}, nil
	case "delete":
		if r.ID == "" {
			return nil, errors.New("delete requires id")
		}
		return DeleteWidget{ID: r.ID}, nil
	case "duplicate":
		if r.SourceID == "" {
			return nil, errors.New("duplicate requires sourceId")
		}
		newID := r.ID
		if newID == "" {
			newID = models.NewTemporaryID(now)
		}
		return DuplicateWidget{SourceID: r.SourceID, NewID: newID}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownOperation, r.Op)
	}
}
