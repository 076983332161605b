// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package editor

import (
	"slices"

	"github.com/tomtom215/sensorboard/internal/models"
)

// NewState returns a clean editing state over the server's widgets.
func NewState(widgets []models.Widget) models.EditState {
	s := models.EditState{
		Widgets:        make([]models.Widget, len(widgets)),
		PendingChanges: map[string]models.PendingChange{},
		DeletedWidgets: []string{},
	}
	for i := range widgets {
		s.Widgets[i] = widgets[i].Clone()
	}
	return s
}

// Apply returns the state that results from applying op to s. The input is
// never modified. Operations that reference unknown widgets, and adds
// without an ID, return an unchanged copy.
func Apply(s models.EditState, op Operation) models.EditState {
	next := s.Clone()
	switch o := op.(type) {
	case AddWidget:
		applyAdd(&next, o.Widget.Clone())
	case UpdateWidget:
		applyUpdate(&next, o.ID, o.Changes.Clone())
	case MoveWidget:
		pos := o.Position
		applyUpdate(&next, o.ID, models.WidgetPatch{Position: &pos})
	case DeleteWidget:
		applyDelete(&next, o.ID)
	case DuplicateWidget:
		applyDuplicate(&next, o)
	}
	return next
}

// ApplyAll folds ops over s in order.
func ApplyAll(s models.EditState, ops ...Operation) models.EditState {
	for _, op := range ops {
		s = Apply(s, op)
	}
	return s
}

// CanDiscard reports whether s holds no unsaved work.
func CanDiscard(s models.EditState) bool {
	return len(s.PendingChanges) == 0 && len(s.DeletedWidgets) == 0
}

func indexOf(widgets []models.Widget, id string) int {
	return slices.IndexFunc(widgets, func(w models.Widget) bool { return w.ID == id })
}

func applyAdd(s *models.EditState, w models.Widget) {
	if w.ID == "" {
		return
	}
	if w.Position == nil {
		pos := FindNextAvailablePosition(s.Widgets, w.Definition.Type)
		w.Position = &pos
	}
	s.Widgets = append(s.Widgets, w)
	s.PendingChanges[w.ID] = models.PendingChange{
		Changes: models.PatchFromWidget(w),
		IsNew:   true,
	}
}

func applyUpdate(s *models.EditState, id string, changes models.WidgetPatch) {
	i := indexOf(s.Widgets, id)
	if i < 0 || changes.IsEmpty() {
		return
	}
	s.Widgets[i] = changes.ApplyTo(s.Widgets[i])

	pc, ok := s.PendingChanges[id]
	if ok {
		pc.Changes = pc.Changes.Merge(changes)
	} else {
		pc = models.PendingChange{Changes: changes}
	}
	s.PendingChanges[id] = pc
}

func applyDelete(s *models.EditState, id string) {
	i := indexOf(s.Widgets, id)
	if i < 0 {
		return
	}
	s.Widgets = slices.Delete(s.Widgets, i, i+1)

	pc, pending := s.PendingChanges[id]
	delete(s.PendingChanges, id)
	if pending && pc.IsNew {
		return
	}
	if !slices.Contains(s.DeletedWidgets, id) {
		s.DeletedWidgets = append(s.DeletedWidgets, id)
	}
}

func applyDuplicate(s *models.EditState, o DuplicateWidget) {
	if o.NewID == "" {
		return
	}
	var src models.Widget
	switch {
	case o.Source != nil:
		src = o.Source.Clone()
	default:
		i := indexOf(s.Widgets, o.SourceID)
		if i < 0 {
			return
		}
		src = s.Widgets[i].Clone()
	}

	dup := src
	dup.ID = o.NewID
	dup.Name = src.Name + CopySuffix
	if src.Position != nil {
		pos := offsetPosition(*src.Position)
		dup.Position = &pos
	}
	applyAdd(s, dup)
}

// offsetPosition shifts p one column right and one row down, keeping it
// inside the grid.
func offsetPosition(p models.Position) models.Position {
	p.Y++
	p.X++
	if p.X+p.Width > models.GridColumns {
		p.X = models.GridColumns - p.Width
	}
	if p.X < 0 {
		p.X = 0
	}
	return p
}
