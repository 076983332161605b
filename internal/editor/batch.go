// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package editor

import (
	"sort"

	"github.com/tomtom215/sensorboard/internal/models"
)

// BuildBatchRequest converts the pending diff into one batch request.
//
// New entries become creates and the rest become updates, both in Widgets
// order; entries for IDs not in Widgets follow, sorted by ID. Deletes keep
// deletion order. The same state always yields the same request.
func BuildBatchRequest(s models.EditState) models.BatchRequest {
	req := models.BatchRequest{}.Normalize()

	order := make([]string, 0, len(s.PendingChanges))
	listed := make(map[string]bool, len(s.Widgets))
	for _, w := range s.Widgets {
		if _, ok := s.PendingChanges[w.ID]; ok && !listed[w.ID] {
			order = append(order, w.ID)
			listed[w.ID] = true
		}
	}
	var rest []string
	for id := range s.PendingChanges {
		if !listed[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	for _, id := range order {
		pc := s.PendingChanges[id]
		if pc.IsNew {
			req.Create = append(req.Create, pc.Changes.ApplyTo(models.Widget{ID: id}))
			continue
		}
		req.Update = append(req.Update, models.WidgetUpdate{ID: id, WidgetPatch: pc.Changes.Clone()})
	}

	req.Delete = append(req.Delete, s.DeletedWidgets...)
	return req
}
