// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package editor

import (
	"github.com/tomtom215/sensorboard/internal/models"
)

// PlacementScanRows bounds the row-major search for a free cell.
const PlacementScanRows = 100

// FindNextAvailablePosition returns the first top-left cell, scanning row by
// row from (0,0), where a widget of type t fits without overlapping any
// placed widget. If nothing fits within PlacementScanRows rows the widget
// goes below the lowest occupied row.
func FindNextAvailablePosition(widgets []models.Widget, t models.WidgetType) models.Position {
	size := models.DefaultSize(t)
	if size.Width > models.GridColumns {
		size.Width = models.GridColumns
	}

	placed := make([]models.Position, 0, len(widgets))
	for _, w := range widgets {
		if w.Position != nil {
			placed = append(placed, *w.Position)
		}
	}

	for y := 0; y < PlacementScanRows; y++ {
		for x := 0; x+size.Width <= models.GridColumns; x++ {
			candidate := models.Position{X: x, Y: y, Width: size.Width, Height: size.Height}
			if !overlapsAny(candidate, placed) {
				return candidate
			}
		}
	}

	bottom := 0
	for _, p := range placed {
		if b := p.Bottom(); b > bottom {
			bottom = b
		}
	}
	return models.Position{X: 0, Y: bottom, Width: size.Width, Height: size.Height}
}

func overlapsAny(candidate models.Position, placed []models.Position) bool {
	for _, p := range placed {
		if candidate.Overlaps(p) {
			return true
		}
	}
	return false
}
