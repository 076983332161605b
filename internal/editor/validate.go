// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package editor

import (
	"fmt"

	"github.com/tomtom215/sensorboard/internal/models"
	"github.com/tomtom215/sensorboard/internal/validation"
)

// Issue codes reported by Validate.
const (
	IssueDuplicateID     = "duplicate_id"
	IssueMissingType     = "missing_type"
	IssueUnknownType     = "unknown_type"
	IssueMissingPosition = "missing_position"
	IssueOverlap         = "overlap"
)

// Issue is one validation finding.
type Issue struct {
	Code     string `json:"code"`
	WidgetID string `json:"widgetId"`
	// OtherID names the second widget of an overlapping pair.
	OtherID string `json:"otherId,omitempty"`
	Message string `json:"message"`
}

// ValidationResult is advisory. Callers decide whether errors block a save.
type ValidationResult struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether there are no errors. Warnings do not count.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks s for duplicate IDs and missing types (errors) and for
// unplaced, unknown-type or overlapping widgets (warnings).
func Validate(s models.EditState) ValidationResult {
	res := ValidationResult{Errors: []Issue{}, Warnings: []Issue{}}

	seen := make(map[string]int, len(s.Widgets))
	for _, w := range s.Widgets {
		seen[w.ID]++
		if seen[w.ID] == 2 {
			res.Errors = append(res.Errors, Issue{
				Code:     IssueDuplicateID,
				WidgetID: w.ID,
				Message:  fmt.Sprintf("widget id %q is used more than once", w.ID),
			})
		}

		switch {
		case w.Definition.Type == "":
			res.Errors = append(res.Errors, Issue{
				Code:     IssueMissingType,
				WidgetID: w.ID,
				Message:  "widget has no definition.type",
			})
		default:
			if verr := validation.ValidateVar("definition.type", w.Definition.Type, "widget_type"); verr != nil {
				res.Warnings = append(res.Warnings, Issue{
					Code:     IssueUnknownType,
					WidgetID: w.ID,
					Message:  verr.Error(),
				})
			}
		}

		if w.Position == nil {
			res.Warnings = append(res.Warnings, Issue{
				Code:     IssueMissingPosition,
				WidgetID: w.ID,
				Message:  "widget has no position",
			})
		}
	}

	for i := 0; i < len(s.Widgets); i++ {
		a := s.Widgets[i]
		if a.Position == nil {
			continue
		}
		for j := i + 1; j < len(s.Widgets); j++ {
			b := s.Widgets[j]
			if b.Position == nil || !a.Position.Overlaps(*b.Position) {
				continue
			}
			res.Warnings = append(res.Warnings, Issue{
				Code:     IssueOverlap,
				WidgetID: a.ID,
				OtherID:  b.ID,
				Message:  fmt.Sprintf("widgets %q and %q overlap", a.ID, b.ID),
			})
		}
	}

	return res
}
