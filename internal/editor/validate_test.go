// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package editor

import (
	"testing"

	"github.com/tomtom215/sensorboard/internal/models"
)

func codes(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Code
	}
	return out
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		widgets      []models.Widget
		wantErrors   []string
		wantWarnings []string
	}{
		{
			name:    "clean",
			widgets: []models.Widget{placed("a", 0, 0, 2, 2), placed("b", 2, 0, 2, 2)},
		},
		{
			name:       "duplicate id reported once",
			widgets:    []models.Widget{placed("a", 0, 0, 2, 2), placed("a", 4, 0, 2, 2), placed("a", 8, 0, 2, 2)},
			wantErrors: []string{IssueDuplicateID},
		},
		{
			name:       "missing type",
			widgets:    []models.Widget{{ID: "a", Position: &models.Position{Width: 1, Height: 1}}},
			wantErrors: []string{IssueMissingType},
		},
		{
			name:         "unknown type",
			widgets:      []models.Widget{{ID: "a", Definition: models.WidgetDefinition{Type: "hologram"}, Position: &models.Position{Width: 1, Height: 1}}},
			wantWarnings: []string{IssueUnknownType},
		},
		{
			name:         "missing position",
			widgets:      []models.Widget{{ID: "a", Definition: models.WidgetDefinition{Type: models.WidgetTypeText}}},
			wantWarnings: []string{IssueMissingPosition},
		},
		{
			name:         "overlap",
			widgets:      []models.Widget{placed("a", 0, 0, 4, 4), placed("b", 3, 3, 2, 2), placed("c", 4, 0, 2, 2)},
			wantWarnings: []string{IssueOverlap},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := Validate(NewState(tt.widgets))
			if got := codes(res.Errors); !equalStrings(got, tt.wantErrors) {
				t.Errorf("errors = %v, want %v", got, tt.wantErrors)
			}
			if got := codes(res.Warnings); !equalStrings(got, tt.wantWarnings) {
				t.Errorf("warnings = %v, want %v", got, tt.wantWarnings)
			}
			if res.Valid() != (len(tt.wantErrors) == 0) {
				t.Errorf("Valid() = %v", res.Valid())
			}
		})
	}
}

func TestValidate_OverlapNamesBothWidgets(t *testing.T) {
	t.Parallel()

	res := Validate(NewState([]models.Widget{placed("a", 0, 0, 4, 4), placed("b", 3, 3, 2, 2)}))
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %+v", res.Warnings)
	}
	if w := res.Warnings[0]; w.WidgetID != "a" || w.OtherID != "b" {
		t.Errorf("overlap issue = %+v", w)
	}
}

func TestValidate_UnknownTypeMessage(t *testing.T) {
	t.Parallel()

	res := Validate(NewState([]models.Widget{{ID: "a", Definition: models.WidgetDefinition{Type: "hologram"}, Position: &models.Position{Width: 1, Height: 1}}}))
	if len(res.Warnings) != 1 || res.Warnings[0].Message != "definition.type must be a known widget type" {
		t.Errorf("warnings = %+v", res.Warnings)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
