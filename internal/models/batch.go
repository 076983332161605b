// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package models

import (
	"github.com/goccy/go-json"
)

// Batch operation names as reported by the Batch Widget API.
const (
	OperationCreate = "CREATE"
	OperationUpdate = "UPDATE"
	OperationDelete = "DELETE"
)

// WidgetUpdate is one entry of the batch "update" array: an ID plus the changed fields.
type WidgetUpdate struct {
	ID string `json:"id" validate:"required"`
	WidgetPatch
}

// MarshalJSON flattens the patch fields next to the ID.
func (u WidgetUpdate) MarshalJSON() ([]byte, error) {
	type flat struct {
		ID         string            `json:"id"`
		DeviceID   *string           `json:"deviceId,omitempty"`
		Name       *string           `json:"name,omitempty"`
		Definition *WidgetDefinition `json:"definition,omitempty"`
		Position   *Position         `json:"position,omitempty"`
		Settings   map[string]any    `json:"settings,omitempty"`
	}
	return json.Marshal(flat{
		ID:         u.ID,
		DeviceID:   u.DeviceID,
		Name:       u.Name,
		Definition: u.Definition,
		Position:   u.Position,
		Settings:   u.Settings,
	})
}

// UnmarshalJSON reads the flattened form written by MarshalJSON.
func (u *WidgetUpdate) UnmarshalJSON(data []byte) error {
	var flat struct {
		ID         string            `json:"id"`
		DeviceID   *string           `json:"deviceId"`
		Name       *string           `json:"name"`
		Definition *WidgetDefinition `json:"definition"`
		Position   *Position         `json:"position"`
		Settings   map[string]any    `json:"settings"`
	}
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	u.ID = flat.ID
	u.WidgetPatch = WidgetPatch{
		DeviceID:   flat.DeviceID,
		Name:       flat.Name,
		Definition: flat.Definition,
		Position:   flat.Position,
		Settings:   flat.Settings,
	}
	return nil
}

// BatchRequest is the body of POST /api/devices/{deviceId}/widgets/batch.
// All three arrays are always present on the wire.
type BatchRequest struct {
	Create []Widget       `json:"create" validate:"dive"`
	Update []WidgetUpdate `json:"update" validate:"dive"`
	Delete []string       `json:"delete" validate:"dive,required"`
}

// Normalize replaces nil slices with empty ones so they encode as [].
func (r BatchRequest) Normalize() BatchRequest {
	if r.Create == nil {
		r.Create = []Widget{}
	}
	if r.Update == nil {
		r.Update = []WidgetUpdate{}
	}
	if r.Delete == nil {
		r.Delete = []string{}
	}
	return r
}

// IsEmpty reports whether the request carries no operations.
func (r BatchRequest) IsEmpty() bool {
	return len(r.Create) == 0 && len(r.Update) == 0 && len(r.Delete) == 0
}

// OperationError is a per-item failure inside a batch response.
type OperationError struct {
	Operation string `json:"operation"`
	Error     string `json:"error"`
	ID        string `json:"id,omitempty"`
}

// CreatedWidget maps a client temporary ID to the ID the server issued.
type CreatedWidget struct {
	TempID string `json:"tempId,omitempty"`
	ID     string `json:"id"`
}

// BatchResponse is the body returned by the batch endpoint for 200, 207 and 400.
type BatchResponse struct {
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Errors     []OperationError `json:"errors"`
	Created    []CreatedWidget  `json:"created"`
	Updated    []string         `json:"updated"`
	Deleted    []string         `json:"deleted"`
}

// IDMapping returns temporary ID → server ID for every created widget that reported one.
func (r *BatchResponse) IDMapping() map[string]string {
	out := make(map[string]string, len(r.Created))
	for _, c := range r.Created {
		if c.TempID != "" && c.ID != "" {
			out[c.TempID] = c.ID
		}
	}
	return out
}
