// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package devserver

import (
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/tomtom215/sensorboard/internal/models"
	"github.com/tomtom215/sensorboard/internal/validation"
)

const errWidgetNotFound = "widget not found"

// deviceWidgets keeps one device's widgets in creation order.
type deviceWidgets struct {
	order   []string
	widgets map[string]models.Widget
}

// WidgetStore is the in-memory widget table behind the REST routes.
type WidgetStore struct {
	mu      sync.RWMutex
	devices map[string]*deviceWidgets
	newID   func() string
}

// NewWidgetStore creates a store with the given devices registered.
func NewWidgetStore(deviceIDs ...string) *WidgetStore {
	s := &WidgetStore{
		devices: make(map[string]*deviceWidgets),
		newID:   func() string { return uuid.NewString() },
	}
	for _, id := range deviceIDs {
		s.RegisterDevice(id)
	}
	return s
}

// RegisterDevice makes deviceID known. Existing widgets are kept.
func (s *WidgetStore) RegisterDevice(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[deviceID]; !ok {
		s.devices[deviceID] = &deviceWidgets{widgets: make(map[string]models.Widget)}
	}
}

// List returns the device's widgets in creation order, or false for an
// unknown device.
func (s *WidgetStore) List(deviceID string) ([]models.Widget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return nil, false
	}
	out := make([]models.Widget, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.widgets[id])
	}
	return out, true
}

// Put stores w as-is under deviceID, registering the device if needed.
func (s *WidgetStore) Put(deviceID string, w models.Widget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		d = &deviceWidgets{widgets: make(map[string]models.Widget)}
		s.devices[deviceID] = d
	}
	if _, exists := d.widgets[w.ID]; !exists {
		d.order = append(d.order, w.ID)
	}
	w.DeviceID = deviceID
	d.widgets[w.ID] = w
}

// Stats summarizes the store for cache messages.
func (s *WidgetStore) Stats() models.CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	widgets := 0
	for _, d := range s.devices {
		widgets += len(d.widgets)
	}
	return models.CacheStats{"devices": len(s.devices), "widgets": widgets}
}

// ApplyBatch applies req item by item and reports the HTTP status the batch
// endpoint answers with: 200 when nothing failed, 400 when nothing
// succeeded, 207 otherwise. ok is false for an unknown device.
//
// Creates get fresh server IDs; the client's ID comes back as TempID.
func (s *WidgetStore) ApplyBatch(deviceID string, req models.BatchRequest) (resp models.BatchResponse, status int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[deviceID]
	if !ok {
		return models.BatchResponse{}, http.StatusNotFound, false
	}

	resp = models.BatchResponse{
		Errors:  []models.OperationError{},
		Created: []models.CreatedWidget{},
		Updated: []string{},
		Deleted: []string{},
	}
	fail := func(op, id, msg string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, models.OperationError{Operation: op, ID: id, Error: msg})
	}

	for _, w := range req.Create {
		if verr := validation.ValidateVar("definition.type", w.Definition.Type, "widget_type"); verr != nil {
			fail(models.OperationCreate, w.ID, verr.Error())
			continue
		}
		tempID := w.ID
		w.ID = s.newID()
		w.DeviceID = deviceID
		d.widgets[w.ID] = w
		d.order = append(d.order, w.ID)
		resp.Successful++
		resp.Created = append(resp.Created, models.CreatedWidget{TempID: tempID, ID: w.ID})
	}

	for _, u := range req.Update {
		existing, found := d.widgets[u.ID]
		if !found {
			fail(models.OperationUpdate, u.ID, errWidgetNotFound)
			continue
		}
		if u.Definition != nil {
			if verr := validation.ValidateVar("definition.type", u.Definition.Type, "widget_type"); verr != nil {
				fail(models.OperationUpdate, u.ID, verr.Error())
				continue
			}
		}
		updated := u.WidgetPatch.ApplyTo(existing)
		updated.ID = existing.ID
		updated.DeviceID = deviceID
		d.widgets[u.ID] = updated
		resp.Successful++
		resp.Updated = append(resp.Updated, u.ID)
	}

	for _, id := range req.Delete {
		if _, found := d.widgets[id]; !found {
			fail(models.OperationDelete, id, errWidgetNotFound)
			continue
		}
		delete(d.widgets, id)
		for i, oid := range d.order {
			if oid == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
		resp.Successful++
		resp.Deleted = append(resp.Deleted, id)
	}

	switch {
	case resp.Failed == 0:
		status = http.StatusOK
	case resp.Successful == 0:
		status = http.StatusBadRequest
	default:
		status = http.StatusMultiStatus
	}
	return resp, status, true
}
