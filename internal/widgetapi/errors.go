// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package widgetapi

import (
	"errors"
	"fmt"
	"net/http"

	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is wrapped by WidgetOperationError when the breaker rejects a call.
var ErrCircuitOpen = errors.New("widget api circuit breaker is open")

// WidgetOperationError describes a failed call to the widget API.
//
// Status is the HTTP status code, or 0 when no response was received.
// Message carries the server's error text when it sent one.
type WidgetOperationError struct {
	Op       string
	DeviceID string
	Status   int
	Message  string
	Err      error
}

func (e *WidgetOperationError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s for device %s failed with status %d: %s", e.Op, e.DeviceID, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s for device %s failed with status %d", e.Op, e.DeviceID, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s for device %s: %v", e.Op, e.DeviceID, e.Err)
	default:
		return fmt.Sprintf("%s for device %s failed", e.Op, e.DeviceID)
	}
}

func (e *WidgetOperationError) Unwrap() error {
	return e.Err
}

// Unauthorized reports a 401 from the server.
func (e *WidgetOperationError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// NotFound reports a 404 from the server.
func (e *WidgetOperationError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// statusError is returned inside the breaker for 5xx responses so they count
// as failures. It never leaves the package.
type statusError struct {
	raw *rawResponse
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server error: status %d", e.raw.status)
}

// rejected reports whether err came from the breaker refusing the call.
func rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
