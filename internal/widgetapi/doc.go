// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

// Package widgetapi is the HTTP client for the batch widget REST API.
//
// Client.SaveBatch posts one models.BatchRequest per save and Client.ListWidgets
// loads a device's widgets for the editor. Failures surface as
// *WidgetOperationError carrying the HTTP status and server message, or the
// transport cause when no response arrived. Calls run behind a
// sony/gobreaker circuit breaker that only counts transport errors and 5xx
// responses; its state is exported as circuit_breaker_state{name}.
package widgetapi
