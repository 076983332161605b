// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

/*
Package models defines the data structures shared by the Sensorboard dashboard core.

Model Categories:

 1. Widgets:
    - Widget, WidgetDefinition, Position: a placed element on a device dashboard
    - WidgetPatch: partial widget used for diffs and batch updates
    - WidgetType: closed set of renderer kinds with default grid sizes

 2. Editor State:
    - EditState: current widgets plus the unsaved diff (pending changes, deletions)
    - PersistedWidgetState: durable snapshot wrapper (timestamp, device, version)

 3. Batch Widget API:
    - BatchRequest, WidgetUpdate: POST /api/devices/{deviceId}/widgets/batch body
    - BatchResponse, OperationError, CreatedWidget: per-item results

 4. Realtime Protocol (/api/ws):
    - Inbound: ConnectionEstablished, SubscriptionConfirmed, CacheInitialized,
      ErrorMessage, Pong, and Forwarded for everything else
    - Outbound: SubscribeDevice, Ping, InitializeCache, RefreshDevice, RawOutbound

Inbound and Outbound are sealed interfaces: a type switch over the known variants
covers every control message, while Forwarded keeps unknown server pushes intact.

Usage Example:

	msg, err := models.DecodeInbound(frame)
	if err != nil {
	    return err
	}
	switch m := msg.(type) {
	case models.ConnectionEstablished:
	    fmt.Println("client", m.ClientID, "cache ready", m.CacheReady)
	case models.Forwarded:
	    var reading SensorReading
	    _ = m.Decode(&reading)
	}

JSON keys follow the wire protocol (camelCase). All JSON encoding uses goccy/go-json.
*/
package models
