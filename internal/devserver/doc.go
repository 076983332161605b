// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

/*
Package devserver is a local stand-in for the dashboard backend. It speaks
the same /api/ws protocol and widget REST routes a production server does,
so the realtime session, the widget API client and the CLI can be exercised
end to end without one.

# Routes

	GET  /api/ws                               WebSocket upgrade
	GET  /api/devices/{deviceId}/widgets       current widgets
	POST /api/devices/{deviceId}/widgets/batch batch create/update/delete
	GET  /metrics                              Prometheus exposition
	GET  /healthz                              liveness

REST routes are rate limited per IP (go-chi/httprate) and, when a JWT
secret is configured, require an HS256 bearer token.

# WebSocket protocol

Every connection receives CONNECTION_ESTABLISHED first. The server answers
SUBSCRIBE_DEVICE, INITIALIZE_CACHE, PING and REFRESH_DEVICE, and replies
ERROR to anything else or to messages over the per-connection rate limit.
Pushes for a device (Server.Publish, WIDGETS_CHANGED after a batch,
DEVICE_REFRESHED) reach only clients subscribed to it.

The Hub must be running (Hub.RunWithContext, usually under the supervisor)
before clients can register.
*/
package devserver
