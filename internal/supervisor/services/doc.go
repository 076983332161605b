// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

// Package services adapts sensorboard components to suture.Service.
//
//   - SessionService keeps a realtime.Session connected and restarts it
//     once its own reconnect budget is spent.
//   - HubService runs the dev server hub's event loop.
//   - HTTPServerService binds a listener and serves a handler, with a
//     graceful shutdown on context cancellation.
//
// Each wrapper implements fmt.Stringer so supervisor logs name it.
package services
