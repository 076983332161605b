// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

// Package realtime is the client side of the dashboard WebSocket protocol.
//
// A Session is created per mounted dashboard view and torn down with Close
// when the view goes away; there is no shared global session.
//
//	sess, err := realtime.NewSession(realtime.ConfigFromSettings(cfg.Realtime, cfg.Identity),
//	    realtime.WithMessageHandler(func(m models.Forwarded) { ... }),
//	    realtime.WithStatusListener(func(st realtime.Status) { ... }),
//	)
//	sess.SetDevice("dev-42")
//	sess.Connect()
//	defer sess.Close()
//
// Connection management:
//   - Connect is idempotent while a dial is pending or the socket is open
//   - SendMessage writes when open, queues while connecting (flushed FIFO on
//     open), and drops with a warning when closed
//   - after an unexpected close the session reconnects with exponential
//     backoff (1s, 2s, 4s, 8s, 16s; capped at 30s) up to MaxReconnectAttempts,
//     then waits for an explicit Connect
//
// Cache handshake: UNINITIALIZED -> CONNECTING -> ESTABLISHED -> CACHE_READY.
// CONNECTION_ESTABLISHED, SUBSCRIPTION_CONFIRMED, CACHE_INITIALIZED, ERROR and
// PONG are consumed by the session and reflected in Status; every other
// message type is passed to the message handler with its raw frame.
package realtime
