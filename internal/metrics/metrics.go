// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Realtime session metrics

	RealtimeConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connection_state",
			Help: "Handshake state of the realtime session (0=uninitialized, 1=connecting, 2=established, 3=cache_ready)",
		},
	)

	RealtimeReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_reconnect_attempts_total",
			Help: "Total number of scheduled reconnect attempts that fired",
		},
	)

	RealtimeMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_messages_received_total",
			Help: "Total number of inbound WebSocket messages by type",
		},
		[]string{"type"},
	)

	RealtimeMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_messages_sent_total",
			Help: "Total number of outbound WebSocket messages written by type",
		},
		[]string{"type"},
	)

	RealtimeMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_messages_dropped_total",
			Help: "Total number of messages dropped by the session",
		},
		[]string{"reason"}, // closed, malformed, write_error, encode_error
	)

	RealtimeQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_queue_depth",
			Help: "Messages waiting for the connection to open",
		},
	)

	// Batch widget API metrics

	WidgetBatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_batch_requests_total",
			Help: "Total number of batch widget requests by result",
		},
		[]string{"result"}, // success, partial, failed, error
	)

	WidgetBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "widget_batch_duration_seconds",
			Help:    "Duration of batch widget requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	WidgetBatchOperationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_batch_operation_failures_total",
			Help: "Per-item failures reported in batch responses",
		},
		[]string{"operation"}, // CREATE, UPDATE, DELETE
	)

	// Snapshot metrics

	SnapshotOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_operations_total",
			Help: "Total number of edit snapshot operations",
		},
		[]string{"operation", "result"},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Development server metrics

	DevServerConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devserver_websocket_connections",
			Help: "Current number of WebSocket clients on the development server",
		},
	)

	DevServerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devserver_http_requests_total",
			Help: "Total number of HTTP requests served by the development server",
		},
		[]string{"method", "route", "status"},
	)

	DevServerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devserver_http_request_duration_seconds",
			Help:    "HTTP request latency on the development server",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Supervisor metrics

	SupervisorServiceRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supervisor_service_restarts_total",
			Help: "Total number of supervised service restarts",
		},
		[]string{"supervisor", "service"},
	)
)

// RecordBatchRequest records one batch call. result is one of success,
// partial, failed or error.
func RecordBatchRequest(result string, duration time.Duration) {
	WidgetBatchRequests.WithLabelValues(result).Inc()
	WidgetBatchDuration.Observe(duration.Seconds())
}

// RecordSnapshotOperation records a snapshot store operation.
func RecordSnapshotOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	SnapshotOperations.WithLabelValues(operation, result).Inc()
}

// RecordDevServerRequest records one HTTP request on the development server.
func RecordDevServerRequest(method, route string, status int, duration time.Duration) {
	DevServerRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	DevServerRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
