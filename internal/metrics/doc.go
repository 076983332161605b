// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

/*
Package metrics registers Sensorboard's Prometheus collectors with promauto.

Collectors are package-level variables registered against the default
registry at init; the development server exposes them on /metrics via
promhttp.

# Realtime Session

  - realtime_connection_state: 0=uninitialized, 1=connecting, 2=established, 3=cache_ready
  - realtime_reconnect_attempts_total
  - realtime_messages_received_total{type}
  - realtime_messages_sent_total{type}
  - realtime_messages_dropped_total{reason}
  - realtime_queue_depth

# Batch Widget API

  - widget_batch_requests_total{result}: success, partial, failed, error
  - widget_batch_duration_seconds
  - widget_batch_operation_failures_total{operation}
  - circuit_breaker_state{name}, circuit_breaker_requests_total{name,result},
    circuit_breaker_state_transitions_total{name,from_state,to_state}

# Snapshots

  - snapshot_operations_total{operation,result}

# Example Alert

	- alert: WidgetAPICircuitOpen
	  expr: circuit_breaker_state{name="widget_api"} == 2
	  for: 1m
*/
package metrics
