// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

/*
Package config loads Sensorboard configuration with koanf v2.

# Configuration Sources

Sources are layered, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file: CONFIG_PATH, ./sensorboard.yaml, ./config.yaml,
    ./config.yml, /etc/sensorboard/config.yaml
 3. Environment variables (explicitly mapped; anything else is ignored)

# Sections

  - realtime: WebSocket endpoint, reconnect policy, timeouts, keepalive
  - api: batch widget API base URL, bearer token, timeout, circuit breaker
  - editor: auto-save, periodic snapshot interval, snapshot max age, storage key override
  - storage: badger snapshot directory or in-memory store
  - identity: user and organization used for SUBSCRIBE_DEVICE and INITIALIZE_CACHE
  - devserver: local contract server address, JWT secret, CORS, rate limits
  - logging: level, format, caller

# Environment Variables

  - SENSORBOARD_REALTIME_URL, SENSORBOARD_MAX_RECONNECT, SENSORBOARD_PING_INTERVAL
  - SENSORBOARD_API_URL, SENSORBOARD_API_TOKEN, SENSORBOARD_API_TIMEOUT
  - SENSORBOARD_AUTO_SAVE, SENSORBOARD_AUTO_SAVE_INTERVAL, SENSORBOARD_SNAPSHOT_MAX_AGE
  - SENSORBOARD_STORAGE_PATH, SENSORBOARD_STORAGE_IN_MEMORY
  - SENSORBOARD_USER_ID, SENSORBOARD_ORGANIZATION_ID
  - SENSORBOARD_DEVSERVER_ADDR, SENSORBOARD_JWT_SECRET, SENSORBOARD_CORS_ORIGINS (comma-separated)
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

See envMappings in koanf.go for the complete list.

# Example YAML

	realtime:
	  url: https://iot.example.com
	  max_reconnect_attempts: 5
	api:
	  base_url: https://iot.example.com
	  token: ${TOKEN}
	editor:
	  auto_save_interval: 30s
	  snapshot_max_age: 1h
	storage:
	  path: /var/lib/sensorboard
*/
package config
