// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package realtime

import (
	"fmt"
	"net/url"
	"strings"
)

// EndpointPath is the server's WebSocket route.
const EndpointPath = "/api/ws"

// BuildEndpoint converts a server base URL into the WebSocket endpoint.
//
//	http://host:8080        -> ws://host:8080/api/ws
//	https://iot.example.com -> wss://iot.example.com/api/ws
//	wss://host/custom/ws    -> unchanged
func BuildEndpoint(baseURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("base url %q has no host", baseURL)
	}

	switch parsed.Scheme {
	case "ws", "wss":
		if parsed.Path == "" || parsed.Path == "/" {
			parsed.Path = EndpointPath
		}
		return parsed.String(), nil
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	parsed.Path = EndpointPath
	parsed.RawPath = ""
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}
