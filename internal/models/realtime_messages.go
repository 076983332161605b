// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package models

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Message types of the dashboard WebSocket protocol (/api/ws).
const (
	// Client → server
	MessageTypeSubscribeDevice = "SUBSCRIBE_DEVICE"
	MessageTypePing            = "PING"
	MessageTypeInitializeCache = "INITIALIZE_CACHE"
	MessageTypeRefreshDevice   = "REFRESH_DEVICE"

	// Server → client control messages
	MessageTypeConnectionEstablished = "CONNECTION_ESTABLISHED"
	MessageTypeSubscriptionConfirmed = "SUBSCRIPTION_CONFIRMED"
	MessageTypeCacheInitialized      = "CACHE_INITIALIZED"
	MessageTypeError                 = "ERROR"
	MessageTypePong                  = "PONG"
)

// ErrMissingMessageType is returned when a frame has no "type" field.
var ErrMissingMessageType = errors.New("message has no type")

// CacheStats is the server-defined cache statistics payload.
type CacheStats map[string]any

// Inbound is a decoded server → client message. The set of variants is closed;
// anything the client does not recognise arrives as Forwarded.
type Inbound interface {
	MessageType() string
	inbound()
}

// ConnectionEstablished is the first message on a new connection.
type ConnectionEstablished struct {
	ClientID   string `json:"clientId"`
	CacheReady bool   `json:"cacheReady"`
}

// SubscriptionConfirmed acknowledges SUBSCRIBE_DEVICE.
type SubscriptionConfirmed struct {
	DeviceID string `json:"deviceId"`
}

// CacheInitialized reports that the per-organization cache is ready.
type CacheInitialized struct {
	Stats CacheStats `json:"stats,omitempty"`
}

// ErrorMessage carries a server-side protocol error. It does not close the connection.
type ErrorMessage struct {
	Error string `json:"error"`
}

// Pong answers PING.
type Pong struct {
	CacheStats CacheStats `json:"cacheStats,omitempty"`
}

// Forwarded is any message type the session does not intercept.
// Raw holds the frame exactly as received.
type Forwarded struct {
	Type string
	Raw  json.RawMessage
}

func (ConnectionEstablished) MessageType() string { return MessageTypeConnectionEstablished }
func (SubscriptionConfirmed) MessageType() string { return MessageTypeSubscriptionConfirmed }
func (CacheInitialized) MessageType() string      { return MessageTypeCacheInitialized }
func (ErrorMessage) MessageType() string          { return MessageTypeError }
func (Pong) MessageType() string                  { return MessageTypePong }
func (f Forwarded) MessageType() string           { return f.Type }

func (ConnectionEstablished) inbound() {}
func (SubscriptionConfirmed) inbound() {}
func (CacheInitialized) inbound()      {}
func (ErrorMessage) inbound()          {}
func (Pong) inbound()                  {}
func (Forwarded) inbound()             {}

// Decode unmarshals the forwarded frame into v.
func (f Forwarded) Decode(v any) error {
	return json.Unmarshal(f.Raw, v)
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeInbound parses one text frame.
func DecodeInbound(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingMessageType
	}

	var (
		msg Inbound
		err error
	)
	switch env.Type {
	case MessageTypeConnectionEstablished:
		var m ConnectionEstablished
		err = json.Unmarshal(data, &m)
		msg = m
	case MessageTypeSubscriptionConfirmed:
		var m SubscriptionConfirmed
		err = json.Unmarshal(data, &m)
		msg = m
	case MessageTypeCacheInitialized:
		var m CacheInitialized
		err = json.Unmarshal(data, &m)
		msg = m
	case MessageTypeError:
		var m ErrorMessage
		err = json.Unmarshal(data, &m)
		msg = m
	case MessageTypePong:
		var m Pong
		err = json.Unmarshal(data, &m)
		msg = m
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		msg = Forwarded{Type: env.Type, Raw: raw}
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return msg, nil
}

// Outbound is a client → server message.
type Outbound interface {
	MessageType() string
	outbound()
}

// SubscribeDevice asks the server to push data for one device.
type SubscribeDevice struct {
	DeviceID       string `json:"deviceId"`
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
}

// Ping is a liveness probe; Timestamp is unix milliseconds.
type Ping struct {
	Timestamp int64 `json:"timestamp"`
}

// InitializeCache asks the server to warm the organization cache.
type InitializeCache struct {
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
}

// RefreshDevice hints the server to re-push a device's data.
type RefreshDevice struct {
	DeviceID string `json:"deviceId"`
}

// RawOutbound sends a caller-defined message. Payload fields are merged
// next to "type" and must not contain a "type" key of their own.
type RawOutbound struct {
	Type    string
	Payload map[string]any
}

func (SubscribeDevice) MessageType() string { return MessageTypeSubscribeDevice }
func (Ping) MessageType() string            { return MessageTypePing }
func (InitializeCache) MessageType() string { return MessageTypeInitializeCache }
func (RefreshDevice) MessageType() string   { return MessageTypeRefreshDevice }
func (r RawOutbound) MessageType() string   { return r.Type }

func (SubscribeDevice) outbound() {}
func (Ping) outbound()            {}
func (InitializeCache) outbound() {}
func (RefreshDevice) outbound()   {}
func (RawOutbound) outbound()     {}

// EncodeOutbound serializes a message with its "type" discriminator.
func EncodeOutbound(msg Outbound) ([]byte, error) {
	if msg == nil || msg.MessageType() == "" {
		return nil, ErrMissingMessageType
	}

	var body any
	switch m := msg.(type) {
	case SubscribeDevice:
		body = struct {
			Type string `json:"type"`
			SubscribeDevice
		}{m.MessageType(), m}
	case Ping:
		body = struct {
			Type string `json:"type"`
			Ping
		}{m.MessageType(), m}
	case InitializeCache:
		body = struct {
			Type string `json:"type"`
			InitializeCache
		}{m.MessageType(), m}
	case RefreshDevice:
		body = struct {
			Type string `json:"type"`
			RefreshDevice
		}{m.MessageType(), m}
	case RawOutbound:
		fields := make(map[string]any, len(m.Payload)+1)
		for k, v := range m.Payload {
			fields[k] = v
		}
		fields["type"] = m.Type
		body = fields
	default:
		return nil, fmt.Errorf("unsupported outbound message %T", msg)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.MessageType(), err)
	}
	return data, nil
}
