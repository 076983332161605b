// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package devserver

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/models"
)

// Server push types beyond the control messages in models.
const (
	MessageTypeDeviceRefreshed = "DEVICE_REFRESHED"
	MessageTypeWidgetsChanged  = "WIDGETS_CHANGED"
)

const errRateLimited = "rate limit exceeded"

// EncodeFrame builds {"type": msgType, ...payload fields}. payload must
// encode to a JSON object or be nil.
func EncodeFrame(msgType string, payload any) ([]byte, error) {
	fields := map[string]any{}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
		}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("%s payload is not an object: %w", msgType, err)
		}
	}
	fields["type"] = msgType
	return json.Marshal(fields)
}

// reply encodes and queues one frame for c.
func (s *Server) reply(c *Client, msgType string, payload any) {
	frame, err := EncodeFrame(msgType, payload)
	if err != nil {
		logging.Error().Err(err).Str("type", msgType).Msg("failed to encode reply")
		return
	}
	if !c.enqueue(frame) {
		logging.Debug().Str("client_id", c.ClientID()).Str("type", msgType).Msg("reply dropped")
	}
}

func (s *Server) replyError(c *Client, msg string) {
	s.reply(c, models.MessageTypeError, models.ErrorMessage{Error: msg})
}

// handleFrame answers one client → server frame.
func (s *Server) handleFrame(c *Client, data []byte) {
	if !c.allow() {
		s.replyError(c, errRateLimited)
		return
	}

	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		s.replyError(c, "invalid message")
		return
	}

	switch env.Type {
	case models.MessageTypeSubscribeDevice:
		var m models.SubscribeDevice
		if err := json.Unmarshal(data, &m); err != nil || m.DeviceID == "" {
			s.replyError(c, "deviceId is required")
			return
		}
		c.subscribe(m.DeviceID)
		logging.Debug().Str("client_id", c.ClientID()).Str("device_id", m.DeviceID).Msg("device subscribed")
		s.reply(c, models.MessageTypeSubscriptionConfirmed, models.SubscriptionConfirmed{DeviceID: m.DeviceID})

	case models.MessageTypeInitializeCache:
		var m models.InitializeCache
		if err := json.Unmarshal(data, &m); err != nil {
			s.replyError(c, "invalid INITIALIZE_CACHE message")
			return
		}
		s.cacheReady.Store(true)
		stats := s.store.Stats()
		stats["organizationId"] = m.OrganizationID
		stats["initializedAt"] = s.now().UTC().Format(time.RFC3339)
		logging.Debug().Str("client_id", c.ClientID()).Str("organization_id", m.OrganizationID).Msg("cache initialized")
		s.reply(c, models.MessageTypeCacheInitialized, models.CacheInitialized{Stats: stats})

	case models.MessageTypePing:
		stats := s.store.Stats()
		stats["cacheReady"] = s.cacheReady.Load()
		s.reply(c, models.MessageTypePong, models.Pong{CacheStats: stats})

	case models.MessageTypeRefreshDevice:
		var m models.RefreshDevice
		if err := json.Unmarshal(data, &m); err != nil || m.DeviceID == "" {
			s.replyError(c, "deviceId is required")
			return
		}
		s.refreshDevice(c, m.DeviceID)

	default:
		logging.Debug().Str("client_id", c.ClientID()).Str("type", env.Type).Msg("unknown message type")
		s.replyError(c, "unknown message type: "+env.Type)
	}
}

// refreshDevice pushes the device's widgets to its subscribers, and to the
// requester when it is not one of them.
func (s *Server) refreshDevice(c *Client, deviceID string) {
	widgets, ok := s.store.List(deviceID)
	if !ok {
		s.replyError(c, "device not found: "+deviceID)
		return
	}
	frame, err := EncodeFrame(MessageTypeDeviceRefreshed, map[string]any{
		"deviceId": deviceID,
		"widgets":  widgets,
	})
	if err != nil {
		logging.Error().Err(err).Str("device_id", deviceID).Msg("failed to encode refresh")
		return
	}
	if !c.Subscribed(deviceID) {
		c.enqueue(frame)
	}
	s.hub.Publish(deviceID, frame)
}
