// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package models

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
)

func TestDecodeInbound_ControlMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame string
		check func(t *testing.T, msg Inbound)
	}{
		{
			name:  "connection established",
			frame: `{"type":"CONNECTION_ESTABLISHED","clientId":"c-1","cacheReady":true}`,
			check: func(t *testing.T, msg Inbound) {
				m, ok := msg.(ConnectionEstablished)
				if !ok || m.ClientID != "c-1" || !m.CacheReady {
					t.Errorf("got %#v", msg)
				}
			},
		},
		{
			name:  "subscription confirmed",
			frame: `{"type":"SUBSCRIPTION_CONFIRMED","deviceId":"dev-7"}`,
			check: func(t *testing.T, msg Inbound) {
				m, ok := msg.(SubscriptionConfirmed)
				if !ok || m.DeviceID != "dev-7" {
					t.Errorf("got %#v", msg)
				}
			},
		},
		{
			name:  "cache initialized",
			frame: `{"type":"CACHE_INITIALIZED","stats":{"devices":3}}`,
			check: func(t *testing.T, msg Inbound) {
				m, ok := msg.(CacheInitialized)
				if !ok || m.Stats["devices"] != float64(3) {
					t.Errorf("got %#v", msg)
				}
			},
		},
		{
			name:  "error",
			frame: `{"type":"ERROR","error":"not allowed"}`,
			check: func(t *testing.T, msg Inbound) {
				m, ok := msg.(ErrorMessage)
				if !ok || m.Error != "not allowed" {
					t.Errorf("got %#v", msg)
				}
			},
		},
		{
			name:  "pong",
			frame: `{"type":"PONG","cacheStats":{"hits":10}}`,
			check: func(t *testing.T, msg Inbound) {
				m, ok := msg.(Pong)
				if !ok || m.CacheStats["hits"] != float64(10) {
					t.Errorf("got %#v", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := DecodeInbound([]byte(tt.frame))
			if err != nil {
				t.Fatalf("DecodeInbound() error = %v", err)
			}
			tt.check(t, msg)
		})
	}
}

func TestDecodeInbound_ForwardsUnknownTypesVerbatim(t *testing.T) {
	t.Parallel()

	frame := []byte(`{"type":"SENSOR_READING","deviceId":"dev-1","value":21.5}`)
	msg, err := DecodeInbound(frame)
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}

	fwd, ok := msg.(Forwarded)
	if !ok {
		t.Fatalf("expected Forwarded, got %T", msg)
	}
	if fwd.MessageType() != "SENSOR_READING" {
		t.Errorf("type = %q", fwd.MessageType())
	}
	if string(fwd.Raw) != string(frame) {
		t.Errorf("raw frame altered: %s", fwd.Raw)
	}

	var reading struct {
		Value float64 `json:"value"`
	}
	if err := fwd.Decode(&reading); err != nil || reading.Value != 21.5 {
		t.Errorf("Decode() = %v, value %v", err, reading.Value)
	}
}

func TestDecodeInbound_Malformed(t *testing.T) {
	t.Parallel()

	if _, err := DecodeInbound([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed frame")
	}
	if _, err := DecodeInbound([]byte(`{"value":1}`)); !errors.Is(err, ErrMissingMessageType) {
		t.Errorf("expected ErrMissingMessageType, got %v", err)
	}
	if _, err := DecodeInbound([]byte(`{"type":"CONNECTION_ESTABLISHED","cacheReady":"yes"}`)); err == nil {
		t.Error("expected error for mistyped control payload")
	}
}

func TestEncodeOutbound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Outbound
		want map[string]any
	}{
		{
			name: "subscribe",
			msg:  SubscribeDevice{DeviceID: "d1", UserID: "u1", OrganizationID: "o1"},
			want: map[string]any{"type": "SUBSCRIBE_DEVICE", "deviceId": "d1", "userId": "u1", "organizationId": "o1"},
		},
		{
			name: "ping",
			msg:  Ping{Timestamp: 1234},
			want: map[string]any{"type": "PING", "timestamp": float64(1234)},
		},
		{
			name: "initialize cache",
			msg:  InitializeCache{UserID: "u1", OrganizationID: "o1"},
			want: map[string]any{"type": "INITIALIZE_CACHE", "userId": "u1", "organizationId": "o1"},
		},
		{
			name: "refresh",
			msg:  RefreshDevice{DeviceID: "d2"},
			want: map[string]any{"type": "REFRESH_DEVICE", "deviceId": "d2"},
		},
		{
			name: "raw",
			msg:  RawOutbound{Type: "SET_PIN", Payload: map[string]any{"pin": "V3", "type": "ignored"}},
			want: map[string]any{"type": "SET_PIN", "pin": "V3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := EncodeOutbound(tt.msg)
			if err != nil {
				t.Fatalf("EncodeOutbound() error = %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestEncodeOutbound_RejectsUntyped(t *testing.T) {
	t.Parallel()

	if _, err := EncodeOutbound(RawOutbound{}); !errors.Is(err, ErrMissingMessageType) {
		t.Errorf("expected ErrMissingMessageType, got %v", err)
	}
	if _, err := EncodeOutbound(nil); !errors.Is(err, ErrMissingMessageType) {
		t.Errorf("expected ErrMissingMessageType for nil, got %v", err)
	}
}
