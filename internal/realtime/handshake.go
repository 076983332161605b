// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package realtime

import (
	"github.com/tomtom215/sensorboard/internal/models"
)

// State is the cache handshake state of a session.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateEstablished
	StateCacheReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateConnecting:
		return "CONNECTING"
	case StateEstablished:
		return "ESTABLISHED"
	case StateCacheReady:
		return "CACHE_READY"
	default:
		return "UNKNOWN"
	}
}

// handshake tracks server-confirmed session state. It is not safe for
// concurrent use; Session guards it with its mutex.
type handshake struct {
	state            State
	cacheReady       bool
	clientID         string
	subscribedDevice string
	cacheStats       models.CacheStats
	lastError        string
}

func (h *handshake) connecting() {
	h.state = StateConnecting
	h.cacheReady = false
}

// closed reverts to Uninitialized. The client ID and subscription belong to
// the dead connection and are dropped; the last error and cache stats are
// kept for diagnostics.
func (h *handshake) closed() {
	h.state = StateUninitialized
	h.cacheReady = false
	h.clientID = ""
	h.subscribedDevice = ""
}

// apply updates state for a control message and reports whether msg must be
// forwarded to the caller instead.
func (h *handshake) apply(msg models.Inbound) bool {
	switch m := msg.(type) {
	case models.ConnectionEstablished:
		h.clientID = m.ClientID
		h.cacheReady = m.CacheReady
		if m.CacheReady {
			h.state = StateCacheReady
		} else {
			h.state = StateEstablished
		}
	case models.SubscriptionConfirmed:
		h.subscribedDevice = m.DeviceID
	case models.CacheInitialized:
		h.state = StateCacheReady
		h.cacheReady = true
		if m.Stats != nil {
			h.cacheStats = m.Stats
		}
	case models.ErrorMessage:
		h.lastError = m.Error
	case models.Pong:
		if m.CacheStats != nil {
			h.cacheStats = m.CacheStats
		}
	case models.Forwarded:
		return true
	}
	return false
}
