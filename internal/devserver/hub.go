// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package devserver

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/metrics"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// publication is one frame addressed to the subscribers of a device.
// An empty deviceID reaches every client.
type publication struct {
	deviceID string
	frame    []byte
}

// Hub tracks connected clients and fans device pushes out to subscribers.
//
// Register, Unregister and Publish are serviced by RunWithContext; a hub
// that has stopped does not start again.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan publication
	Register   chan *Client
	Unregister chan *Client
	stopped    chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
}

// NewHub creates an idle hub. Call RunWithContext to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan publication, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

// RunWithContext services the hub until ctx ends, then closes every client
// and returns ctx.Err().
//
// Lifecycle events are drained before publications so a client that just
// registered sees the next push.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.stopOnce.Do(func() { close(h.stopped) })

	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.add(client)
			continue
		case client := <-h.Unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		case p := <-h.broadcast:
			h.deliver(p)
		}
	}
}

// Stopped is closed once RunWithContext has returned.
func (h *Hub) Stopped() <-chan struct{} {
	return h.stopped
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.DevServerConnections.Inc()
	logging.Info().Str("client_id", c.ClientID()).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		c.close()
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.DevServerConnections.Dec()
		logging.Info().Str("client_id", c.ClientID()).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// Publish queues a frame for every client subscribed to deviceID. It
// reports false when the queue is full and the frame was dropped.
func (h *Hub) Publish(deviceID string, frame []byte) bool {
	select {
	case h.broadcast <- publication{deviceID: deviceID, frame: frame}:
		return true
	default:
		logging.Warn().Str("device_id", deviceID).Msg("broadcast channel full, dropping push")
		return false
	}
}

// sortedClientsLocked returns clients ordered by ID. Callers hold h.mu.
func (h *Hub) sortedClientsLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// deliver sends p to its audience in client ID order. A client whose send
// buffer is full is dropped.
func (h *Hub) deliver(p publication) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for _, c := range h.sortedClientsLocked() {
		if p.deviceID != "" && !c.Subscribed(p.deviceID) {
			continue
		}
		if !c.enqueue(p.frame) {
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		c.close()
		delete(h.clients, c)
		metrics.DevServerConnections.Dec()
		logging.Warn().Str("client_id", c.ClientID()).Msg("dropping slow websocket client")
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := h.sortedClientsLocked()
	for _, c := range clients {
		c.close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
	metrics.DevServerConnections.Sub(float64(len(clients)))

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	logging.Info().
		Str("component", "devserver-hub").
		Str("reason", string(reason)).
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns how many clients are subscribed to deviceID.
func (h *Hub) SubscriberCount(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.Subscribed(deviceID) {
			n++
		}
	}
	return n
}
