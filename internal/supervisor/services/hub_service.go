// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"
)

// ContextHub is a hub whose event loop runs until ctx ends.
// Satisfied by *devserver.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService runs the dev server's WebSocket hub under the supervisor.
type HubService struct {
	hub  ContextHub
	name string
}

// NewHubService wraps hub.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub, name: "devserver-hub"}
}

// Serve implements suture.Service. A hub closes every client when it stops
// and cannot be started again, so an unexpected exit ends supervision of
// it instead of looping on restarts.
func (h *HubService) Serve(ctx context.Context) error {
	err := h.hub.RunWithContext(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: hub stopped: %w", suture.ErrDoNotRestart, err)
	}
	return suture.ErrDoNotRestart
}

// String implements fmt.Stringer.
func (h *HubService) String() string {
	return h.name
}
