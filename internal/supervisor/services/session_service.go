// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/realtime"
)

// ErrSessionExhausted is returned from Serve when the session stopped
// reconnecting on its own. Suture restarts the service, which calls
// Connect again with a fresh attempt budget.
var ErrSessionExhausted = errors.New("realtime session exhausted its reconnect attempts")

// DefaultSessionCheckInterval is how often SessionService inspects status.
const DefaultSessionCheckInterval = time.Second

// Session is the part of *realtime.Session the service drives.
type Session interface {
	Connect()
	Close()
	Status() realtime.Status
}

// SessionService keeps a realtime session mounted for as long as the
// supervisor runs it.
type SessionService struct {
	session     Session
	maxAttempts int
	interval    time.Duration
	name        string
}

// NewSessionService wraps session. maxAttempts must match the session's
// MaxReconnectAttempts; once the session is idle with that many attempts
// spent, Serve returns ErrSessionExhausted.
func NewSessionService(name string, session Session, maxAttempts int, interval time.Duration) *SessionService {
	if interval <= 0 {
		interval = DefaultSessionCheckInterval
	}
	if name == "" {
		name = "realtime-session"
	}
	return &SessionService{
		session:     session,
		maxAttempts: maxAttempts,
		interval:    interval,
		name:        name,
	}
}

// Serve implements suture.Service.
func (s *SessionService) Serve(ctx context.Context) error {
	s.session.Connect()
	defer s.session.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			st := s.session.Status()
			if exhausted(st, s.maxAttempts) {
				logging.Warn().
					Str("service", s.name).
					Int("attempts", st.ReconnectAttempts).
					Str("last_error", st.LastError).
					Msg("Realtime session gave up reconnecting; restarting")
				return ErrSessionExhausted
			}
		}
	}
}

// exhausted reports a session that is idle and will not dial again by itself.
func exhausted(st realtime.Status, maxAttempts int) bool {
	return st.State == realtime.StateUninitialized && st.ReconnectAttempts >= maxAttempts
}

// String implements fmt.Stringer; suture uses it as the service name.
func (s *SessionService) String() string {
	return s.name
}
