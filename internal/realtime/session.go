// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package realtime

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/sensorboard/internal/config"
	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/metrics"
	"github.com/tomtom215/sensorboard/internal/models"
)

// Config configures one Session.
type Config struct {
	// URL is an http(s) server base or a full ws(s) endpoint.
	URL string

	MaxReconnectAttempts int
	Backoff              Backoff
	HandshakeTimeout     time.Duration
	WriteTimeout         time.Duration

	// PingInterval sends PING on an open session. 0 disables.
	PingInterval time.Duration

	DeviceID       string
	UserID         string
	OrganizationID string
}

// DefaultConfig returns the standard reconnect policy for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		Backoff:              Backoff{Base: DefaultReconnectBaseDelay, Max: DefaultReconnectMaxDelay},
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         10 * time.Second,
		PingInterval:         30 * time.Second,
	}
}

// ConfigFromSettings maps loaded application settings onto a session Config.
func ConfigFromSettings(rt config.RealtimeConfig, id config.IdentityConfig) Config {
	return Config{
		URL:                  rt.URL,
		MaxReconnectAttempts: rt.MaxReconnectAttempts,
		Backoff:              Backoff{Base: rt.ReconnectBaseDelay, Max: rt.ReconnectMaxDelay},
		HandshakeTimeout:     rt.HandshakeTimeout,
		WriteTimeout:         rt.WriteTimeout,
		PingInterval:         rt.PingInterval,
		UserID:               id.UserID,
		OrganizationID:       id.OrganizationID,
	}
}

// Status is a point-in-time view of a session for status indicators.
type Status struct {
	State             State
	Connected         bool
	CacheReady        bool
	ReconnectAttempts int
	QueueLength       int
	LastError         string
	ClientID          string
	SubscribedDevice  string
	CacheStats        models.CacheStats
}

// Option customizes a Session.
type Option func(*Session)

// WithDialer replaces the gorilla/websocket dialer.
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithScheduler replaces time.AfterFunc for reconnect timers. The scheduler
// must run callbacks asynchronously, never from inside AfterFunc.
func WithScheduler(sched Scheduler) Option {
	return func(s *Session) { s.sched = sched }
}

// WithMessageHandler receives every message type the session does not
// intercept, in arrival order, on the session's reader goroutine.
// The handler must not call Close.
func WithMessageHandler(h func(models.Forwarded)) Option {
	return func(s *Session) { s.onMessage = h }
}

// WithStatusListener is called after every connection or handshake change,
// on whichever session goroutine made it. The listener must not call Close.
func WithStatusListener(l func(Status)) Option {
	return func(s *Session) { s.onStatus = l }
}

// WithClock overrides time.Now for PING timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

type transportState int

const (
	transportIdle transportState = iota
	transportConnecting
	transportOpen
)

type queuedMessage struct {
	msgType string
	data    []byte
}

// Session owns one WebSocket connection for one mounted dashboard view.
// It hides dialing, queueing while connecting, and bounded reconnects.
// All methods are safe for concurrent use.
type Session struct {
	cfg       Config
	endpoint  string
	dialer    Dialer
	sched     Scheduler
	now       func() time.Time
	onMessage func(models.Forwarded)
	onStatus  func(Status)
	log       zerolog.Logger

	mu                sync.Mutex
	enabled           bool
	transport         transportState
	conn              Conn
	gen               uint64
	cancelDial        context.CancelFunc
	connDone          chan struct{}
	queue             []queuedMessage
	reconnectAttempts int
	reconnectTimer    Timer
	hs                handshake
	deviceID          string
	userID            string
	orgID             string

	wg sync.WaitGroup
}

// NewSession creates a disconnected session. Call Connect to start it.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	endpoint, err := BuildEndpoint(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("realtime endpoint: %w", err)
	}
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff.Base = DefaultReconnectBaseDelay
	}
	if cfg.Backoff.Max <= 0 {
		cfg.Backoff.Max = DefaultReconnectMaxDelay
	}
	if cfg.MaxReconnectAttempts < 0 {
		cfg.MaxReconnectAttempts = 0
	}

	s := &Session{
		cfg:      cfg,
		endpoint: endpoint,
		sched:    SystemScheduler{},
		now:      time.Now,
		log:      logging.Component("realtime").With().Str("endpoint", endpoint).Logger(),
		deviceID: cfg.DeviceID,
		userID:   cfg.UserID,
		orgID:    cfg.OrganizationID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialer == nil {
		s.dialer = NewWebSocketDialer(cfg.HandshakeTimeout, cfg.WriteTimeout)
	}
	return s, nil
}

// Endpoint returns the resolved WebSocket URL.
func (s *Session) Endpoint() string {
	return s.endpoint
}

// Connect starts a connection attempt unless one is pending or open.
// It returns immediately; the dial runs in the background. An explicit
// Connect starts a fresh reconnect budget.
func (s *Session) Connect() {
	s.mu.Lock()
	if s.transport != transportIdle {
		s.mu.Unlock()
		return
	}
	s.enabled = true
	s.reconnectAttempts = 0
	s.stopReconnectTimerLocked()
	s.startDialLocked()
	st := s.statusLocked()
	s.mu.Unlock()

	s.notifyStatus(st)
}

func (s *Session) startDialLocked() {
	s.transport = transportConnecting
	s.hs.connecting()
	s.gen++
	gen := s.gen

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.cfg.HandshakeTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), s.cfg.HandshakeTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	s.cancelDial = cancel
	s.recordGaugesLocked()

	s.log.Debug().Int("attempt", s.reconnectAttempts).Msg("Dialing realtime endpoint")

	s.wg.Add(1)
	go s.dial(ctx, cancel, gen)
}

func (s *Session) dial(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer s.wg.Done()

	conn, err := s.dialer.Dial(ctx, s.endpoint)
	cancel()

	s.mu.Lock()
	if gen != s.gen || !s.enabled || s.transport != transportConnecting {
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	s.cancelDial = nil

	if err != nil {
		s.log.Warn().Err(err).Int("attempt", s.reconnectAttempts).Msg("Realtime connection failed")
		s.hs.lastError = err.Error()
		s.resetTransportLocked()
		s.scheduleReconnectLocked()
		st := s.statusLocked()
		s.mu.Unlock()
		s.notifyStatus(st)
		return
	}

	s.conn = conn
	s.transport = transportOpen
	s.reconnectAttempts = 0
	done := make(chan struct{})
	s.connDone = done

	s.flushQueueLocked()
	if s.deviceID != "" {
		s.writeLocked(s.subscribeMessageLocked())
	}

	s.wg.Add(1)
	go s.readLoop(conn, gen)
	if s.cfg.PingInterval > 0 {
		s.wg.Add(1)
		go s.pingLoop(done, s.cfg.PingInterval)
	}

	s.recordGaugesLocked()
	deviceID := s.deviceID
	st := s.statusLocked()
	s.mu.Unlock()

	s.log.Info().Str("device_id", deviceID).Msg("Realtime session connected")
	s.notifyStatus(st)
}

func (s *Session) readLoop(conn Conn, gen uint64) {
	defer s.wg.Done()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.handleClose(gen, err)
			return
		}
		s.handleFrame(gen, data)
	}
}

func (s *Session) handleFrame(gen uint64, data []byte) {
	msg, err := models.DecodeInbound(data)
	if err != nil {
		metrics.RealtimeMessagesDropped.WithLabelValues("malformed").Inc()
		s.log.Warn().Err(err).Int("bytes", len(data)).Msg("Dropping malformed realtime frame")
		return
	}
	metrics.RealtimeMessagesReceived.WithLabelValues(msg.MessageType()).Inc()

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	forward := s.hs.apply(msg)
	s.recordGaugesLocked()
	st := s.statusLocked()
	s.mu.Unlock()

	if forward {
		if s.onMessage != nil {
			s.onMessage(msg.(models.Forwarded))
		}
		return
	}

	if e, ok := msg.(models.ErrorMessage); ok {
		s.log.Warn().Str("error", e.Error).Msg("Realtime server reported an error")
	}
	s.notifyStatus(st)
}

func (s *Session) handleClose(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen || s.transport != transportOpen {
		s.mu.Unlock()
		return
	}

	if isNormalClose(err) {
		s.log.Info().Msg("Realtime connection closed by server")
	} else {
		s.log.Warn().Err(err).Msg("Realtime connection lost")
		s.hs.lastError = err.Error()
	}

	conn := s.detachConnLocked()
	s.resetTransportLocked()
	s.scheduleReconnectLocked()
	st := s.statusLocked()
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	s.notifyStatus(st)
}

func (s *Session) pingLoop(done <-chan struct{}, interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.Ping()
		}
	}
}

// scheduleReconnectLocked arms the reconnect timer if the session is enabled
// and under its attempt budget.
func (s *Session) scheduleReconnectLocked() {
	if !s.enabled {
		return
	}
	if s.reconnectAttempts >= s.cfg.MaxReconnectAttempts {
		s.log.Warn().Int("attempts", s.reconnectAttempts).Msg("Realtime reconnect limit reached; waiting for explicit connect")
		return
	}

	delay := s.cfg.Backoff.Delay(s.reconnectAttempts)
	gen := s.gen
	s.log.Info().Dur("delay", delay).Int("attempt", s.reconnectAttempts+1).Msg("Scheduling realtime reconnect")
	s.reconnectTimer = s.sched.AfterFunc(delay, func() { s.fireReconnect(gen) })
}

func (s *Session) fireReconnect(gen uint64) {
	s.mu.Lock()
	if !s.enabled || gen != s.gen || s.transport != transportIdle {
		s.mu.Unlock()
		return
	}
	s.reconnectTimer = nil
	s.reconnectAttempts++
	metrics.RealtimeReconnectAttempts.Inc()
	s.startDialLocked()
	st := s.statusLocked()
	s.mu.Unlock()

	s.notifyStatus(st)
}

func (s *Session) stopReconnectTimerLocked() {
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
}

// detachConnLocked removes the open connection so it can be closed outside the lock.
func (s *Session) detachConnLocked() Conn {
	conn := s.conn
	s.conn = nil
	if s.connDone != nil {
		close(s.connDone)
		s.connDone = nil
	}
	return conn
}

// resetTransportLocked moves to the closed state and drops queued messages.
func (s *Session) resetTransportLocked() {
	s.transport = transportIdle
	s.hs.closed()
	if n := len(s.queue); n > 0 {
		metrics.RealtimeMessagesDropped.WithLabelValues("closed").Add(float64(n))
		s.log.Debug().Int("count", n).Msg("Discarding queued realtime messages")
	}
	s.queue = nil
	s.recordGaugesLocked()
}

// Close tears the session down: the reconnect timer is cancelled, any
// pending dial is aborted, the connection is closed and the queue dropped.
// Close is idempotent. A later Connect starts a fresh connection.
func (s *Session) Close() {
	s.mu.Lock()
	wasActive := s.enabled || s.transport != transportIdle
	s.enabled = false
	s.stopReconnectTimerLocked()
	if s.cancelDial != nil {
		s.cancelDial()
		s.cancelDial = nil
	}
	s.gen++
	conn := s.detachConnLocked()
	s.resetTransportLocked()
	st := s.statusLocked()
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			s.log.Debug().Err(err).Msg("Realtime connection close")
		}
	}
	s.wg.Wait()

	if wasActive {
		s.log.Info().Msg("Realtime session closed")
		s.notifyStatus(st)
	}
}

// SendMessage writes msg if the connection is open, queues it while a
// connection is being established, and drops it with a warning otherwise.
func (s *Session) SendMessage(msg models.Outbound) {
	data, err := models.EncodeOutbound(msg)
	if err != nil {
		metrics.RealtimeMessagesDropped.WithLabelValues("encode_error").Inc()
		s.log.Warn().Err(err).Msg("Dropping unencodable realtime message")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.transport {
	case transportOpen:
		s.writeDataLocked(msg.MessageType(), data)
	case transportConnecting:
		s.queue = append(s.queue, queuedMessage{msgType: msg.MessageType(), data: data})
		s.recordGaugesLocked()
	default:
		metrics.RealtimeMessagesDropped.WithLabelValues("closed").Inc()
		s.log.Warn().Str("type", msg.MessageType()).Msg("Realtime session not connected; message dropped")
	}
}

func (s *Session) flushQueueLocked() {
	queue := s.queue
	s.queue = nil
	for _, q := range queue {
		s.writeDataLocked(q.msgType, q.data)
	}
	if len(queue) > 0 {
		s.log.Debug().Int("count", len(queue)).Msg("Flushed queued realtime messages")
	}
}

func (s *Session) writeLocked(msg models.Outbound) {
	data, err := models.EncodeOutbound(msg)
	if err != nil {
		metrics.RealtimeMessagesDropped.WithLabelValues("encode_error").Inc()
		s.log.Warn().Err(err).Str("type", msg.MessageType()).Msg("Dropping unencodable realtime message")
		return
	}
	s.writeDataLocked(msg.MessageType(), data)
}

// writeDataLocked writes one frame. A failed write is logged; the reader
// goroutine observes the broken connection and drives reconnection.
func (s *Session) writeDataLocked(msgType string, data []byte) {
	if s.conn == nil {
		metrics.RealtimeMessagesDropped.WithLabelValues("closed").Inc()
		return
	}
	if err := s.conn.WriteMessage(data); err != nil {
		metrics.RealtimeMessagesDropped.WithLabelValues("write_error").Inc()
		s.log.Warn().Err(err).Str("type", msgType).Msg("Realtime write failed")
		return
	}
	metrics.RealtimeMessagesSent.WithLabelValues(msgType).Inc()
}

func (s *Session) subscribeMessageLocked() models.SubscribeDevice {
	return models.SubscribeDevice{
		DeviceID:       s.deviceID,
		UserID:         s.userID,
		OrganizationID: s.orgID,
	}
}

// SetDevice changes the target device. On an open session a fresh
// SUBSCRIBE_DEVICE is sent immediately; otherwise it is sent on connect.
func (s *Session) SetDevice(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deviceID = deviceID
	if deviceID != "" && s.transport == transportOpen {
		s.writeLocked(s.subscribeMessageLocked())
	}
}

// SetIdentity sets the user and organization used for subscriptions and cache warm-up.
func (s *Session) SetIdentity(userID, organizationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.orgID = organizationID
}

// ErrIdentityUnknown is returned by InitializeCache before SetIdentity.
var ErrIdentityUnknown = errors.New("user or organization not known yet")

// InitializeCache asks the server to warm the organization cache. It is a
// no-op returning ErrIdentityUnknown when the identity is not set.
func (s *Session) InitializeCache() error {
	s.mu.Lock()
	userID, orgID := s.userID, s.orgID
	s.mu.Unlock()

	if userID == "" || orgID == "" {
		s.log.Debug().Msg("Skipping cache initialization: identity unknown")
		return ErrIdentityUnknown
	}
	s.SendMessage(models.InitializeCache{UserID: userID, OrganizationID: orgID})
	return nil
}

// RefreshDevice asks the server to re-push data for deviceID, or for the
// subscribed (or targeted) device when deviceID is empty. It reports false
// when no device is known.
func (s *Session) RefreshDevice(deviceID string) bool {
	if deviceID == "" {
		s.mu.Lock()
		deviceID = s.hs.subscribedDevice
		if deviceID == "" {
			deviceID = s.deviceID
		}
		s.mu.Unlock()
	}
	if deviceID == "" {
		return false
	}
	s.SendMessage(models.RefreshDevice{DeviceID: deviceID})
	return true
}

// Ping sends a liveness probe. The PONG's cache stats show up in Status.
func (s *Session) Ping() {
	s.SendMessage(models.Ping{Timestamp: s.now().UnixMilli()})
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	return Status{
		State:             s.hs.state,
		Connected:         s.transport == transportOpen,
		CacheReady:        s.hs.cacheReady,
		ReconnectAttempts: s.reconnectAttempts,
		QueueLength:       len(s.queue),
		LastError:         s.hs.lastError,
		ClientID:          s.hs.clientID,
		SubscribedDevice:  s.hs.subscribedDevice,
		CacheStats:        maps.Clone(s.hs.cacheStats),
	}
}

func (s *Session) recordGaugesLocked() {
	metrics.RealtimeConnectionState.Set(float64(s.hs.state))
	metrics.RealtimeQueueDepth.Set(float64(len(s.queue)))
}

func (s *Session) notifyStatus(st Status) {
	if s.onStatus != nil {
		s.onStatus(st)
	}
}
