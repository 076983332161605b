// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package devserver

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/tomtom215/sensorboard/internal/config"
	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/metrics"
	"github.com/tomtom215/sensorboard/internal/models"
)

// maxBatchBody bounds POST bodies on the batch route.
const maxBatchBody = 1 << 20

// Server is a local implementation of the dashboard backend contract:
// the /api/ws protocol plus the widget REST routes.
type Server struct {
	cfg        config.DevServerConfig
	hub        *Hub
	store      *WidgetStore
	auth       *TokenAuth
	upgrader   websocket.Upgrader
	cacheReady atomic.Bool
	now        func() time.Time
}

// New builds a server from cfg. The hub must be run separately
// (Hub().RunWithContext) before clients can connect.
func New(cfg config.DevServerConfig) *Server {
	s := &Server{
		cfg:   cfg,
		hub:   NewHub(),
		store: NewWidgetStore(cfg.SeedDevices...),
		now:   time.Now,
	}
	if cfg.JWTSecret != "" {
		s.auth = NewTokenAuth(cfg.JWTSecret)
	}
	s.cacheReady.Store(cfg.WarmCache)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      s.checkOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return s
}

// Hub returns the connection hub.
func (s *Server) Hub() *Hub { return s.hub }

// Store returns the widget store.
func (s *Server) Store() *WidgetStore { return s.store }

// Auth returns the token authenticator, or nil when auth is disabled.
func (s *Server) Auth() *TokenAuth { return s.auth }

// Publish pushes an arbitrary message to the subscribers of deviceID.
func (s *Server) Publish(deviceID, msgType string, payload any) error {
	if msgType == "" {
		return models.ErrMissingMessageType
	}
	frame, err := EncodeFrame(msgType, payload)
	if err != nil {
		return err
	}
	if !s.hub.Publish(deviceID, frame) {
		return errors.New("publish queue full")
	}
	return nil
}

// Handler returns the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/ws", s.handleWebSocket)

	r.Route("/api/devices/{deviceId}", func(r chi.Router) {
		if s.cfg.HTTPRateLimit > 0 {
			r.Use(httprate.Limit(
				s.cfg.HTTPRateLimit,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				}),
			))
		}
		r.Use(recordRequests)
		if s.auth != nil {
			r.Use(s.auth.Middleware)
		}

		r.Get("/widgets", s.handleListWidgets)
		r.Post("/widgets/batch", s.handleBatch)
	})

	return r
}

// checkOrigin admits non-browser clients (no Origin) and configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.hub.Stopped():
		writeError(w, http.StatusServiceUnavailable, "websocket hub stopped")
		return
	default:
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	var limiter *rate.Limiter
	if s.cfg.MessageRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.MessageRateLimit), max(s.cfg.MessageBurst, 1))
	}
	c := newClient(s.hub, conn, uuid.NewString(), limiter, s.handleFrame)
	s.reply(c, models.MessageTypeConnectionEstablished, models.ConnectionEstablished{
		ClientID:   c.ClientID(),
		CacheReady: s.cacheReady.Load(),
	})

	select {
	case s.hub.Register <- c:
	case <-s.hub.Stopped():
		_ = conn.Close()
		return
	}
	c.start()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"clients":    s.hub.ClientCount(),
		"cacheReady": s.cacheReady.Load(),
	})
}

func (s *Server) handleListWidgets(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")
	widgets, ok := s.store.List(deviceID)
	if !ok {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, widgets)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")

	var req models.BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, status, ok := s.store.ApplyBatch(deviceID, req)
	if !ok {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}

	logging.Info().
		Str("device_id", deviceID).
		Int("successful", resp.Successful).
		Int("failed", resp.Failed).
		Msg("batch applied")

	if resp.Successful > 0 {
		if err := s.Publish(deviceID, MessageTypeWidgetsChanged, map[string]any{
			"deviceId": deviceID,
			"created":  resp.Created,
			"updated":  resp.Updated,
			"deleted":  resp.Deleted,
		}); err != nil {
			logging.Warn().Err(err).Str("device_id", deviceID).Msg("failed to publish widget change")
		}
	}
	writeJSON(w, status, resp)
}

// recordRequests exports per-route request metrics.
func recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordDevServerRequest(r.Method, route, status, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
