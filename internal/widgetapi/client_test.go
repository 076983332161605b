// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package widgetapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/sensorboard/internal/config"
	"github.com/tomtom215/sensorboard/internal/metrics"
	"github.com/tomtom215/sensorboard/internal/models"
)

func testAPIConfig(baseURL string) config.APIConfig {
	return config.APIConfig{
		BaseURL:                 baseURL,
		Token:                   "secret",
		Timeout:                 5 * time.Second,
		BreakerMaxRequests:      1,
		BreakerInterval:         time.Minute,
		BreakerTimeout:          time.Minute,
		BreakerFailureThreshold: 3,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(testAPIConfig(srv.URL), WithBreakerName(t.Name()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_BaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"http", "http://localhost:8080", false},
		{"https with trailing slash", "https://iot.example.com/", false},
		{"websocket scheme", "ws://localhost:8080", true},
		{"no host", "http://", true},
		{"garbage", "::not a url", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewClient(testAPIConfig(tt.baseURL), WithBreakerName(t.Name()))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
		})
	}
}

func TestSaveBatch_Request(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotType, gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		writeJSON(w, http.StatusOK, models.BatchResponse{Successful: 1, Deleted: []string{"w1"}})
	})

	resp, err := c.SaveBatch(context.Background(), "dev 1", models.BatchRequest{Delete: []string{"w1"}})
	if err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}
	if resp.Successful != 1 || len(resp.Deleted) != 1 {
		t.Errorf("response = %+v", resp)
	}
	if gotPath != "POST /api/devices/dev%201/widgets/batch" {
		t.Errorf("request = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotBody != `{"create":[],"update":[],"delete":["w1"]}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestSaveBatch_NoTokenNoHeader(t *testing.T) {
	t.Parallel()

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, models.BatchResponse{})
	}))
	defer srv.Close()

	cfg := testAPIConfig(srv.URL)
	cfg.Token = ""
	c, err := NewClient(cfg, WithBreakerName(t.Name()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.SaveBatch(context.Background(), "d", models.BatchRequest{}); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want none", gotAuth)
	}
}

func TestSaveBatch_StatusHandling(t *testing.T) {
	t.Parallel()

	partial := models.BatchResponse{
		Successful: 1,
		Failed:     1,
		Errors:     []models.OperationError{{Operation: models.OperationUpdate, ID: "w2", Error: "not found"}},
		Created:    []models.CreatedWidget{{TempID: "widget-1", ID: "srv-1"}},
	}
	total := models.BatchResponse{
		Failed: 2,
		Errors: []models.OperationError{{Operation: models.OperationCreate, Error: "bad"}, {Operation: models.OperationDelete, ID: "x", Error: "gone"}},
	}

	tests := []struct {
		name       string
		status     int
		body       string
		wantFailed int
		wantStatus int
		wantMsg    string
	}{
		{name: "207 partial", status: http.StatusMultiStatus, body: mustJSON(partial), wantFailed: 1},
		{name: "400 batch body", status: http.StatusBadRequest, body: mustJSON(total), wantFailed: 2},
		{name: "400 plain error", status: http.StatusBadRequest, body: `{"error":"malformed body"}`, wantStatus: 400, wantMsg: "malformed body"},
		{name: "401", status: http.StatusUnauthorized, body: `{"error":"invalid token"}`, wantStatus: 401, wantMsg: "invalid token"},
		{name: "404", status: http.StatusNotFound, body: `{"message":"device not found"}`, wantStatus: 404, wantMsg: "device not found"},
		{name: "500 text", status: http.StatusInternalServerError, body: "boom\n", wantStatus: 500, wantMsg: "boom"},
		{name: "418 other", status: http.StatusTeapot, body: ``, wantStatus: 418},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			resp, err := c.SaveBatch(context.Background(), "dev-1", models.BatchRequest{Delete: []string{"x"}})
			if tt.wantStatus == 0 {
				if err != nil {
					t.Fatalf("SaveBatch() error = %v", err)
				}
				if resp.Failed != tt.wantFailed || len(resp.Errors) != tt.wantFailed {
					t.Errorf("response = %+v", resp)
				}
				return
			}

			var opErr *WidgetOperationError
			if !errors.As(err, &opErr) {
				t.Fatalf("error = %v, want *WidgetOperationError", err)
			}
			if opErr.Status != tt.wantStatus || opErr.Message != tt.wantMsg {
				t.Errorf("error = %+v", opErr)
			}
			if opErr.DeviceID != "dev-1" {
				t.Errorf("DeviceID = %q", opErr.DeviceID)
			}
		})
	}
}

func TestSaveBatch_DecodeFailure(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "{not json")
	})

	_, err := c.SaveBatch(context.Background(), "d", models.BatchRequest{})
	var opErr *WidgetOperationError
	if !errors.As(err, &opErr) || opErr.Err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("error = %v", err)
	}
}

func TestSaveBatch_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(testAPIConfig(url), WithBreakerName(t.Name()))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.SaveBatch(context.Background(), "d", models.BatchRequest{})
	var opErr *WidgetOperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("error = %v, want *WidgetOperationError", err)
	}
	if opErr.Status != 0 || opErr.Unwrap() == nil {
		t.Errorf("error = %+v, want transport failure with cause", opErr)
	}
}

func TestSaveBatch_ContextCanceled(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SaveBatch(ctx, "d", models.BatchRequest{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestBreaker_OpensOnServerErrorsOnly(t *testing.T) {
	t.Parallel()

	var status atomic.Int32
	status.Store(http.StatusNotFound)
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
	})
	ctx := context.Background()

	// 4xx responses never trip the breaker.
	for i := 0; i < 5; i++ {
		_, _ = c.SaveBatch(ctx, "d", models.BatchRequest{})
	}
	if c.BreakerState() != "closed" {
		t.Fatalf("state after 404s = %s", c.BreakerState())
	}

	status.Store(http.StatusServiceUnavailable)
	for i := 0; i < 3; i++ {
		_, _ = c.SaveBatch(ctx, "d", models.BatchRequest{})
	}
	if c.BreakerState() != "open" {
		t.Fatalf("state after 503s = %s", c.BreakerState())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues(t.Name())); got != 2 {
		t.Errorf("circuit_breaker_state = %v, want 2", got)
	}

	before := hits.Load()
	_, err := c.SaveBatch(ctx, "d", models.BatchRequest{})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	if hits.Load() != before {
		t.Error("open breaker should not reach the server")
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues(t.Name(), "rejected")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
}

func TestListWidgets(t *testing.T) {
	t.Parallel()

	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		writeJSON(w, http.StatusOK, []models.Widget{{
			ID:         "w1",
			Name:       "Temp",
			Definition: models.WidgetDefinition{Type: models.WidgetTypeGauge},
			Position:   &models.Position{Width: 3, Height: 3},
		}})
	})

	widgets, err := c.ListWidgets(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("ListWidgets() error = %v", err)
	}
	if gotPath != "GET /api/devices/dev-1/widgets" {
		t.Errorf("request = %q", gotPath)
	}
	if len(widgets) != 1 || widgets[0].ID != "w1" || widgets[0].Position.Width != 3 {
		t.Errorf("widgets = %+v", widgets)
	}
}

func TestListWidgets_Errors(t *testing.T) {
	t.Parallel()

	t.Run("null body is empty list", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "null")
		})
		widgets, err := c.ListWidgets(context.Background(), "d")
		if err != nil || widgets == nil || len(widgets) != 0 {
			t.Errorf("ListWidgets() = %v, %v", widgets, err)
		}
	})

	t.Run("404", func(t *testing.T) {
		t.Parallel()
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown device"})
		})
		_, err := c.ListWidgets(context.Background(), "d")
		var opErr *WidgetOperationError
		if !errors.As(err, &opErr) || !opErr.NotFound() {
			t.Fatalf("error = %v", err)
		}
		if !strings.Contains(err.Error(), "unknown device") {
			t.Errorf("Error() = %q", err.Error())
		}
	})
}

func TestClient_BasePathPrefix(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, "[]")
	}))
	defer srv.Close()

	c, err := NewClient(testAPIConfig(srv.URL+"/iot/"), WithBreakerName(t.Name()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListWidgets(context.Background(), "d"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/iot/api/devices/d/widgets" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestWidgetOperationError_Message(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  *WidgetOperationError
		want string
	}{
		{&WidgetOperationError{Op: "save widget batch", DeviceID: "d", Status: 401, Message: "nope"}, "save widget batch for device d failed with status 401: nope"},
		{&WidgetOperationError{Op: "list widgets", DeviceID: "d", Status: 500}, "list widgets for device d failed with status 500"},
		{&WidgetOperationError{Op: "list widgets", DeviceID: "d", Err: io.ErrUnexpectedEOF}, "list widgets for device d: unexpected EOF"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
