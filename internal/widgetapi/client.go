// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package widgetapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sensorboard/internal/config"
	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/models"
)

const (
	opSaveBatch   = "save widget batch"
	opListWidgets = "list widgets"

	// maxErrorBodySize bounds how much of an error response is read.
	maxErrorBodySize = 64 * 1024
	// maxBodySize bounds successful responses.
	maxBodySize = 16 << 20
)

// rawResponse is what crosses the breaker: status plus body, already read.
type rawResponse struct {
	status int
	body   []byte
}

// Client talks to the batch widget REST API. It is safe for concurrent use.
type Client struct {
	baseURL     *url.URL
	token       string
	http        *http.Client
	breakerName string
	breaker     *breaker
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client (timeout from config).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBreakerName sets the breaker's metric label.
func WithBreakerName(name string) Option {
	return func(c *Client) { c.breakerName = name }
}

// NewClient builds a client for cfg.BaseURL.
func NewClient(cfg config.APIConfig, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q must be http or https", cfg.BaseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("api base url %q has no host", cfg.BaseURL)
	}

	c := &Client{
		baseURL:     base,
		token:       cfg.Token,
		http:        &http.Client{Timeout: cfg.Timeout},
		breakerName: DefaultBreakerName,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker(c.breakerName, cfg)
	return c, nil
}

// BreakerState returns closed, half-open or open.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

// SaveBatch posts req to /api/devices/{deviceID}/widgets/batch.
//
// 200 and 207 return the parsed response. A 400 whose body is a batch
// response (every operation failed) is also returned without error so the
// caller can read the per-item errors. Any other outcome is a
// *WidgetOperationError.
func (c *Client) SaveBatch(ctx context.Context, deviceID string, req models.BatchRequest) (*models.BatchResponse, error) {
	body, err := json.Marshal(req.Normalize())
	if err != nil {
		return nil, &WidgetOperationError{Op: opSaveBatch, DeviceID: deviceID, Err: fmt.Errorf("encode request: %w", err)}
	}

	raw, err := c.do(ctx, http.MethodPost, c.devicePath(deviceID, "widgets", "batch"), body)
	if err != nil {
		return nil, c.wrap(opSaveBatch, deviceID, err)
	}

	switch raw.status {
	case http.StatusOK, http.StatusMultiStatus:
		var resp models.BatchResponse
		if err := json.Unmarshal(raw.body, &resp); err != nil {
			return nil, &WidgetOperationError{Op: opSaveBatch, DeviceID: deviceID, Status: raw.status, Err: fmt.Errorf("decode response: %w", err)}
		}
		return &resp, nil
	case http.StatusBadRequest:
		if resp, ok := decodeBatchResponse(raw.body); ok {
			return resp, nil
		}
	}
	return nil, statusFailure(opSaveBatch, deviceID, raw)
}

// ListWidgets fetches the device's current widgets.
func (c *Client) ListWidgets(ctx context.Context, deviceID string) ([]models.Widget, error) {
	raw, err := c.do(ctx, http.MethodGet, c.devicePath(deviceID, "widgets"), nil)
	if err != nil {
		return nil, c.wrap(opListWidgets, deviceID, err)
	}
	if raw.status != http.StatusOK {
		return nil, statusFailure(opListWidgets, deviceID, raw)
	}

	var widgets []models.Widget
	if err := json.Unmarshal(raw.body, &widgets); err != nil {
		return nil, &WidgetOperationError{Op: opListWidgets, DeviceID: deviceID, Status: raw.status, Err: fmt.Errorf("decode response: %w", err)}
	}
	if widgets == nil {
		widgets = []models.Widget{}
	}
	return widgets, nil
}

func (c *Client) devicePath(deviceID string, parts ...string) string {
	segs := append([]string{c.baseURL.Path, "api", "devices", url.PathEscape(deviceID)}, parts...)
	u := *c.baseURL
	u.Path = ""
	u.RawPath = ""
	return u.String() + strings.Join(segs, "/")
}

// do performs one request under the breaker. A 5xx comes back as both a
// rawResponse and a *statusError.
func (c *Client) do(ctx context.Context, method, reqURL string, body []byte) (*rawResponse, error) {
	return c.breaker.execute(func() (*rawResponse, error) {
		var rdr io.Reader = http.NoBody
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, rdr)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		limit := int64(maxBodySize)
		if resp.StatusCode >= 300 && resp.StatusCode != http.StatusBadRequest {
			limit = maxErrorBodySize
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		raw := &rawResponse{status: resp.StatusCode, body: data}
		if resp.StatusCode >= 500 {
			return raw, &statusError{raw: raw}
		}
		return raw, nil
	})
}

func (c *Client) wrap(op, deviceID string, err error) error {
	var se *statusError
	if errors.As(err, &se) {
		return statusFailure(op, deviceID, se.raw)
	}
	if rejected(err) {
		err = fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	logging.Warn().Str("device_id", deviceID).Str("op", op).Err(err).Msg("Widget API request failed")
	return &WidgetOperationError{Op: op, DeviceID: deviceID, Err: err}
}

func statusFailure(op, deviceID string, raw *rawResponse) *WidgetOperationError {
	return &WidgetOperationError{
		Op:       op,
		DeviceID: deviceID,
		Status:   raw.status,
		Message:  serverMessage(raw.body),
	}
}

// decodeBatchResponse accepts body only if it carries the batch counters.
func decodeBatchResponse(body []byte) (*models.BatchResponse, bool) {
	var shape struct {
		Successful *int `json:"successful"`
		Failed     *int `json:"failed"`
	}
	if err := json.Unmarshal(body, &shape); err != nil || shape.Successful == nil || shape.Failed == nil {
		return nil, false
	}
	var resp models.BatchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// serverMessage extracts {"error": ...} or {"message": ...}, falling back to
// the trimmed body text.
func serverMessage(body []byte) string {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512] + "... (truncated)"
	}
	return msg
}
