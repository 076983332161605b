// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/models"
	"github.com/tomtom215/sensorboard/internal/realtime"
	"github.com/tomtom215/sensorboard/internal/supervisor"
	"github.com/tomtom215/sensorboard/internal/supervisor/services"
)

type watchOptions struct {
	deviceID  string
	initCache bool
	duration  time.Duration
}

func newWatchCmd(a *app) *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live messages for a device",
		Long: `Open the dashboard WebSocket, subscribe to a device and print every
forwarded message as one JSON line on stdout. The session reconnects with
backoff and is restarted by the supervisor once its attempts run out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), a, opts)
		},
	}
	cmd.Flags().StringVar(&opts.deviceID, "device", "", "device ID to subscribe to")
	cmd.Flags().BoolVar(&opts.initCache, "init-cache", false, "send INITIALIZE_CACHE whenever the connection is established")
	cmd.Flags().DurationVar(&opts.duration, "for", 0, "stop after this long (0 runs until interrupted)")
	_ = cmd.MarkFlagRequired("device")
	return cmd
}

// lineWriter serializes forwarded frames onto out, one compact JSON
// document per line.
type lineWriter struct {
	mu  sync.Mutex
	out io.Writer
	buf bytes.Buffer
}

func (w *lineWriter) write(m models.Forwarded) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Reset()
	if err := json.Compact(&w.buf, m.Raw); err != nil {
		logging.Warn().Err(err).Str("type", m.Type).Msg("Skipping unprintable message")
		return
	}
	w.buf.WriteByte('\n')
	if _, err := w.out.Write(w.buf.Bytes()); err != nil {
		logging.Debug().Err(err).Msg("Write forwarded message")
	}
}

func runWatch(ctx context.Context, a *app, opts watchOptions) error {
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	rcfg := realtime.ConfigFromSettings(a.cfg.Realtime, a.cfg.Identity)
	rcfg.DeviceID = opts.deviceID

	lines := &lineWriter{out: a.out}
	established := make(chan struct{}, 1)
	var (
		stateMu   sync.Mutex
		lastState realtime.State
	)

	sess, err := realtime.NewSession(rcfg,
		realtime.WithMessageHandler(lines.write),
		realtime.WithStatusListener(func(st realtime.Status) {
			stateMu.Lock()
			changed := st.State != lastState
			lastState = st.State
			stateMu.Unlock()
			if !changed {
				return
			}
			logging.Info().
				Str("device_id", opts.deviceID).
				Str("state", st.State.String()).
				Int("attempt", st.ReconnectAttempts).
				Msg("Realtime session state changed")
			if st.State == realtime.StateEstablished {
				select {
				case established <- struct{}{}:
				default:
				}
			}
		}),
	)
	if err != nil {
		return err
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	tree.AddRealtimeService(services.NewSessionService("watch:"+opts.deviceID, sess, rcfg.MaxReconnectAttempts, 0))

	if opts.initCache {
		go warmCache(ctx, sess, established)
	}

	logging.Info().
		Str("device_id", opts.deviceID).
		Str("endpoint", sess.Endpoint()).
		Msg("Watching device")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func warmCache(ctx context.Context, sess *realtime.Session, established <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-established:
			if err := sess.InitializeCache(); err != nil {
				logging.Warn().Err(err).Msg("Cache warm-up not sent")
			}
		}
	}
}
