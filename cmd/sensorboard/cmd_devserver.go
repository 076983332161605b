// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/sensorboard/internal/devserver"
	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/supervisor"
	"github.com/tomtom215/sensorboard/internal/supervisor/services"
	"github.com/tomtom215/sensorboard/internal/validation"
)

type devServerOptions struct {
	addr       string
	seed       []string
	issueToken time.Duration
}

func newDevServerCmd(a *app) *cobra.Command {
	var opts devServerOptions
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local stand-in for the dashboard backend",
		Long: `Serve the /api/ws WebSocket protocol and the widget REST routes from
memory. Useful for trying watch and edit without a real backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDevServer(cmd.Context(), a, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides devserver.addr)")
	cmd.Flags().StringSliceVar(&opts.seed, "seed", nil, "device IDs to pre-register")
	cmd.Flags().DurationVar(&opts.issueToken, "issue-token", 0, "print a bearer token valid this long (requires devserver.jwt_secret)")
	return cmd
}

func runDevServer(ctx context.Context, a *app, opts devServerOptions) error {
	cfg := a.cfg.DevServer
	if opts.addr != "" {
		if err := validation.ValidateVar("addr", opts.addr, "hostname_port"); err != nil {
			return err
		}
		cfg.Addr = opts.addr
	}
	cfg.SeedDevices = append(cfg.SeedDevices, opts.seed...)

	srv := devserver.New(cfg)

	if opts.issueToken > 0 {
		if srv.Auth() == nil {
			return errors.New("--issue-token needs devserver.jwt_secret")
		}
		token, err := srv.Auth().Issue("sensorboard-cli", opts.issueToken)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		if _, err := fmt.Fprintf(a.out, "%s\n", token); err != nil {
			return err
		}
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	tree.AddRealtimeService(services.NewHubService(srv.Hub()))
	tree.AddAPIService(services.NewHTTPServerService(cfg.Addr, srv.Handler(), 10*time.Second))

	logging.Info().
		Str("addr", cfg.Addr).
		Strs("devices", cfg.SeedDevices).
		Bool("auth", srv.Auth() != nil).
		Msg("Starting dev server")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logging.Warn().Int("services", len(report)).Msg("Services did not stop within the shutdown timeout")
	}
	return nil
}
