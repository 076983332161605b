// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

// Package main is the sensorboard command line tool.
//
// It drives the dashboard client packages from a terminal:
//
//	sensorboard watch --device boiler-1 --init-cache
//	sensorboard edit --device boiler-1 --ops changes.json --dry-run
//	sensorboard snapshot show --device boiler-1
//	sensorboard devserver --issue-token 24h
//
// # Configuration
//
// Settings load through koanf: built-in defaults, then the YAML file named
// by --config (or CONFIG_PATH, sensorboard.yaml, config.yaml,
// /etc/sensorboard/config.yaml), then environment variables such as
// SENSORBOARD_REALTIME_URL, SENSORBOARD_API_TOKEN and LOG_LEVEL.
//
// # Signals
//
// SIGINT and SIGTERM cancel the command context. Long-running commands
// (watch, devserver) stop their supervisor tree and exit cleanly.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/sensorboard/internal/config"
	"github.com/tomtom215/sensorboard/internal/logging"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	cfg        *config.Config
	out        io.Writer
	in         io.Reader
}

func newRootCmd(out io.Writer, in io.Reader) *cobra.Command {
	a := &app{out: out, in: in}

	root := &cobra.Command{
		Use:   "sensorboard",
		Short: "Sensorboard - real-time IoT device dashboards",
		Long: `Sensorboard watches live device data over the dashboard WebSocket,
edits dashboard widgets in batches with crash-safe local snapshots, and can
run a local stand-in for the dashboard backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.loadConfig()
		},
	}
	root.SetOut(out)
	root.SetIn(in)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: CONFIG_PATH or sensorboard.yaml)")

	root.AddCommand(
		newWatchCmd(a),
		newEditCmd(a),
		newSnapshotCmd(a),
		newDevServerCmd(a),
	)
	return root
}

func (a *app) loadConfig() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.LoadWithKoanf()
	}
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	a.cfg = cfg
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(os.Stdout, os.Stdin).ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
