// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/snapshot"
)

func newSnapshotCmd(a *app) *cobra.Command {
	var deviceID string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect or discard unsaved editor snapshots",
	}
	cmd.PersistentFlags().StringVar(&deviceID, "device", "", "device ID of the snapshot")
	_ = cmd.MarkPersistentFlagRequired("device")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the unsaved snapshot for a device",
		Long: `Print the stored snapshot as JSON. Snapshots that are expired, corrupt,
versioned differently or written for another device are discarded on read.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.withSnapshots(deviceID, func(m *snapshot.Manager) error {
				snap, ok := m.Load()
				if !ok {
					_, err := fmt.Fprintf(a.out, "no snapshot for %s\n", deviceID)
					return err
				}
				return writeJSON(a.out, snap)
			})
		},
	}

	discard := &cobra.Command{
		Use:   "discard",
		Short: "Delete the unsaved snapshot for a device",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.withSnapshots(deviceID, func(m *snapshot.Manager) error {
				m.Clear()
				_, err := fmt.Fprintf(a.out, "discarded snapshot %s\n", m.Key())
				return err
			})
		},
	}

	cmd.AddCommand(show, discard)
	return cmd
}

// withSnapshots opens the configured store for the duration of fn.
func (a *app) withSnapshots(deviceID string, fn func(*snapshot.Manager) error) error {
	store, err := snapshot.OpenBadgerStore(a.cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Close snapshot store")
		}
	}()

	return fn(snapshot.NewManager(store, deviceID, snapshot.Options{
		KeyOverride: a.cfg.Editor.StorageKey,
		MaxAge:      a.cfg.Editor.SnapshotMaxAge,
	}))
}
