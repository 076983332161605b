// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/sensorboard/internal/editor"
	"github.com/tomtom215/sensorboard/internal/logging"
	"github.com/tomtom215/sensorboard/internal/models"
	"github.com/tomtom215/sensorboard/internal/snapshot"
	"github.com/tomtom215/sensorboard/internal/widgetapi"
)

var _ editor.BatchClient = (*widgetapi.Client)(nil)

// ErrValidationFailed is returned when the edited dashboard has blocking issues.
var ErrValidationFailed = errors.New("dashboard validation failed")

type editOptions struct {
	deviceID string
	opsPath  string
	dryRun   bool
	recover  string
}

// editReport is printed on stdout after an edit run.
type editReport struct {
	DeviceID   string                  `json:"deviceId"`
	Recovered  bool                    `json:"recovered"`
	Discarded  bool                    `json:"discarded,omitempty"`
	Applied    int                     `json:"applied"`
	Validation editor.ValidationResult `json:"validation"`
	Request    *models.BatchRequest    `json:"request,omitempty"`
	Response   *models.BatchResponse   `json:"response,omitempty"`
	Widgets    []models.Widget         `json:"widgets,omitempty"`
	Failures   []models.OperationError `json:"failures,omitempty"`
}

func newEditCmd(a *app) *cobra.Command {
	var opts editOptions
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Apply widget operations to a device dashboard",
		Long: `Fetch the device's widgets, mount the editor, replay a JSON array of
operations (add, update, move, delete, duplicate) and save them as one
batch. Every change is snapshotted locally, so an interrupted run can be
recovered by the next edit. When the changes cannot be saved, the
command asks before discarding them.

Operations file example:

  [
    {"op": "add", "widget": {"name": "Boiler", "definition": {"type": "gauge"}}},
    {"op": "move", "id": "w-17", "position": {"x": 0, "y": 4, "width": 4, "height": 3}},
    {"op": "delete", "id": "w-3"}
  ]`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEdit(cmd.Context(), a, opts, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&opts.deviceID, "device", "", "device ID whose dashboard is edited")
	cmd.Flags().StringVar(&opts.opsPath, "ops", "", "operations file (- reads stdin)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the batch request instead of saving")
	cmd.Flags().StringVar(&opts.recover, "recover", "ask", "unsaved snapshot handling: ask, yes or no")
	_ = cmd.MarkFlagRequired("device")
	_ = cmd.MarkFlagRequired("ops")
	return cmd
}

func (a *app) prompter(mode string, prompts io.Writer) (snapshot.Prompter, error) {
	switch mode {
	case "ask":
		return newTerminalPrompter(a.in, prompts), nil
	case "yes":
		return snapshot.AutoPrompter{Recover: true}, nil
	case "no":
		return snapshot.AutoPrompter{Recover: false}, nil
	default:
		return nil, fmt.Errorf("--recover must be ask, yes or no, got %q", mode)
	}
}

func (a *app) readOperations(path string) ([]editor.Operation, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(a.in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read operations: %w", err)
	}
	return editor.DecodeOperations(data, time.Now())
}

func runEdit(ctx context.Context, a *app, opts editOptions, prompts io.Writer) error {
	prompter, err := a.prompter(opts.recover, prompts)
	if err != nil {
		return err
	}
	ops, err := a.readOperations(opts.opsPath)
	if err != nil {
		return err
	}

	client, err := widgetapi.NewClient(a.cfg.API)
	if err != nil {
		return err
	}
	widgets, err := client.ListWidgets(ctx, opts.deviceID)
	if err != nil {
		return err
	}

	store, err := snapshot.OpenBadgerStore(a.cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Close snapshot store")
		}
	}()

	snapshots := snapshot.NewManager(store, opts.deviceID, snapshot.Options{
		KeyOverride: a.cfg.Editor.StorageKey,
		MaxAge:      a.cfg.Editor.SnapshotMaxAge,
	})

	// A dry run must not leave a snapshot behind.
	engOpts := editor.Options{
		Client:    client,
		Snapshots: snapshots,
		Prompter:  prompter,
	}
	if !opts.dryRun {
		engOpts.AutoSave = a.cfg.Editor.AutoSave
		engOpts.AutoSaveInterval = a.cfg.Editor.AutoSaveInterval
	}

	eng, err := editor.Mount(opts.deviceID, widgets, engOpts)
	if err != nil {
		return err
	}
	defer eng.Close()

	for _, op := range ops {
		eng.Apply(op)
	}

	report := editReport{
		DeviceID:   opts.deviceID,
		Recovered:  eng.Recovered(),
		Applied:    len(ops),
		Validation: eng.Validate(),
	}

	if !report.Validation.Valid() {
		if !opts.dryRun {
			report.Discarded = discardIfConfirmed(eng, prompter)
		}
		if err := writeJSON(a.out, report); err != nil {
			return err
		}
		return fmt.Errorf("%w: %d errors", ErrValidationFailed, len(report.Validation.Errors))
	}

	if opts.dryRun {
		req := eng.BatchRequest().Normalize()
		report.Request = &req
		return writeJSON(a.out, report)
	}

	resp, err := eng.SaveChanges(ctx)
	var batchErr *editor.BatchFailedError
	switch {
	case errors.As(err, &batchErr):
		report.Response = resp
		report.Failures = batchErr.Errors
		report.Discarded = discardIfConfirmed(eng, prompter)
		if werr := writeJSON(a.out, report); werr != nil {
			return werr
		}
		return err
	case err != nil:
		return err
	}

	report.Response = resp
	report.Widgets = eng.Widgets()
	return writeJSON(a.out, report)
}

// discardIfConfirmed runs the leave guard over work that could not be
// saved. Declining keeps the snapshot for the next edit.
func discardIfConfirmed(eng *editor.Engine, p snapshot.Prompter) bool {
	if eng.CanDiscard() || !eng.ConfirmLeave(p) {
		return false
	}
	eng.CancelChanges()
	return true
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
