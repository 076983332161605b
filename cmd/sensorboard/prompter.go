// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tomtom215/sensorboard/internal/models"
	"github.com/tomtom215/sensorboard/internal/snapshot"
)

var _ snapshot.Prompter = (*terminalPrompter)(nil)

// terminalPrompter asks yes/no questions on a terminal. Anything other
// than y or yes, including EOF, is a no.
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *terminalPrompter) ConfirmRecovery(snap models.PersistedWidgetState) bool {
	written := time.UnixMilli(snap.Timestamp).Format(time.RFC3339)
	return p.ask(fmt.Sprintf(
		"Unsaved changes for %s from %s (%d pending, %d deleted). Recover them?",
		snap.DeviceID, written, len(snap.State.PendingChanges), len(snap.State.DeletedWidgets),
	))
}

func (p *terminalPrompter) ConfirmDiscard() bool {
	return p.ask("You have unsaved changes. Discard them?")
}

func (p *terminalPrompter) ask(question string) bool {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
