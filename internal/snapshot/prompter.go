// Sensorboard - Real-time IoT Device Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorboard

package snapshot

import (
	"github.com/tomtom215/sensorboard/internal/models"
)

// Prompter asks the user to confirm recovery and discard decisions.
type Prompter interface {
	// ConfirmRecovery asks whether to restore an unsaved editing session.
	ConfirmRecovery(snap models.PersistedWidgetState) bool
	// ConfirmDiscard asks whether unsaved changes may be thrown away.
	ConfirmDiscard() bool
}

// AutoPrompter answers every prompt with fixed values.
type AutoPrompter struct {
	Recover bool
	Discard bool
}

// ConfirmRecovery implements Prompter.
func (p AutoPrompter) ConfirmRecovery(models.PersistedWidgetState) bool { return p.Recover }

// ConfirmDiscard implements Prompter.
func (p AutoPrompter) ConfirmDiscard() bool { return p.Discard }
