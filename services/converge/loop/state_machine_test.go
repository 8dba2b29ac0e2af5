// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhaseMachine_ValidTransitions(t *testing.T) {
	m := NewPhaseMachine()

	valid := []struct{ from, to Phase }{
		{PhaseCapturing, PhaseComparing},
		{PhaseCapturing, PhaseCapturing},
		{PhaseCapturing, PhaseDone},
		{PhaseComparing, PhaseAnalyzing},
		{PhaseComparing, PhaseCapturing},
		{PhaseAnalyzing, PhasePatching},
		{PhaseAnalyzing, PhaseDone},
		{PhasePatching, PhaseWaitingHMR},
		{PhasePatching, PhaseCapturing},
		{PhaseWaitingHMR, PhaseCapturing},
		{PhaseWaitingHMR, PhaseDone},
	}

	for _, tr := range valid {
		assert.True(t, m.CanTransition(tr.from, tr.to),
			"%s -> %s should be valid", tr.from, tr.to)
		assert.NoError(t, m.Transition(tr.from, tr.to))
	}
}

func TestPhaseMachine_InvalidTransitions(t *testing.T) {
	m := NewPhaseMachine()

	invalid := []struct{ from, to Phase }{
		{PhaseCapturing, PhasePatching},
		{PhaseComparing, PhaseDone},
		{PhaseAnalyzing, PhaseCapturing},
		{PhaseWaitingHMR, PhasePatching},
		{PhaseDone, PhaseCapturing},
		{PhaseDone, PhaseDone},
	}

	for _, tr := range invalid {
		assert.False(t, m.CanTransition(tr.from, tr.to),
			"%s -> %s should be invalid", tr.from, tr.to)
		err := m.Transition(tr.from, tr.to)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}
}

func TestPhaseMachine_DoneIsTerminal(t *testing.T) {
	m := NewPhaseMachine()

	for _, to := range AllPhases() {
		assert.False(t, m.CanTransition(PhaseDone, to),
			"done must have no outgoing transitions, found done -> %s", to)
	}
	assert.True(t, PhaseDone.IsTerminal())
	assert.False(t, PhaseCapturing.IsTerminal())
}

func TestPhaseMachine_UnknownPhase(t *testing.T) {
	m := NewPhaseMachine()
	assert.False(t, m.CanTransition(Phase("rebooting"), PhaseCapturing))
}
