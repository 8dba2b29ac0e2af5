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
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for a phase transition not present in
// the transition graph.
var ErrInvalidTransition = errors.New("loop: invalid phase transition")

// PhaseMachine enforces valid phase transitions for the convergence loop.
//
// The transition graph:
//
//	capturing   → comparing      : screenshot captured
//	capturing   → capturing      : capture failed, round retried
//	capturing   → done           : wall-clock budget expired before the round ran
//	comparing   → analyzing      : comparison pipeline finished
//	comparing   → capturing      : comparison failed, round retried
//	analyzing   → patching       : decision says continue
//	analyzing   → done           : decision says stop
//	patching    → waiting_hmr    : new code written, dev server settling
//	patching    → capturing      : new code written or patch failed
//	waiting_hmr → capturing      : dev server settled
//	waiting_hmr → done           : wall-clock budget expired after a settled round
//
// Thread Safety: The transition table is immutable after construction;
// PhaseMachine is safe for concurrent use.
type PhaseMachine struct {
	transitions map[Phase]map[Phase]bool
}

// NewPhaseMachine creates the machine with all valid transitions.
func NewPhaseMachine() *PhaseMachine {
	m := &PhaseMachine{transitions: make(map[Phase]map[Phase]bool)}

	for _, phase := range AllPhases() {
		m.transitions[phase] = make(map[Phase]bool)
	}

	m.add(PhaseCapturing, PhaseComparing)
	m.add(PhaseCapturing, PhaseCapturing)
	m.add(PhaseCapturing, PhaseDone)

	m.add(PhaseComparing, PhaseAnalyzing)
	m.add(PhaseComparing, PhaseCapturing)

	m.add(PhaseAnalyzing, PhasePatching)
	m.add(PhaseAnalyzing, PhaseDone)

	m.add(PhasePatching, PhaseWaitingHMR)
	m.add(PhasePatching, PhaseCapturing)

	m.add(PhaseWaitingHMR, PhaseCapturing)
	m.add(PhaseWaitingHMR, PhaseDone)

	return m
}

func (m *PhaseMachine) add(from, to Phase) {
	m.transitions[from][to] = true
}

// CanTransition checks whether from → to is in the transition graph.
func (m *PhaseMachine) CanTransition(from, to Phase) bool {
	if toMap, ok := m.transitions[from]; ok {
		return toMap[to]
	}
	return false
}

// Transition validates from → to, returning ErrInvalidTransition when the
// graph does not allow it.
func (m *PhaseMachine) Transition(from, to Phase) error {
	if !m.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
