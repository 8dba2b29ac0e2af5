// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loop implements the convergence controller: the iteration state
// machine that drives repeated capture-compare-classify-patch rounds and
// decides, after every round, whether to stop, roll back, or switch
// code-modification strategy.
//
// The decision logic (Categorize, SuggestStrategy) is pure and separated
// from the effectful driver (Controller), so it is testable without any
// I/O or image data.
package loop

import (
	"time"

	"github.com/AleutianAI/pixelloop/services/converge"
)

// Phase is one stage of the per-round pipeline.
type Phase string

const (
	// PhaseCapturing waits on the rendering collaborator's screenshot.
	PhaseCapturing Phase = "capturing"

	// PhaseComparing runs the visual diff pipeline.
	PhaseComparing Phase = "comparing"

	// PhaseAnalyzing classifies regions and decides the next move.
	PhaseAnalyzing Phase = "analyzing"

	// PhasePatching asks the code generator for new code.
	PhasePatching Phase = "patching"

	// PhaseWaitingHMR waits for the dev server to settle after a write.
	PhaseWaitingHMR Phase = "waiting_hmr"

	// PhaseDone is the terminal phase.
	PhaseDone Phase = "done"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal reports whether the phase ends the run.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone
}

// AllPhases returns every phase the controller can be in.
func AllPhases() []Phase {
	return []Phase{
		PhaseCapturing,
		PhaseComparing,
		PhaseAnalyzing,
		PhasePatching,
		PhaseWaitingHMR,
		PhaseDone,
	}
}

// Category labels how one iteration's score relates to the previous one.
type Category string

const (
	// CategoryFirst marks the first iteration, with no previous score.
	CategoryFirst Category = "first"

	// CategoryAchieved marks a score at or above the success threshold.
	CategoryAchieved Category = "achieved"

	// CategoryImproved marks an improvement beyond the noise threshold.
	CategoryImproved Category = "improved"

	// CategoryRegressed marks any drop below the previous score.
	CategoryRegressed Category = "regressed"

	// CategoryStalled marks a change within the noise threshold.
	CategoryStalled Category = "stalled"
)

// StopReason explains why the controller terminated a run.
type StopReason string

const (
	// StopSuccess means the score reached the configured threshold.
	StopSuccess StopReason = "success"

	// StopMaxIterations means the iteration budget ran out.
	StopMaxIterations StopReason = "max_iterations"

	// StopConverged means three consecutive rounds stalled.
	StopConverged StopReason = "converged"

	// StopTimeout means the wall-clock budget ran out.
	StopTimeout StopReason = "timeout"
)

// Config holds the controller's decision parameters.
type Config struct {
	// Threshold is the composite score at which the run succeeds.
	Threshold float64

	// MaxIterations bounds the number of rounds and the history size.
	MaxIterations int

	// ImprovementThreshold is the noise floor for improved/stalled
	// categorization.
	ImprovementThreshold float64

	// PatchSwitchThreshold is the score above which the controller
	// prefers surgical patches over full regeneration.
	PatchSwitchThreshold float64

	// OverallTimeout is the wall-clock budget for the whole run.
	// Zero disables the budget.
	OverallTimeout time.Duration

	// RoundRetries is how many consecutive failed rounds (capture or
	// patch errors) are tolerated before the run is abandoned.
	RoundRetries int
}

// DefaultConfig returns the controller defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:            0.9,
		MaxIterations:        10,
		ImprovementThreshold: 0.01,
		PatchSwitchThreshold: 0.7,
		OverallTimeout:       15 * time.Minute,
		RoundRetries:         2,
	}
}

// Record is one immutable, append-only history entry. The ordered record
// sequence is the controller's only persistent memory across rounds.
type Record struct {
	// Iteration is the 1-based round number.
	Iteration int `json:"iteration"`

	// Score is the composite score measured this round.
	Score float64 `json:"score"`

	// Strategy is the acting strategy that produced this round's code.
	Strategy converge.Strategy `json:"strategy"`

	// FilesModified lists the files the last patch touched.
	FilesModified []string `json:"files_modified,omitempty"`

	// ElapsedMs is the round's wall time in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms"`

	// Category relates this round's score to the previous one.
	Category Category `json:"category"`

	// Timestamp is when the round completed.
	Timestamp time.Time `json:"timestamp"`
}

// Recommendation is the decision output for one round. It is never
// retained; the controller recomputes it every round from the current
// score and the full history.
type Recommendation struct {
	// Strategy to use for the next patch.
	Strategy converge.Strategy

	// Reason explains the decision for logs and reports.
	Reason string

	// ShouldStop terminates the run.
	ShouldStop bool

	// StopReason is set when ShouldStop is true.
	StopReason StopReason

	// ShouldRollback restores a prior file set before patching.
	ShouldRollback bool

	// RollbackTo is the iteration whose backup should be restored.
	RollbackTo int
}

// IterationState is emitted to the observer on every phase transition.
// It exists for observability only and is not persisted.
type IterationState struct {
	Iteration int
	Phase     Phase
	Timestamp time.Time
}

// Result is what a finished run returns.
type Result struct {
	// FinalScore is the last measured composite score.
	FinalScore float64 `json:"final_score"`

	// Iterations is the number of completed rounds.
	Iterations int `json:"iterations"`

	// StopReason explains the termination.
	StopReason StopReason `json:"stop_reason"`

	// Code is the final generated code state.
	Code converge.CodeBundle `json:"-"`

	// History is the complete iteration log.
	History []Record `json:"history"`
}
