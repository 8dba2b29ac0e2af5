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
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/AleutianAI/pixelloop/services/converge"
	"github.com/AleutianAI/pixelloop/services/converge/compare"
	"github.com/AleutianAI/pixelloop/services/converge/report"
)

// Capturer produces a screenshot of the rendered route. Implementations
// may fail with a timeout; the controller treats that as a round failure,
// not a crash.
type Capturer interface {
	Capture(ctx context.Context, route string) (*image.RGBA, error)
}

// Comparator runs the visual diff pipeline over one design/render pair.
type Comparator interface {
	Compare(ctx context.Context, design, rendered image.Image) (*compare.Result, error)
}

// PatchRequest is what the code generator receives each round. Comparison
// and Report are nil for the initial generation, before any capture.
type PatchRequest struct {
	Strategy    converge.Strategy
	CurrentCode converge.CodeBundle
	Comparison  *compare.Result
	Report      *report.Report
}

// PatchResult is the generator's output.
type PatchResult struct {
	Code          converge.CodeBundle
	FilesModified []string
}

// PatchGenerator produces new code from the current code and the visual
// diff evidence.
type PatchGenerator interface {
	Generate(ctx context.Context, req PatchRequest) (*PatchResult, error)
}

// Workspace is the persistence collaborator: generated files, per-round
// backups, and the dev-server settle wait.
type Workspace interface {
	// WriteFiles commits a bundle to the project directory.
	WriteFiles(bundle converge.CodeBundle) error

	// Backup snapshots the current project files keyed by iteration.
	// Backups are write-once; a second call for the same iteration is
	// an error.
	Backup(iteration int) error

	// Restore reads the backup for an iteration without writing it.
	Restore(iteration int) (converge.CodeBundle, error)

	// ListBackups returns existing backup iterations in ascending order.
	ListBackups() []int

	// AwaitSettle blocks until file writes under the project directory
	// go quiet, or the settle timeout elapses.
	AwaitSettle(ctx context.Context) error
}

// ArtifactSink persists per-iteration screenshot and heatmap images.
// Write-only from the controller's perspective.
type ArtifactSink interface {
	WriteIteration(iteration int, screenshot, heatmap image.Image) error
}

// Dependencies wires the controller's collaborators.
type Dependencies struct {
	Capture   Capturer
	Compare   Comparator
	Patch     PatchGenerator
	Workspace Workspace

	// Artifacts is optional; nil disables artifact persistence.
	Artifacts ArtifactSink

	// Observer receives one IterationState per phase transition.
	// Optional.
	Observer func(IterationState)

	// Logger defaults to slog.Default when nil.
	Logger *slog.Logger
}

// Controller drives the generate-render-compare-patch loop.
//
// # Description
//
// The controller is strictly sequential and single-flow: round N+1 never
// starts before round N's patch has been applied, because the project
// directory and its backups are the controller's implicit shared
// resource. Cancellation is honored at phase boundaries only.
//
// # Thread Safety
//
// A Controller runs one convergence at a time; Run must not be invoked
// concurrently on the same instance.
type Controller struct {
	cfg     Config
	deps    Dependencies
	machine *PhaseMachine
	history *History

	phase     Phase
	iteration int
	code      converge.CodeBundle
}

// NewController creates a controller.
//
// # Inputs
//
//   - cfg: Decision parameters; see DefaultConfig.
//   - deps: Collaborators. Capture, Compare, Patch, and Workspace are
//     required.
//   - historyPath: Optional JSON path for the persisted iteration log.
func NewController(cfg Config, deps Dependencies, historyPath string) (*Controller, error) {
	if deps.Capture == nil || deps.Compare == nil || deps.Patch == nil || deps.Workspace == nil {
		return nil, fmt.Errorf("loop: capture, compare, patch, and workspace are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Controller{
		cfg:     cfg,
		deps:    deps,
		machine: NewPhaseMachine(),
		history: NewHistory(cfg.MaxIterations, historyPath),
		phase:   PhaseCapturing,
	}, nil
}

// Run executes the convergence loop until a stop decision, the wall-clock
// budget, or an unrecoverable error.
//
// # Inputs
//
//   - ctx: Cancellation, checked at phase boundaries.
//   - design: The target design image.
//   - route: The route the rendering collaborator should capture.
//
// # Outputs
//
//   - *Result: Final score, iteration count, stop reason, final code,
//     and the complete history. Non-nil even alongside an error, so a
//     failed run still reports what it measured.
//   - error: Non-nil on unrecoverable failure or cancellation.
func (c *Controller) Run(ctx context.Context, design image.Image, route string) (*Result, error) {
	start := time.Now()
	log := c.deps.Logger

	var deadline time.Time
	if c.cfg.OverallTimeout > 0 {
		deadline = start.Add(c.cfg.OverallTimeout)
	}

	// Initial full generation: there is nothing to capture until the
	// generator has produced a first code state.
	initial, err := c.deps.Patch.Generate(ctx, PatchRequest{Strategy: converge.StrategyFullRegen})
	if err != nil {
		return c.result(0, ""), fmt.Errorf("loop: initial generation: %w", err)
	}
	current := initial.Code
	c.code = current
	if err := c.deps.Workspace.WriteFiles(current); err != nil {
		return c.result(0, ""), fmt.Errorf("loop: write initial code: %w", err)
	}
	log.Info("initial code generated", "files", len(current))

	acting := converge.StrategyFullRegen
	lastFiles := initial.FilesModified
	failures := 0
	finalScore := 0.0

	for iteration := 1; ; {
		roundStart := time.Now()

		if err := ctx.Err(); err != nil {
			return c.result(finalScore, ""), fmt.Errorf("loop: canceled: %w", err)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			log.Warn("wall-clock budget exceeded", "budget", c.cfg.OverallTimeout)
			c.setPhase(iteration, PhaseDone)
			return c.result(finalScore, StopTimeout), nil
		}

		// Snapshot the files that will produce this round's score, so a
		// later rollback to this iteration restores them exactly.
		if err := c.deps.Workspace.Backup(iteration); err != nil {
			log.Warn("backup failed", "iteration", iteration, "error", err)
		}

		c.setPhase(iteration, PhaseCapturing)
		shot, err := c.deps.Capture.Capture(ctx, route)
		if err != nil {
			if abort := c.roundFailure(iteration, &failures, "capture", err); abort != nil {
				return c.result(finalScore, ""), abort
			}
			continue
		}

		c.setPhase(iteration, PhaseComparing)
		cmp, err := c.deps.Compare.Compare(ctx, design, shot)
		if err != nil {
			if abort := c.roundFailure(iteration, &failures, "compare", err); abort != nil {
				return c.result(finalScore, ""), abort
			}
			continue
		}
		failures = 0

		if c.deps.Artifacts != nil {
			if err := c.deps.Artifacts.WriteIteration(iteration, shot, cmp.Heatmap); err != nil {
				log.Warn("artifact write failed", "iteration", iteration, "error", err)
			}
		}

		c.setPhase(iteration, PhaseAnalyzing)
		rpt := report.Build(report.BuildInput{
			Regions:        cmp.Regions,
			CompositeScore: cmp.Composite,
			VisionScore:    cmp.VisionScore,
		})

		score := cmp.Composite
		finalScore = score

		var prev *float64
		if last, ok := c.history.Last(); ok {
			prev = &last.Score
		}
		category := Categorize(score, prev, c.cfg.Threshold, c.cfg.ImprovementThreshold)

		if err := c.history.Append(Record{
			Iteration:     iteration,
			Score:         score,
			Strategy:      acting,
			FilesModified: lastFiles,
			ElapsedMs:     time.Since(roundStart).Milliseconds(),
			Category:      category,
			Timestamp:     time.Now(),
		}); err != nil {
			log.Warn("history append failed", "iteration", iteration, "error", err)
		}

		rec := SuggestStrategy(score, c.history.Records(), c.cfg)
		log.Info("round decided",
			"iteration", iteration,
			"score", score,
			"category", category,
			"reason", rec.Reason)

		if rec.ShouldStop {
			c.setPhase(iteration, PhaseDone)
			return c.result(score, rec.StopReason), nil
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			c.setPhase(iteration, PhaseDone)
			return c.result(score, StopTimeout), nil
		}

		if rec.ShouldRollback {
			if restored, from, err := c.restoreNearest(rec.RollbackTo); err != nil {
				// Rollback degrades gracefully: with no usable backup
				// the current files stay in place.
				log.Warn("rollback skipped", "target", rec.RollbackTo, "error", err)
			} else {
				if err := c.deps.Workspace.WriteFiles(restored); err != nil {
					log.Warn("rollback write failed", "iteration", from, "error", err)
				} else {
					current = restored
					c.code = current
					log.Info("rolled back", "target", rec.RollbackTo, "restored_from", from)
				}
			}
		}

		c.setPhase(iteration, PhasePatching)
		gen, err := c.deps.Patch.Generate(ctx, PatchRequest{
			Strategy:    rec.Strategy,
			CurrentCode: current,
			Comparison:  cmp,
			Report:      rpt,
		})
		if err != nil {
			// Prior committed code remains on disk; the next round
			// re-measures and re-decides.
			if abort := c.roundFailure(iteration, &failures, "patch", err); abort != nil {
				return c.result(finalScore, ""), abort
			}
			iteration++
			continue
		}

		if err := c.deps.Workspace.WriteFiles(gen.Code); err != nil {
			return c.result(finalScore, ""), fmt.Errorf("loop: write patched code: %w", err)
		}
		current = gen.Code
		c.code = current
		lastFiles = gen.FilesModified
		acting = rec.Strategy

		c.setPhase(iteration, PhaseWaitingHMR)
		if err := c.deps.Workspace.AwaitSettle(ctx); err != nil {
			log.Warn("settle wait ended early", "iteration", iteration, "error", err)
		}

		iteration++
	}
}

// History returns the run's iteration log.
func (c *Controller) History() []Record {
	return c.history.Records()
}

// result assembles the terminal Result from current state.
func (c *Controller) result(score float64, reason StopReason) *Result {
	records := c.history.Records()
	res := &Result{
		FinalScore: score,
		Iterations: len(records),
		StopReason: reason,
		Code:       c.code,
		History:    records,
	}
	return res
}

// roundFailure handles a fallible collaborator error. Returns nil when
// the round should be retried, or the terminal error when the retry
// budget is exhausted.
func (c *Controller) roundFailure(iteration int, failures *int, stage string, err error) error {
	*failures++
	c.deps.Logger.Warn("round failed", "iteration", iteration, "stage", stage,
		"attempt", *failures, "error", err)
	if *failures > c.cfg.RoundRetries {
		return fmt.Errorf("loop: %s failed %d times: %w", stage, *failures, err)
	}
	c.setPhase(iteration, PhaseCapturing)
	return nil
}

// restoreNearest restores the backup for the target iteration, degrading
// to the newest existing backup at or below it when the exact one was
// never created.
func (c *Controller) restoreNearest(target int) (converge.CodeBundle, int, error) {
	chosen := -1
	for _, iter := range c.deps.Workspace.ListBackups() {
		if iter <= target && iter > chosen {
			chosen = iter
		}
	}
	if chosen < 0 {
		return nil, 0, fmt.Errorf("loop: no backup at or below iteration %d", target)
	}
	bundle, err := c.deps.Workspace.Restore(chosen)
	if err != nil {
		return nil, 0, fmt.Errorf("loop: restore iteration %d: %w", chosen, err)
	}
	return bundle, chosen, nil
}

// setPhase performs a validated transition and notifies the observer.
func (c *Controller) setPhase(iteration int, to Phase) {
	if c.phase != to {
		if err := c.machine.Transition(c.phase, to); err != nil {
			c.deps.Logger.Error("phase transition rejected",
				"from", c.phase, "to", to, "error", err)
			return
		}
	}
	c.phase = to
	c.iteration = iteration

	if c.deps.Observer != nil {
		c.deps.Observer(IterationState{
			Iteration: iteration,
			Phase:     to,
			Timestamp: time.Now(),
		})
	}
}
