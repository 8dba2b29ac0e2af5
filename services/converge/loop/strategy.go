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
	"fmt"

	"github.com/AleutianAI/pixelloop/services/converge"
)

// SuggestStrategy decides the controller's next move for one round.
//
// # Description
//
// The history passed in already includes the current round's record as
// its last element. Rules are evaluated in priority order:
//
//  1. score >= cfg.Threshold: stop with reason success.
//  2. len(history) >= cfg.MaxIterations: stop with reason max_iterations.
//  3. The last three records are all stalled: stop with reason converged.
//  4. The immediately preceding recorded score exceeds the current one
//     (regression): do not stop; roll back to the best-scoring iteration
//     in the entire history (ties broken by first occurrence) and flip
//     the acting strategy relative to the round that just regressed.
//  5. Otherwise: full_regen below cfg.PatchSwitchThreshold, else
//     surgical_patch. No stop, no rollback.
//
// Regression is not an error. It is an expected state transition,
// distinct from crashes.
//
// Thread Safety: Pure function; recomputed every round, never retained.
func SuggestStrategy(score float64, history []Record, cfg Config) Recommendation {
	if score >= cfg.Threshold {
		return Recommendation{
			ShouldStop: true,
			StopReason: StopSuccess,
			Reason:     fmt.Sprintf("score %.3f reached threshold %.3f", score, cfg.Threshold),
		}
	}

	if len(history) >= cfg.MaxIterations {
		return Recommendation{
			ShouldStop: true,
			StopReason: StopMaxIterations,
			Reason:     fmt.Sprintf("iteration budget of %d exhausted", cfg.MaxIterations),
		}
	}

	if lastNStalled(history, 3) {
		return Recommendation{
			ShouldStop: true,
			StopReason: StopConverged,
			Reason:     "score plateaued for 3 consecutive rounds",
		}
	}

	if n := len(history); n >= 2 && history[n-2].Score > score {
		best := bestIteration(history)
		flipped := history[n-1].Strategy.Flip()
		return Recommendation{
			Strategy:       flipped,
			ShouldRollback: true,
			RollbackTo:     best,
			Reason: fmt.Sprintf("score regressed from %.3f to %.3f; rolling back to iteration %d and switching to %s",
				history[n-2].Score, score, best, flipped),
		}
	}

	strategy := converge.StrategySurgicalPatch
	if score < cfg.PatchSwitchThreshold {
		strategy = converge.StrategyFullRegen
	}
	return Recommendation{
		Strategy: strategy,
		Reason:   fmt.Sprintf("score %.3f below threshold, continuing with %s", score, strategy),
	}
}

// lastNStalled reports whether the trailing n records all stalled.
func lastNStalled(history []Record, n int) bool {
	if len(history) < n {
		return false
	}
	for _, r := range history[len(history)-n:] {
		if r.Category != CategoryStalled {
			return false
		}
	}
	return true
}

// bestIteration returns the iteration number of the single best-scoring
// record, breaking ties by first occurrence.
func bestIteration(history []Record) int {
	best := history[0]
	for _, r := range history[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	return best.Iteration
}
