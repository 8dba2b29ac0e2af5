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

// Categorize relates the current score to the previous one.
//
// # Description
//
// Evaluated strictly in precedence order, returning the first match:
//
//	first     - no previous score exists
//	achieved  - current >= threshold
//	improved  - current - previous > improvement
//	regressed - current < previous
//	stalled   - |current - previous| <= improvement
//
// Note the precedence: a drop within the noise floor still counts as
// regressed, because any regression triggers the rollback path.
//
// # Inputs
//
//   - current: This round's composite score.
//   - previous: The prior round's score, nil on the first round.
//   - threshold: The success threshold.
//   - improvement: The noise floor for improvement detection.
func Categorize(current float64, previous *float64, threshold, improvement float64) Category {
	if previous == nil {
		return CategoryFirst
	}
	if current >= threshold {
		return CategoryAchieved
	}
	delta := current - *previous
	if delta > improvement {
		return CategoryImproved
	}
	if current < *previous {
		return CategoryRegressed
	}
	// What remains is a non-negative delta within the noise floor.
	return CategoryStalled
}
