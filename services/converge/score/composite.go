// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package score merges the partial similarity signals into one composite
// convergence metric. It is pure and carries no image dependencies, so the
// weighting rules are testable in isolation.
package score

// Inputs carries the partial signals for one comparison. SSIM is always
// present; Layout and Vision are optional and nil when their collaborator
// did not produce a value this round.
type Inputs struct {
	SSIM   float64
	Layout *float64
	Vision *float64
}

// Composite blends the available signals into one score in [0,1].
//
// Weighting rules, first match wins:
//
//	ssim + layout + vision  ->  0.3*ssim + 0.3*layout + 0.4*vision
//	ssim + vision           ->  0.4*ssim + 0.6*vision
//	ssim + layout           ->  0.5*ssim + 0.5*layout
//	ssim only               ->  ssim
//
// Inputs are expected in [0,1] but not required to be pre-clamped; a
// misbehaving upstream signal must not propagate out-of-range composite
// scores, so the result is always clamped.
func Composite(in Inputs) float64 {
	var v float64
	switch {
	case in.Layout != nil && in.Vision != nil:
		v = 0.3*in.SSIM + 0.3**in.Layout + 0.4**in.Vision
	case in.Vision != nil:
		v = 0.4*in.SSIM + 0.6**in.Vision
	case in.Layout != nil:
		v = 0.5*in.SSIM + 0.5**in.Layout
	default:
		v = in.SSIM
	}
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
