// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/pixelloop/services/converge"
	"github.com/AleutianAI/pixelloop/services/converge/imagery"
)

// Cutoff below which the builder recommends a full regeneration instead
// of a surgical patch.
const regenCutoff = 0.7

// Report is the aggregated outcome of one comparison, ready for a human
// or for the patch prompt. Created fresh every iteration; never mutated
// after construction.
type Report struct {
	// OverallScore is the vision similarity score when available,
	// otherwise the composite score.
	OverallScore float64 `json:"overall_score"`

	// Regions is sorted by priority, high to medium to low, stable
	// within equal priority.
	Regions []AnalyzedRegion `json:"regions"`

	// Summary is a natural-language digest of the region counts.
	Summary string `json:"summary"`

	// SuggestedStrategy is full_regen below the 0.7 cutoff, else
	// surgical_patch.
	SuggestedStrategy converge.Strategy `json:"suggested_strategy"`
}

// BuildInput carries everything the report builder needs.
type BuildInput struct {
	// Regions come from the extractor, already most-intense-first.
	Regions []imagery.DiffRegion

	// Labels optionally maps a region index to an external model label.
	Labels map[int]string

	// CompositeScore is the blended similarity for this round.
	CompositeScore float64

	// VisionScore is the optional model-provided similarity.
	VisionScore *float64
}

// Build classifies all regions and assembles the report.
//
// # Outputs
//
//   - *Report: Regions sorted high-to-low priority (stable), with the
//     overall score, summary line, and suggested strategy filled in.
func Build(in BuildInput) *Report {
	analyzed := make([]AnalyzedRegion, 0, len(in.Regions))
	for i, region := range in.Regions {
		analyzed = append(analyzed, Analyze(region, in.Labels[i]))
	}

	sort.SliceStable(analyzed, func(i, j int) bool {
		return analyzed[i].Priority.rank() < analyzed[j].Priority.rank()
	})

	overall := in.CompositeScore
	if in.VisionScore != nil {
		overall = *in.VisionScore
	}

	strategy := converge.StrategySurgicalPatch
	if overall < regenCutoff {
		strategy = converge.StrategyFullRegen
	}

	return &Report{
		OverallScore:      overall,
		Regions:           analyzed,
		Summary:           summarize(overall, analyzed),
		SuggestedStrategy: strategy,
	}
}

// summarize produces the natural-language digest.
func summarize(overall float64, regions []AnalyzedRegion) string {
	if len(regions) == 0 {
		return fmt.Sprintf("Similarity %.1f%%: no significant difference regions.", overall*100)
	}

	var high, medium, low int
	for _, r := range regions {
		switch r.Priority {
		case PriorityHigh:
			high++
		case PriorityMedium:
			medium++
		default:
			low++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Similarity %.1f%%: %d difference region", overall*100, len(regions))
	if len(regions) != 1 {
		b.WriteString("s")
	}
	fmt.Fprintf(&b, " (%d high, %d medium, %d low priority).", high, medium, low)
	return b.String()
}
