// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report labels difference regions, assigns fix priority, and
// builds the human-readable comparison report handed to the patch
// generator.
package report

import (
	"fmt"

	"github.com/AleutianAI/pixelloop/services/converge/imagery"
)

// Classification labels the likely cause of a difference region.
type Classification string

const (
	ClassColor    Classification = "color"
	ClassSpacing  Classification = "spacing"
	ClassSize     Classification = "size"
	ClassPosition Classification = "position"
	ClassMissing  Classification = "missing"
	ClassExtra    Classification = "extra"
	ClassFont     Classification = "font"
	ClassUnknown  Classification = "unknown"
)

// Priority ranks how urgently a region should be fixed.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// rank orders priorities for sorting, high first.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// AnalyzedRegion wraps a DiffRegion with its classification and priority.
//
// Priority is always derived from the classification via PriorityFor,
// never set independently.
type AnalyzedRegion struct {
	Region         imagery.DiffRegion `json:"region"`
	Classification Classification     `json:"classification"`
	Priority       Priority           `json:"priority"`
	Description    string             `json:"description"`
	Suggestion     string             `json:"suggestion,omitempty"`
}

// Heuristic cutoffs used when no external label is available.
const (
	positionSpanPx     = 200
	colorIntensityKnee = 0.5
)

// Classify labels a region.
//
// # Description
//
// When the optional external model label is non-empty it is mapped 1:1
// into the fixed enum; labels outside the enum degrade to unknown. With
// no label the heuristics apply: regions wider or taller than 200px are
// position issues, regions with diff intensity above 0.5 are color
// issues, everything else is unknown.
func Classify(region imagery.DiffRegion, externalLabel string) Classification {
	if externalLabel != "" {
		return mapLabel(externalLabel)
	}

	switch {
	case region.Width > positionSpanPx || region.Height > positionSpanPx:
		return ClassPosition
	case region.DiffIntensity > colorIntensityKnee:
		return ClassColor
	default:
		return ClassUnknown
	}
}

// mapLabel converts an external model label into the enum.
func mapLabel(label string) Classification {
	switch Classification(label) {
	case ClassColor, ClassSpacing, ClassSize, ClassPosition,
		ClassMissing, ClassExtra, ClassFont:
		return Classification(label)
	default:
		return ClassUnknown
	}
}

// PriorityFor derives the fix priority from a classification.
//
// missing, extra, position are high; size, spacing are medium; color,
// font, unknown are low.
func PriorityFor(c Classification) Priority {
	switch c {
	case ClassMissing, ClassExtra, ClassPosition:
		return PriorityHigh
	case ClassSize, ClassSpacing:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Analyze classifies one region and fills in its derived fields.
func Analyze(region imagery.DiffRegion, externalLabel string) AnalyzedRegion {
	class := Classify(region, externalLabel)
	return AnalyzedRegion{
		Region:         region,
		Classification: class,
		Priority:       PriorityFor(class),
		Description:    describeRegion(region, class),
		Suggestion:     suggestFix(class),
	}
}

// describeRegion builds the human-readable summary of one region.
func describeRegion(r imagery.DiffRegion, c Classification) string {
	return fmt.Sprintf("%s difference in %dx%d area at (%d,%d), intensity %.2f",
		c, r.Width, r.Height, r.X, r.Y, r.DiffIntensity)
}

// suggestFix maps a classification to a generic fix hint, when one exists.
func suggestFix(c Classification) string {
	switch c {
	case ClassColor:
		return "check background and text colors against the design palette"
	case ClassPosition:
		return "check element alignment, flex/grid placement, and offsets"
	case ClassSpacing:
		return "check margins, padding, and gap values"
	case ClassSize:
		return "check width/height and font sizes"
	case ClassMissing:
		return "an element from the design appears to be absent"
	case ClassExtra:
		return "an element not present in the design appears to be rendered"
	case ClassFont:
		return "check font family and weight"
	default:
		return ""
	}
}
