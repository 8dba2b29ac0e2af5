// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package converge holds the types shared by every stage of the
// generate-render-compare-patch pipeline.
//
// Subpackages implement the stages: imagery (metrics), score (composite),
// report (classification), compare (pipeline), loop (controller), capture
// (screenshots), patch (code generation), workspace (files and backups),
// and vision (optional model scoring).
package converge

import "sort"

// Strategy selects how the code generator modifies the project.
type Strategy string

const (
	// StrategyFullRegen rewrites the generated code from scratch.
	// Used when similarity to the design is still low.
	StrategyFullRegen Strategy = "full_regen"

	// StrategySurgicalPatch applies a targeted, minimal patch.
	// Used when similarity is already high.
	StrategySurgicalPatch Strategy = "surgical_patch"
)

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Flip returns the opposite strategy. Used when a round regressed and the
// controller wants to try the other approach.
func (s Strategy) Flip() Strategy {
	if s == StrategyFullRegen {
		return StrategySurgicalPatch
	}
	return StrategyFullRegen
}

// Valid reports whether s is one of the two known strategies.
func (s Strategy) Valid() bool {
	return s == StrategyFullRegen || s == StrategySurgicalPatch
}

// CodeBundle is the project's generated source, keyed by path relative to
// the project root. It is the currency passed between the code generator
// and the workspace store.
type CodeBundle map[string]string

// Paths returns the bundle's file paths in sorted order.
func (c CodeBundle) Paths() []string {
	paths := make([]string, 0, len(c))
	for p := range c {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clone returns a deep copy of the bundle.
func (c CodeBundle) Clone() CodeBundle {
	out := make(CodeBundle, len(c))
	for p, content := range c {
		out[p] = content
	}
	return out
}
