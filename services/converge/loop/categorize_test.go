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

func floatPtr(f float64) *float64 { return &f }

func TestCategorize(t *testing.T) {
	const threshold = 0.95
	const improvement = 0.01

	tests := []struct {
		name     string
		current  float64
		previous *float64
		want     Category
	}{
		{
			name:     "no previous score is first",
			current:  0.5,
			previous: nil,
			want:     CategoryFirst,
		},
		{
			name:     "first even when already above threshold",
			current:  0.99,
			previous: nil,
			want:     CategoryFirst,
		},
		{
			name:     "at or above threshold is achieved",
			current:  0.96,
			previous: floatPtr(0.8),
			want:     CategoryAchieved,
		},
		{
			name:     "achieved wins over regressed",
			current:  0.96,
			previous: floatPtr(0.97),
			want:     CategoryAchieved,
		},
		{
			name:     "gain beyond noise floor is improved",
			current:  0.85,
			previous: floatPtr(0.8),
			want:     CategoryImproved,
		},
		{
			name:     "any drop below previous is regressed",
			current:  0.8,
			previous: floatPtr(0.85),
			want:     CategoryRegressed,
		},
		{
			name:     "tiny drop still regresses, not stalls",
			current:  0.799,
			previous: floatPtr(0.8),
			want:     CategoryRegressed,
		},
		{
			name:     "gain within noise floor is stalled",
			current:  0.805,
			previous: floatPtr(0.8),
			want:     CategoryStalled,
		},
		{
			name:     "exactly equal is stalled",
			current:  0.8,
			previous: floatPtr(0.8),
			want:     CategoryStalled,
		},
		{
			name:     "gain exactly at noise floor is stalled",
			current:  0.81,
			previous: floatPtr(0.8),
			want:     CategoryStalled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.current, tt.previous, threshold, improvement)
			assert.Equal(t, tt.want, got)
		})
	}
}
