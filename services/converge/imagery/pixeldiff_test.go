// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package imagery

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffPixels_IdenticalImages(t *testing.T) {
	a := newSolid(50, 50, blue)
	b := newSolid(50, 50, blue)

	diff, err := DiffPixels(a, b, DefaultDiffOptions())
	require.NoError(t, err)

	assert.Zero(t, diff.DiffCount)
	assert.Zero(t, diff.DiffPercentage)
	assert.Equal(t, 2500, diff.TotalPixels)
}

func TestDiffPixels_EntirelyDifferent(t *testing.T) {
	a := newSolid(50, 50, blue)
	b := newSolid(50, 50, red)

	diff, err := DiffPixels(a, b, DefaultDiffOptions())
	require.NoError(t, err)

	assert.Greater(t, diff.DiffPercentage, 0.5)
	assert.Equal(t, diff.TotalPixels, diff.DiffCount)
}

func TestDiffPixels_Deterministic(t *testing.T) {
	a := newSolid(30, 30, red)
	b := newSolid(30, 30, blue)

	first, err := DiffPixels(a, b, DefaultDiffOptions())
	require.NoError(t, err)
	second, err := DiffPixels(a, b, DefaultDiffOptions())
	require.NoError(t, err)

	assert.Equal(t, first.DiffCount, second.DiffCount)
}

func TestDiffPixels_ThresholdSuppressesSmallDeltas(t *testing.T) {
	a := newSolid(20, 20, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	// 10/255 is below the 0.1 default threshold.
	b := newSolid(20, 20, color.RGBA{R: 110, G: 100, B: 100, A: 255})

	diff, err := DiffPixels(a, b, DefaultDiffOptions())
	require.NoError(t, err)
	assert.Zero(t, diff.DiffCount)

	strict, err := DiffPixels(a, b, DiffOptions{Threshold: 0.01, IncludeAA: true})
	require.NoError(t, err)
	assert.Equal(t, 400, strict.DiffCount)
}

func TestDiffPixels_HighlightsAndFades(t *testing.T) {
	a := newSolid(10, 10, blue)
	b := newSolid(10, 10, blue)
	b.SetRGBA(5, 5, red)
	// Surround the changed pixel so it is not taken for anti-aliasing:
	// a lone bright pixel on a flat field has both brighter and darker
	// neighbors in the changed image.
	diff, err := DiffPixels(a, b, DiffOptions{Threshold: 0.1, IncludeAA: true})
	require.NoError(t, err)

	require.Equal(t, 1, diff.DiffCount)

	hot := diff.Image.RGBAAt(5, 5)
	assert.Equal(t, uint8(255), hot.R)
	assert.Equal(t, uint8(255), hot.A)

	cold := diff.Image.RGBAAt(0, 0)
	assert.Equal(t, uint8(fadedAlpha), cold.A)
	assert.LessOrEqual(t, cold.R, uint8(regionBrightness))
}

func TestDiffPixels_ExcludesAntiAliasedEdges(t *testing.T) {
	// b carries a bright pixel sitting on a luminance edge; with AA
	// exclusion on (the default) it is not counted.
	a := newSolid(10, 10, color.RGBA{R: 120, G: 120, B: 120, A: 255})
	b := newSolid(10, 10, color.RGBA{R: 120, G: 120, B: 120, A: 255})
	// The middle pixel of the step has both a brighter and a darker
	// neighbor, the signature of rasterizer smoothing.
	b.SetRGBA(3, 4, color.RGBA{R: 250, G: 250, B: 250, A: 255})
	b.SetRGBA(4, 4, color.RGBA{R: 180, G: 180, B: 180, A: 255})
	b.SetRGBA(5, 4, color.RGBA{R: 10, G: 10, B: 10, A: 255})

	withAA, err := DiffPixels(a, b, DiffOptions{Threshold: 0.1, IncludeAA: true})
	require.NoError(t, err)
	without, err := DiffPixels(a, b, DiffOptions{Threshold: 0.1})
	require.NoError(t, err)

	assert.Equal(t, 3, withAA.DiffCount)
	assert.Less(t, without.DiffCount, withAA.DiffCount)
}

func TestDiffPixels_DimensionMismatch(t *testing.T) {
	a := newSolid(10, 10, red)
	b := newSolid(20, 10, red)

	_, err := DiffPixels(a, b, DefaultDiffOptions())
	assert.Error(t, err)
}
