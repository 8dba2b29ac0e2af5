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
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSolid creates a w by h image filled with one color.
func newSolid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func TestDecode_RoundTrip(t *testing.T) {
	src := newSolid(10, 6, red)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte("not an image"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestDecodeFile_Missing(t *testing.T) {
	_, err := DecodeFile("/nonexistent/design.png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestResize_ExactDimensions(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"upscale", 200, 150},
		{"downscale", 8, 4},
		{"identity", 40, 30},
	}

	src := newSolid(40, 30, blue)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Resize(src, tt.w, tt.h)
			assert.Equal(t, tt.w, out.Bounds().Dx())
			assert.Equal(t, tt.h, out.Bounds().Dy())
		})
	}
}

func TestAlignPair_MaxCanvas(t *testing.T) {
	a := newSolid(100, 40, red)
	b := newSolid(60, 80, blue)

	outA, outB := AlignPair(a, b)

	assert.Equal(t, 100, outA.Bounds().Dx())
	assert.Equal(t, 80, outA.Bounds().Dy())
	assert.Equal(t, outA.Bounds(), outB.Bounds())
}

func TestAlignPair_SameSizeUnchangedContent(t *testing.T) {
	a := newSolid(64, 64, red)
	b := newSolid(64, 64, red)

	outA, outB := AlignPair(a, b)

	diff, err := DiffPixels(outA, outB, DefaultDiffOptions())
	require.NoError(t, err)
	assert.Zero(t, diff.DiffCount)
}

func TestAlignPair_PadsWithWhite(t *testing.T) {
	// A tall narrow image on a wide canvas leaves white margins.
	a := newSolid(10, 100, red)
	b := newSolid(100, 100, blue)

	outA, _ := AlignPair(a, b)

	corner := outA.RGBAAt(0, 0)
	assert.Equal(t, uint8(255), corner.R)
	assert.Equal(t, uint8(255), corner.G)
	assert.Equal(t, uint8(255), corner.B)
}

func TestAlignPair_DoesNotMutateInputs(t *testing.T) {
	a := newSolid(30, 30, red)
	b := newSolid(60, 60, blue)
	before := append([]uint8(nil), a.Pix...)

	AlignPair(a, b)

	assert.Equal(t, before, a.Pix)
}
