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
	"fmt"
	"image"
)

// Alpha applied to matching pixels in the diff image. Matching pixels keep
// the rendered content faintly visible; differing pixels are solid red.
// Region extraction relies on this split: a faint premultiplied pixel can
// never exceed the 50/255 red-channel threshold.
const fadedAlpha = 25

// DiffPixels compares two aligned images pixel by pixel.
//
// # Description
//
// A pixel pair differs when its per-channel color distance exceeds
// opts.Threshold. Unless opts.IncludeAA is set, differing pixels that look
// like anti-aliasing artifacts (edge pixels in both images) are excluded.
//
// # Inputs
//
//   - a, b: Aligned images. Must have identical dimensions.
//   - opts: Differencer options; see DefaultDiffOptions.
//
// # Outputs
//
//   - *PixelDiff: Counts, percentage, and the highlight diff image.
//   - error: Non-nil if the images have mismatched dimensions.
//
// Thread Safety: Pure function over immutable inputs; safe to run
// concurrently with SSIM on the same pair.
func DiffPixels(a, b *image.RGBA, opts DiffOptions) (*PixelDiff, error) {
	if !a.Bounds().Size().Eq(b.Bounds().Size()) {
		return nil, fmt.Errorf("imagery: dimension mismatch %v vs %v",
			a.Bounds().Size(), b.Bounds().Size())
	}

	w, h := a.Bounds().Dx(), a.Bounds().Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	diffCount := 0
	total := w * h

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ai := a.PixOffset(x, y)
			bi := b.PixOffset(x, y)
			oi := out.PixOffset(x, y)

			if channelDistance(a.Pix[ai:ai+4], b.Pix[bi:bi+4]) > opts.Threshold {
				if opts.IncludeAA || !(isAntiAliased(a, x, y) || isAntiAliased(b, x, y)) {
					diffCount++
					out.Pix[oi+0] = 255
					out.Pix[oi+1] = 0
					out.Pix[oi+2] = 0
					out.Pix[oi+3] = 255
					continue
				}
			}

			// Matching (or excluded) pixel: rendered content, faded.
			// Premultiplied alpha, so channels scale with it.
			out.Pix[oi+0] = uint8(int(b.Pix[bi+0]) * fadedAlpha / 255)
			out.Pix[oi+1] = uint8(int(b.Pix[bi+1]) * fadedAlpha / 255)
			out.Pix[oi+2] = uint8(int(b.Pix[bi+2]) * fadedAlpha / 255)
			out.Pix[oi+3] = fadedAlpha
		}
	}

	pct := 0.0
	if total > 0 {
		pct = float64(diffCount) / float64(total)
	}

	return &PixelDiff{
		DiffCount:      diffCount,
		TotalPixels:    total,
		DiffPercentage: pct,
		Image:          out,
	}, nil
}

// channelDistance returns the largest per-channel difference, normalized
// to [0,1]. Alpha participates like any other channel.
func channelDistance(p, q []uint8) float64 {
	maxDelta := 0
	for i := 0; i < 4; i++ {
		d := int(p[i]) - int(q[i])
		if d < 0 {
			d = -d
		}
		if d > maxDelta {
			maxDelta = d
		}
	}
	return float64(maxDelta) / 255.0
}

// isAntiAliased reports whether the pixel at (x, y) sits on a luminance
// edge: its 8-neighborhood contains both a clearly brighter and a clearly
// darker pixel. Such pixels are rasterizer smoothing, not layout drift.
func isAntiAliased(img *image.RGBA, x, y int) bool {
	const edgeDelta = 16.0

	center := luminanceAt(img, x, y)
	hasBrighter, hasDarker := false, false

	bounds := img.Bounds()
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < bounds.Min.X || ny < bounds.Min.Y || nx >= bounds.Max.X || ny >= bounds.Max.Y {
				continue
			}
			delta := luminanceAt(img, nx, ny) - center
			if delta > edgeDelta {
				hasBrighter = true
			} else if delta < -edgeDelta {
				hasDarker = true
			}
			if hasBrighter && hasDarker {
				return true
			}
		}
	}
	return false
}

// luminanceAt returns the Rec. 601 luma of the pixel at (x, y).
func luminanceAt(img *image.RGBA, x, y int) float64 {
	i := img.PixOffset(x, y)
	return 0.299*float64(img.Pix[i]) + 0.587*float64(img.Pix[i+1]) + 0.114*float64(img.Pix[i+2])
}
