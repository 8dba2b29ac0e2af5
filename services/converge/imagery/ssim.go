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
	"time"
)

// Stabilizing constants for the SSIM formula: C1=(K1*L)^2, C2=(K2*L)^2
// with K1=0.01, K2=0.03, L=255.
const (
	ssimC1 = (0.01 * 255) * (0.01 * 255)
	ssimC2 = (0.03 * 255) * (0.03 * 255)
)

// SSIM computes the mean structural similarity of two aligned images.
//
// # Description
//
// Both images are converted to grayscale and partitioned into
// non-overlapping WindowSize x WindowSize windows, stepping by the window
// size and dropping partial trailing windows. For each window the local
// mean, variance, and covariance feed the standard SSIM formula; the
// result is the average over all windows. With zero complete windows the
// mean is defined as 1.0: no measurable difference.
//
// # Inputs
//
//   - a, b: Aligned images. Must have identical dimensions.
//   - opts: Scorer options; see DefaultSSIMOptions.
//
// # Outputs
//
//   - *SSIMResult: MSSIM clamped to [0,1] plus elapsed wall time.
//   - error: Non-nil if the images have mismatched dimensions.
//
// Thread Safety: Side-effect-free; safe to run concurrently with the
// pixel differencer.
func SSIM(a, b *image.RGBA, opts SSIMOptions) (*SSIMResult, error) {
	start := time.Now()

	if !a.Bounds().Size().Eq(b.Bounds().Size()) {
		return nil, fmt.Errorf("imagery: dimension mismatch %v vs %v",
			a.Bounds().Size(), b.Bounds().Size())
	}

	win := opts.WindowSize
	if win <= 0 {
		win = DefaultSSIMOptions().WindowSize
	}

	ga := grayscale(a)
	gb := grayscale(b)
	w, h := a.Bounds().Dx(), a.Bounds().Dy()

	sum := 0.0
	windows := 0

	for wy := 0; wy+win <= h; wy += win {
		for wx := 0; wx+win <= w; wx += win {
			sum += windowSSIM(ga, gb, w, wx, wy, win)
			windows++
		}
	}

	mssim := 1.0
	if windows > 0 {
		mssim = sum / float64(windows)
	}
	mssim = clamp01(mssim)

	return &SSIMResult{MSSIM: mssim, Elapsed: time.Since(start)}, nil
}

// windowSSIM evaluates the SSIM formula over one window of two grayscale
// planes stored row-major at stride w.
func windowSSIM(ga, gb []float64, w, wx, wy, win int) float64 {
	n := float64(win * win)

	var meanA, meanB float64
	for y := wy; y < wy+win; y++ {
		row := y * w
		for x := wx; x < wx+win; x++ {
			meanA += ga[row+x]
			meanB += gb[row+x]
		}
	}
	meanA /= n
	meanB /= n

	var varA, varB, cov float64
	for y := wy; y < wy+win; y++ {
		row := y * w
		for x := wx; x < wx+win; x++ {
			da := ga[row+x] - meanA
			db := gb[row+x] - meanB
			varA += da * da
			varB += db * db
			cov += da * db
		}
	}
	varA /= n
	varB /= n
	cov /= n

	num := (2*meanA*meanB + ssimC1) * (2*cov + ssimC2)
	den := (meanA*meanA + meanB*meanB + ssimC1) * (varA + varB + ssimC2)
	return num / den
}

// grayscale flattens an RGBA image to a row-major luma plane.
func grayscale(img *image.RGBA) []float64 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			out[y*w+x] = 0.299*float64(img.Pix[i]) +
				0.587*float64(img.Pix[i+1]) +
				0.114*float64(img.Pix[i+2])
		}
	}
	return out
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
