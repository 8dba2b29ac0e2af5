// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package imagery implements the raster metrics behind the convergence
// loop: image alignment, per-pixel differencing, windowed SSIM, difference
// region extraction, and heatmap/crop generation.
//
// All functions are pure over their image inputs. Images are never mutated
// in place; every transformation allocates a new *image.RGBA. The pixel
// differencer and the SSIM scorer may therefore run concurrently over the
// same aligned pair.
package imagery

import (
	"errors"
	"image"
	"time"
)

// ErrDecode indicates a malformed image input. It aborts the current
// comparison only, never the whole run.
var ErrDecode = errors.New("imagery: image decode failed")

// =============================================================================
// Pixel Diff
// =============================================================================

// DiffOptions configures the pixel differencer.
type DiffOptions struct {
	// Threshold is the per-channel color distance above which a pixel pair
	// counts as differing. Range [0,1]. Default: 0.1.
	Threshold float64

	// IncludeAA counts pixels that look like anti-aliasing artifacts.
	// Default: false (artifacts are excluded).
	IncludeAA bool
}

// DefaultDiffOptions returns the defaults used by the comparison pipeline.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{Threshold: 0.1}
}

// PixelDiff is the result of comparing two aligned images pixel by pixel.
//
// Identical inputs always produce identical DiffCount.
type PixelDiff struct {
	// DiffCount is the number of differing pixels.
	DiffCount int

	// TotalPixels is the number of pixels compared.
	TotalPixels int

	// DiffPercentage is DiffCount/TotalPixels, or 0 when TotalPixels is 0.
	DiffPercentage float64

	// Image marks differing pixels in solid red. Matching pixels carry the
	// rendered pixel at partial opacity so the layout stays recognizable.
	Image *image.RGBA
}

// =============================================================================
// SSIM
// =============================================================================

// SSIMOptions configures the structural similarity scorer.
type SSIMOptions struct {
	// WindowSize is the square window edge in pixels. Windows do not
	// overlap and partial trailing windows are dropped. Default: 8.
	WindowSize int
}

// DefaultSSIMOptions returns the defaults used by the comparison pipeline.
func DefaultSSIMOptions() SSIMOptions {
	return SSIMOptions{WindowSize: 8}
}

// SSIMResult holds the mean windowed SSIM over a grayscale image pair.
type SSIMResult struct {
	// MSSIM is the mean SSIM across all windows, clamped to [0,1].
	// An image too small for a single window scores 1.0: no measurable
	// difference.
	MSSIM float64

	// Elapsed is how long the computation took.
	Elapsed time.Duration
}

// =============================================================================
// Regions
// =============================================================================

// DiffRegion is an axis-aligned bounding box over spatially clustered
// differing pixels.
type DiffRegion struct {
	// X, Y, Width, Height bound the region in pixel coordinates.
	// Width and Height are always positive.
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`

	// DiffIntensity is active pixels over bounding-box area, in [0,1].
	DiffIntensity float64 `json:"diff_intensity"`

	// PixelCount counts only the pixels that exceeded the difference
	// threshold, never the full bounding-box area.
	PixelCount int `json:"pixel_count"`
}

// RegionOptions configures difference region extraction.
type RegionOptions struct {
	// MinRegionSize is the active-pixel floor below which a connected
	// component is discarded. Default: 100.
	MinRegionSize int
}

// DefaultRegionOptions returns the defaults used by the comparison pipeline.
func DefaultRegionOptions() RegionOptions {
	return RegionOptions{MinRegionSize: 100}
}

// RegionCrop is a matching pair of rectangles cut from the design and the
// rendered screenshot around one difference region.
type RegionCrop struct {
	Region     DiffRegion
	Design     *image.RGBA
	Screenshot *image.RGBA
}
