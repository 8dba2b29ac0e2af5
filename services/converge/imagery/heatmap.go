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
	"image"
	"image/draw"
)

const (
	// cropMargin pads region crops so surrounding context is visible.
	cropMargin = 20

	// maxCrops caps the number of region crops per comparison.
	maxCrops = 5

	// heatAlphaBoost multiplies the diff overlay's alpha for visibility.
	heatAlphaBoost = 4
)

// Heatmap composites the diff overlay onto the design image.
//
// # Description
//
// The diff image is scaled to the design's resolution, its alpha is
// boosted so faint differences stay visible, and the result is drawn over
// the design. The design itself is not mutated.
func Heatmap(diff, design *image.RGBA) *image.RGBA {
	w, h := design.Bounds().Dx(), design.Bounds().Dy()

	overlay := Resize(diff, w, h)
	boostAlpha(overlay)

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), design, design.Bounds().Min, draw.Src)
	draw.Draw(out, out.Bounds(), overlay, image.Point{}, draw.Over)
	return out
}

// CropRegions cuts matching rectangles from the design and the screenshot
// for up to the top 5 regions.
//
// Regions must already be ordered most-intense-first; the slice order is
// preserved in the output. Rectangles are padded by a fixed margin and
// clipped to image bounds.
func CropRegions(design, screenshot *image.RGBA, regions []DiffRegion) []RegionCrop {
	n := min(len(regions), maxCrops)
	crops := make([]RegionCrop, 0, n)

	for _, region := range regions[:n] {
		rect := image.Rect(
			region.X-cropMargin,
			region.Y-cropMargin,
			region.X+region.Width+cropMargin,
			region.Y+region.Height+cropMargin,
		)

		dRect := rect.Intersect(design.Bounds())
		sRect := rect.Intersect(screenshot.Bounds())
		if dRect.Empty() || sRect.Empty() {
			continue
		}

		crops = append(crops, RegionCrop{
			Region:     region,
			Design:     cropRGBA(design, dRect),
			Screenshot: cropRGBA(screenshot, sRect),
		})
	}
	return crops
}

// cropRGBA copies a sub-rectangle into a fresh zero-origin image.
func cropRGBA(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}

// boostAlpha multiplies all channels in place. The buffer is premultiplied,
// so color channels scale together with alpha.
func boostAlpha(img *image.RGBA) {
	for i, v := range img.Pix {
		boosted := int(v) * heatAlphaBoost
		if boosted > 255 {
			boosted = 255
		}
		img.Pix[i] = uint8(boosted)
	}
}
