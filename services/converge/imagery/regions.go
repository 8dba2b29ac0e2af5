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
	"sort"
)

const (
	// regionCellSize is the edge of the uniform grid overlaid on the
	// diff image before clustering.
	regionCellSize = 32

	// regionBrightness is the red-channel threshold above which a diff
	// pixel counts as active. Faded matching pixels stay well below it.
	regionBrightness = 50
)

// FindDiffRegions clusters a diff image into bounded rectangular regions.
//
// # Description
//
// Overlays a 32x32 grid on the diff image and counts, per cell, the pixels
// whose red channel exceeds the brightness threshold. Cells with nonzero
// counts are merged into connected components by 4-connected flood fill,
// implemented as an explicit worklist over a flat cell arena. Each
// component's bounding box is scaled back to pixel coordinates and clipped
// to the image. Components whose summed active-pixel count is below
// opts.MinRegionSize are discarded.
//
// # Outputs
//
//   - []DiffRegion: Sorted descending by DiffIntensity. The ordering is
//     load-bearing: classification and the surgical-patch prompt both
//     want "most visually wrong first".
//
// A uniformly identical image yields zero regions.
func FindDiffRegions(diff *image.RGBA, opts RegionOptions) []DiffRegion {
	minSize := opts.MinRegionSize
	if minSize <= 0 {
		minSize = DefaultRegionOptions().MinRegionSize
	}

	w, h := diff.Bounds().Dx(), diff.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil
	}

	cols := (w + regionCellSize - 1) / regionCellSize
	rows := (h + regionCellSize - 1) / regionCellSize

	// counts[row*cols+col] holds the active pixel count of one cell.
	counts := make([]int, cols*rows)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if diff.Pix[diff.PixOffset(x, y)] > regionBrightness {
				counts[(y/regionCellSize)*cols+x/regionCellSize]++
			}
		}
	}

	visited := make([]bool, cols*rows)
	var regions []DiffRegion

	for start := range counts {
		if counts[start] == 0 || visited[start] {
			continue
		}

		// Flood fill one component over the cell arena.
		minCol, minRow := start%cols, start/cols
		maxCol, maxRow := minCol, minRow
		active := 0

		worklist := []int{start}
		visited[start] = true

		for len(worklist) > 0 {
			cell := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]

			col, row := cell%cols, cell/cols
			active += counts[cell]

			minCol = min(minCol, col)
			maxCol = max(maxCol, col)
			minRow = min(minRow, row)
			maxRow = max(maxRow, row)

			for _, next := range neighbors4(cell, cols, rows) {
				if counts[next] > 0 && !visited[next] {
					visited[next] = true
					worklist = append(worklist, next)
				}
			}
		}

		if active < minSize {
			continue
		}

		// Grid units back to pixel coordinates, clipped to the image.
		px := minCol * regionCellSize
		py := minRow * regionCellSize
		pw := min((maxCol+1)*regionCellSize, w) - px
		ph := min((maxRow+1)*regionCellSize, h) - py

		intensity := 0.0
		if area := pw * ph; area > 0 {
			intensity = float64(active) / float64(area)
		}

		regions = append(regions, DiffRegion{
			X:             px,
			Y:             py,
			Width:         pw,
			Height:        ph,
			DiffIntensity: intensity,
			PixelCount:    active,
		})
	}

	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].DiffIntensity > regions[j].DiffIntensity
	})
	return regions
}

// neighbors4 returns the 4-connected neighbor indices of a cell in a
// cols-by-rows arena.
func neighbors4(cell, cols, rows int) []int {
	col, row := cell%cols, cell/cols
	out := make([]int, 0, 4)
	if col > 0 {
		out = append(out, cell-1)
	}
	if col < cols-1 {
		out = append(out, cell+1)
	}
	if row > 0 {
		out = append(out, cell-cols)
	}
	if row < rows-1 {
		out = append(out, cell+cols)
	}
	return out
}
