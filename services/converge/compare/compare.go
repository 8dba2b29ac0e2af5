// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package compare runs the full visual diff pipeline over one
// design/render pair: alignment, pixel differencing, SSIM, region
// extraction, heatmap composition, and composite scoring.
package compare

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/pixelloop/services/converge/imagery"
	"github.com/AleutianAI/pixelloop/services/converge/score"
)

// VisionScorer asks an external multimodal model for a 0..1 similarity
// judgment. Optional; errors are absorbed by the pipeline.
type VisionScorer interface {
	Score(ctx context.Context, design, rendered, heatmap *image.RGBA) (float64, error)
}

// LayoutScorer produces a 0..1 structural layout similarity. Optional.
type LayoutScorer interface {
	Score(ctx context.Context, design, rendered *image.RGBA) (float64, error)
}

// Options configures the pipeline stages.
type Options struct {
	Diff   imagery.DiffOptions
	SSIM   imagery.SSIMOptions
	Region imagery.RegionOptions
}

// DefaultOptions returns the stage defaults.
func DefaultOptions() Options {
	return Options{
		Diff:   imagery.DefaultDiffOptions(),
		SSIM:   imagery.DefaultSSIMOptions(),
		Region: imagery.DefaultRegionOptions(),
	}
}

// Result is everything one comparison produced. Composite is the single
// number the controller decides on; the rest is evidence for reports,
// artifacts, and the patch prompt.
type Result struct {
	// Composite is the weighted 0..1 score.
	Composite float64

	// SSIM is the mean structural similarity over the aligned pair.
	SSIM float64

	// PixelDiff carries the raw differing-pixel statistics.
	PixelDiff *imagery.PixelDiff

	// Regions are the clustered difference areas, densest first.
	Regions []imagery.DiffRegion

	// Heatmap is the design with differing areas highlighted, at the
	// design's resolution.
	Heatmap *image.RGBA

	// Crops are per-region cutouts of both images for the patch prompt.
	Crops []imagery.RegionCrop

	// VisionScore is the external model's judgment, nil when the scorer
	// is absent or failed.
	VisionScore *float64

	// LayoutScore is the structural layout similarity, nil when absent.
	LayoutScore *float64

	// Elapsed is the pipeline wall time.
	Elapsed time.Duration
}

// Pipeline is the reusable comparison engine.
//
// # Thread Safety
//
// Stateless between calls; safe for concurrent use as long as the
// optional scorers are.
type Pipeline struct {
	opts   Options
	vision VisionScorer
	layout LayoutScorer
	log    *slog.Logger
}

// NewPipeline creates a pipeline. vision and layout may be nil; the
// composite weighting adapts to whichever inputs are present.
func NewPipeline(opts Options, vision VisionScorer, layout LayoutScorer, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{opts: opts, vision: vision, layout: layout, log: log}
}

// Compare runs the pipeline over one pair.
//
// # Description
//
// The pair is first aligned to a shared canvas, then pixel differencing
// and SSIM run concurrently since neither depends on the other. Region
// extraction and heatmap composition read the diff image afterward.
// Optional scorer failures degrade the composite weighting rather than
// failing the round.
//
// # Inputs
//
//   - ctx: Cancels the optional model calls.
//   - design: The target design image.
//   - rendered: The captured screenshot.
//
// # Outputs
//
//   - *Result: The full comparison evidence.
//   - error: Non-nil only for pipeline failures (dimension bugs),
//     never for optional scorer failures.
func (p *Pipeline) Compare(ctx context.Context, design, rendered image.Image) (*Result, error) {
	start := time.Now()

	alignedDesign, alignedRendered := imagery.AlignPair(design, rendered)

	var (
		diff *imagery.PixelDiff
		ssim *imagery.SSIMResult
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		diff, err = imagery.DiffPixels(alignedDesign, alignedRendered, p.opts.Diff)
		if err != nil {
			return fmt.Errorf("compare: pixel diff: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		ssim, err = imagery.SSIM(alignedDesign, alignedRendered, p.opts.SSIM)
		if err != nil {
			return fmt.Errorf("compare: ssim: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	regions := imagery.FindDiffRegions(diff.Image, p.opts.Region)
	heatmap := imagery.Heatmap(diff.Image, alignedDesign)
	crops := imagery.CropRegions(alignedDesign, alignedRendered, regions)

	res := &Result{
		SSIM:      ssim.MSSIM,
		PixelDiff: diff,
		Regions:   regions,
		Heatmap:   heatmap,
		Crops:     crops,
	}

	if p.layout != nil {
		if v, err := p.layout.Score(ctx, alignedDesign, alignedRendered); err != nil {
			p.log.Warn("layout scorer failed, weighting without it", "error", err)
		} else {
			res.LayoutScore = &v
		}
	}

	if p.vision != nil {
		if v, err := p.vision.Score(ctx, alignedDesign, alignedRendered, heatmap); err != nil {
			p.log.Warn("vision scorer failed, weighting without it", "error", err)
		} else {
			res.VisionScore = &v
		}
	}

	res.Composite = score.Composite(score.Inputs{
		SSIM:   res.SSIM,
		Layout: res.LayoutScore,
		Vision: res.VisionScore,
	})
	res.Elapsed = time.Since(start)

	p.log.Debug("comparison finished",
		"composite", res.Composite,
		"ssim", res.SSIM,
		"diff_pct", diff.DiffPercentage,
		"regions", len(regions),
		"elapsed", res.Elapsed)

	return res, nil
}
