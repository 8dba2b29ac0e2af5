// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compare

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/pixelloop/services/converge/imagery"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

type stubVision struct {
	score      float64
	err        error
	calls      int
	gotHeatmap bool
}

func (s *stubVision) Score(_ context.Context, _, _, heatmap *image.RGBA) (float64, error) {
	s.calls++
	s.gotHeatmap = heatmap != nil
	return s.score, s.err
}

type stubLayout struct {
	score float64
	err   error
}

func (s *stubLayout) Score(_ context.Context, _, _ *image.RGBA) (float64, error) {
	return s.score, s.err
}

func TestPipeline_IdenticalImages(t *testing.T) {
	p := NewPipeline(DefaultOptions(), nil, nil, nil)
	img := solid(64, 64, color.RGBA{120, 130, 140, 255})

	res, err := p.Compare(context.Background(), img, img)
	require.NoError(t, err)

	assert.Greater(t, res.Composite, 0.99)
	assert.Zero(t, res.PixelDiff.DiffCount)
	assert.Empty(t, res.Regions)
	assert.Nil(t, res.VisionScore)
	assert.Nil(t, res.LayoutScore)
}

func TestPipeline_DifferentImagesProduceEvidence(t *testing.T) {
	p := NewPipeline(DefaultOptions(), nil, nil, nil)
	design := solid(128, 128, color.RGBA{255, 255, 255, 255})
	rendered := solid(128, 128, color.RGBA{0, 0, 0, 255})

	res, err := p.Compare(context.Background(), design, rendered)
	require.NoError(t, err)

	assert.Less(t, res.Composite, 0.5)
	assert.Greater(t, res.PixelDiff.DiffPercentage, 0.9)
	assert.NotEmpty(t, res.Regions)
	assert.NotNil(t, res.Heatmap)
	assert.NotEmpty(t, res.Crops)
}

func TestPipeline_AlignsMismatchedSizes(t *testing.T) {
	p := NewPipeline(DefaultOptions(), nil, nil, nil)
	design := solid(100, 80, color.RGBA{200, 200, 200, 255})
	rendered := solid(60, 120, color.RGBA{200, 200, 200, 255})

	res, err := p.Compare(context.Background(), design, rendered)
	require.NoError(t, err)

	// Heatmap lands on the shared max canvas.
	assert.Equal(t, 100, res.Heatmap.Bounds().Dx())
	assert.Equal(t, 120, res.Heatmap.Bounds().Dy())
}

func TestPipeline_VisionScoreRaisesWeighting(t *testing.T) {
	vision := &stubVision{score: 1.0}
	p := NewPipeline(DefaultOptions(), vision, nil, nil)

	design := solid(64, 64, color.RGBA{255, 255, 255, 255})
	rendered := solid(64, 64, color.RGBA{0, 0, 0, 255})

	res, err := p.Compare(context.Background(), design, rendered)
	require.NoError(t, err)

	require.NotNil(t, res.VisionScore)
	assert.Equal(t, 1.0, *res.VisionScore)
	assert.Equal(t, 1, vision.calls)
	assert.True(t, vision.gotHeatmap, "pipeline should hand the heatmap to the scorer")
	// 0.4*ssim + 0.6*vision with a perfect vision score.
	assert.InDelta(t, 0.4*res.SSIM+0.6, res.Composite, 1e-9)
}

func TestPipeline_VisionFailureIsAbsorbed(t *testing.T) {
	vision := &stubVision{err: errors.New("model unavailable")}
	p := NewPipeline(DefaultOptions(), vision, nil, nil)

	img := solid(64, 64, color.RGBA{10, 20, 30, 255})

	res, err := p.Compare(context.Background(), img, img)
	require.NoError(t, err)

	assert.Nil(t, res.VisionScore)
	// Weighting degraded to SSIM-only.
	assert.InDelta(t, res.SSIM, res.Composite, 1e-9)
}

func TestPipeline_AllThreeSignals(t *testing.T) {
	vision := &stubVision{score: 0.8}
	layout := &stubLayout{score: 0.6}
	p := NewPipeline(DefaultOptions(), vision, layout, nil)

	img := solid(64, 64, color.RGBA{50, 50, 50, 255})

	res, err := p.Compare(context.Background(), img, img)
	require.NoError(t, err)

	require.NotNil(t, res.VisionScore)
	require.NotNil(t, res.LayoutScore)
	assert.InDelta(t, 0.3*res.SSIM+0.3*0.6+0.4*0.8, res.Composite, 1e-9)
}

func TestArtifactWriter_WritesNumberedPNGs(t *testing.T) {
	dir := t.TempDir()
	w, err := NewArtifactWriter(dir)
	require.NoError(t, err)

	img := solid(8, 8, color.RGBA{255, 0, 0, 255})
	require.NoError(t, w.WriteIteration(1, img, img))
	require.NoError(t, w.WriteIteration(12, img, nil))

	for _, name := range []string{"screenshot_001.png", "heatmap_001.png", "screenshot_012.png"} {
		decoded, err := imagery.DecodeFile(dir + "/" + name)
		require.NoError(t, err, name)
		assert.Equal(t, 8, decoded.Bounds().Dx())
	}
}
