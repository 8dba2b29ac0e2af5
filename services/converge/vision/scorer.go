// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vision scores visual similarity with a multimodal model. The
// score feeds the composite weighting; a failed call degrades the
// weighting rather than the round.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/pixelloop/services/llm"
)

const scorePrompt = `You are comparing screenshots of a web page.
The first image is the target design. The second image is the current
rendered implementation. When a third image is present it is a
difference heatmap: the design with the currently differing areas
highlighted in red.

Rate how visually similar the implementation is to the design on a scale
from 0.0 (completely different) to 1.0 (pixel-perfect). Consider layout,
spacing, colors, typography, and content placement.

Respond with ONLY the numeric score, e.g. "0.85".`

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Scorer asks a multimodal model for a similarity judgment.
type Scorer struct {
	client llm.Client
	log    *slog.Logger
}

// NewScorer wraps a multimodal-capable model client.
func NewScorer(client llm.Client, log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{client: client, log: log}
}

// Score sends the design, the rendering, and the difference heatmap
// (when present) to the model and parses a 0..1 score from its reply.
// Full-page frames score more reliably than per-region fragments; the
// heatmap rides along to direct the model's attention.
func (s *Scorer) Score(ctx context.Context, design, rendered, heatmap *image.RGBA) (float64, error) {
	frames := []*image.RGBA{design, rendered}
	if heatmap != nil {
		frames = append(frames, heatmap)
	}
	images := make([]llm.ImageInput, 0, len(frames))
	for _, img := range frames {
		data, err := encodePNG(img)
		if err != nil {
			return 0, fmt.Errorf("vision: encode image: %w", err)
		}
		images = append(images, llm.ImageInput{Data: data, MIME: "image/png"})
	}

	reply, err := s.client.GenerateVision(ctx, scorePrompt, images, llm.GenerationParams{
		Temperature: llm.Float32Ptr(0),
		MaxTokens:   llm.IntPtr(16),
	})
	if err != nil {
		return 0, fmt.Errorf("vision: model call: %w", err)
	}

	score, err := ParseScore(reply)
	if err != nil {
		return 0, err
	}
	s.log.Debug("vision score", "score", score)
	return score, nil
}

// ParseScore extracts the first number from a model reply and clamps it
// to [0,1]. Models occasionally answer "Score: 0.85" or "85" despite
// the prompt; both parse.
func ParseScore(reply string) (float64, error) {
	match := numberPattern.FindString(strings.TrimSpace(reply))
	if match == "" {
		return 0, fmt.Errorf("vision: no score in reply %q", truncate(reply, 80))
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("vision: parse score %q: %w", match, err)
	}
	// A bare integer like "85" means percent.
	if v > 1 && v <= 100 && !strings.Contains(match, ".") {
		v /= 100
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
