// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm abstracts the model backends used for code generation and
// visual scoring. The converge services depend only on the Client
// interface; provider selection happens at wiring time.
package llm

import "context"

// GenerationParams tunes one generation request. Nil fields use the
// provider's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// ImageInput is one image attached to a multimodal request.
type ImageInput struct {
	// Data is the raw encoded image.
	Data []byte

	// MIME is the content type, e.g. "image/png".
	MIME string
}

// Client is the standard interface for any model backend.
type Client interface {
	// Generate produces text from a text-only prompt.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// GenerateVision produces text from a prompt plus attached images.
	// Backends without multimodal support return an error.
	GenerateVision(ctx context.Context, prompt string, images []ImageInput, params GenerationParams) (string, error)
}

// Float32Ptr is a convenience for building GenerationParams literals.
func Float32Ptr(v float32) *float32 { return &v }

// IntPtr is a convenience for building GenerationParams literals.
func IntPtr(v int) *int { return &v }
