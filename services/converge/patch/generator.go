// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package patch turns visual diff evidence into code changes. It asks
// the model for either a complete regeneration (fenced file blocks) or a
// surgical unified diff, then materializes the reply into a code bundle.
package patch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/pixelloop/services/converge"
	"github.com/AleutianAI/pixelloop/services/converge/loop"
	"github.com/AleutianAI/pixelloop/services/llm"
)

// ErrPatchGeneration is the sentinel for a round-level generation
// failure: the model call failed, or its reply could not be parsed or
// applied. The loop retries the round; prior code stays on disk.
var ErrPatchGeneration = errors.New("patch: generation failed")

// Generator implements the loop's code generation collaborator on top
// of an LLM client.
type Generator struct {
	client llm.Client
	params llm.GenerationParams
	log    *slog.Logger
}

// NewGenerator wraps a model client. Generation runs at temperature 0.2
// unless overridden, keeping successive patches reasonably stable.
func NewGenerator(client llm.Client, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{
		client: client,
		params: llm.GenerationParams{
			Temperature: llm.Float32Ptr(0.2),
		},
		log: log,
	}
}

// Generate implements loop.PatchGenerator.
//
// # Description
//
// For full_regen the model returns complete files in fenced blocks and
// the result replaces the bundle wholesale. For surgical_patch the model
// returns a unified diff that is applied to the current bundle; files
// the diff does not touch pass through unchanged.
//
// # Outputs
//
//   - *loop.PatchResult: The next code state and the touched files.
//   - error: Wraps ErrPatchGeneration for anything retryable.
func (g *Generator) Generate(ctx context.Context, req loop.PatchRequest) (*loop.PatchResult, error) {
	switch req.Strategy {
	case converge.StrategySurgicalPatch:
		return g.surgical(ctx, req)
	default:
		// Initial generation arrives with full_regen and no comparison.
		return g.fullRegen(ctx, req)
	}
}

func (g *Generator) fullRegen(ctx context.Context, req loop.PatchRequest) (*loop.PatchResult, error) {
	prompt := buildFullRegenPrompt(req)

	reply, err := g.client.Generate(ctx, prompt, g.params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatchGeneration, err)
	}

	bundle, err := ParseFileBlocks(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatchGeneration, err)
	}
	if len(bundle) == 0 {
		return nil, fmt.Errorf("%w: reply contained no file blocks", ErrPatchGeneration)
	}

	g.log.Info("full regeneration produced", "files", len(bundle))
	return &loop.PatchResult{
		Code:          bundle,
		FilesModified: bundle.Paths(),
	}, nil
}

func (g *Generator) surgical(ctx context.Context, req loop.PatchRequest) (*loop.PatchResult, error) {
	prompt := buildSurgicalPrompt(req)

	reply, err := g.client.Generate(ctx, prompt, g.params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatchGeneration, err)
	}

	diffText := ExtractDiff(reply)
	if diffText == "" {
		return nil, fmt.Errorf("%w: reply contained no unified diff", ErrPatchGeneration)
	}

	next, touched, err := ApplyUnifiedDiff(req.CurrentCode, diffText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPatchGeneration, err)
	}
	if len(touched) == 0 {
		return nil, fmt.Errorf("%w: diff touched no files", ErrPatchGeneration)
	}

	g.log.Info("surgical patch applied", "files", touched)
	return &loop.PatchResult{
		Code:          next,
		FilesModified: touched,
	}, nil
}
