// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package patch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/pixelloop/services/converge"
	"github.com/AleutianAI/pixelloop/services/converge/loop"
	"github.com/AleutianAI/pixelloop/services/llm"
)

type stubLLM struct {
	reply      string
	err        error
	lastPrompt string
}

func (s *stubLLM) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	s.lastPrompt = prompt
	return s.reply, s.err
}

func (s *stubLLM) GenerateVision(_ context.Context, prompt string, _ []llm.ImageInput, _ llm.GenerationParams) (string, error) {
	return s.reply, s.err
}

func TestGenerator_InitialFullRegen(t *testing.T) {
	client := &stubLLM{reply: "```file:src/App.tsx\nconst a = 1;\n```\n"}
	g := NewGenerator(client, nil)

	res, err := g.Generate(context.Background(), loop.PatchRequest{
		Strategy: converge.StrategyFullRegen,
	})
	require.NoError(t, err)

	assert.Equal(t, "const a = 1;", res.Code["src/App.tsx"])
	assert.Equal(t, []string{"src/App.tsx"}, res.FilesModified)
	assert.Contains(t, client.lastPrompt, "first generation")
}

func TestGenerator_SurgicalAppliesDiff(t *testing.T) {
	client := &stubLLM{reply: "```diff\n" + sampleDiff + "```"}
	g := NewGenerator(client, nil)

	res, err := g.Generate(context.Background(), loop.PatchRequest{
		Strategy: converge.StrategySurgicalPatch,
		CurrentCode: converge.CodeBundle{
			"src/App.tsx": "line one\nline two\nline three",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "line one\nline two changed\nline three", res.Code["src/App.tsx"])
	assert.Equal(t, []string{"src/App.tsx"}, res.FilesModified)
}

func TestGenerator_ModelErrorWrapsSentinel(t *testing.T) {
	client := &stubLLM{err: errors.New("connection refused")}
	g := NewGenerator(client, nil)

	_, err := g.Generate(context.Background(), loop.PatchRequest{
		Strategy: converge.StrategyFullRegen,
	})
	assert.ErrorIs(t, err, ErrPatchGeneration)
}

func TestGenerator_EmptyReplyIsError(t *testing.T) {
	client := &stubLLM{reply: "I could not produce any code."}
	g := NewGenerator(client, nil)

	_, err := g.Generate(context.Background(), loop.PatchRequest{
		Strategy: converge.StrategyFullRegen,
	})
	assert.ErrorIs(t, err, ErrPatchGeneration)

	_, err = g.Generate(context.Background(), loop.PatchRequest{
		Strategy:    converge.StrategySurgicalPatch,
		CurrentCode: converge.CodeBundle{"a.txt": "x"},
	})
	assert.ErrorIs(t, err, ErrPatchGeneration)
}

func TestGenerator_SurgicalUnappliableDiffIsError(t *testing.T) {
	client := &stubLLM{reply: "```diff\n" + sampleDiff + "```"}
	g := NewGenerator(client, nil)

	_, err := g.Generate(context.Background(), loop.PatchRequest{
		Strategy:    converge.StrategySurgicalPatch,
		CurrentCode: converge.CodeBundle{"src/App.tsx": "nothing matches"},
	})
	assert.ErrorIs(t, err, ErrPatchGeneration)
}
