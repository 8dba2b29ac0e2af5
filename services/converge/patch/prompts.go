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
	"fmt"
	"strings"

	"github.com/AleutianAI/pixelloop/services/converge/loop"
)

const fullRegenInstructions = `You are building a web UI that must match a target design.

Output every file of the project as fenced code blocks, one per file,
in exactly this format:

` + "```" + `file:src/App.tsx
<complete file content>
` + "```" + `

Output only file blocks. No commentary between them.`

const surgicalInstructions = `You are refining a web UI toward a target design with a minimal patch.

Output a single unified diff against the current files. Use standard
unified diff format with --- a/<path> and +++ b/<path> headers. Change
only what the reported differences require.

Output only the diff, inside one fenced code block.`

// buildFullRegenPrompt assembles the regeneration prompt: instructions,
// difference evidence when a comparison exists, and the current code so
// the model keeps what already matches.
func buildFullRegenPrompt(req loop.PatchRequest) string {
	var b strings.Builder
	b.WriteString(fullRegenInstructions)
	b.WriteString("\n\n")
	writeEvidence(&b, req)
	writeCurrentCode(&b, req)
	return b.String()
}

func buildSurgicalPrompt(req loop.PatchRequest) string {
	var b strings.Builder
	b.WriteString(surgicalInstructions)
	b.WriteString("\n\n")
	writeEvidence(&b, req)
	writeCurrentCode(&b, req)
	return b.String()
}

// writeEvidence renders the comparison report as numbered findings. The
// region coordinates give the model something concrete to anchor CSS
// changes on.
func writeEvidence(b *strings.Builder, req loop.PatchRequest) {
	if req.Comparison == nil {
		b.WriteString("This is the first generation; no comparison exists yet.\n\n")
		return
	}

	fmt.Fprintf(b, "Current similarity score: %.3f (target: match the design)\n", req.Comparison.Composite)
	fmt.Fprintf(b, "Differing pixels: %.1f%%\n\n", req.Comparison.PixelDiff.DiffPercentage*100)

	if req.Report != nil && len(req.Report.Regions) > 0 {
		b.WriteString("Detected differences, most important first:\n")
		for i, region := range req.Report.Regions {
			fmt.Fprintf(b, "%d. [%s/%s] at (%d,%d) size %dx%d: %s\n   Suggested fix: %s\n",
				i+1,
				region.Classification, region.Priority,
				region.Region.X, region.Region.Y,
				region.Region.Width, region.Region.Height,
				region.Description, region.Suggestion)
		}
		b.WriteString("\n")
	}
	if req.Report != nil && req.Report.Summary != "" {
		fmt.Fprintf(b, "Summary: %s\n\n", req.Report.Summary)
	}
}

func writeCurrentCode(b *strings.Builder, req loop.PatchRequest) {
	if len(req.CurrentCode) == 0 {
		return
	}
	b.WriteString("Current project files:\n\n")
	for _, path := range req.CurrentCode.Paths() {
		fmt.Fprintf(b, "```file:%s\n%s\n```\n\n", path, req.CurrentCode[path])
	}
}
