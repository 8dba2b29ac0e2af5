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
	"regexp"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/AleutianAI/pixelloop/services/converge"
)

// fileBlockPattern matches one fenced file block:
//
//	```file:src/App.tsx
//	<content>
//	```
//
// The language variant ```tsx file:src/App.tsx also parses.
var fileBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*file:([^\\s`]+)\n(.*?)\n?```")

// diffFencePattern matches a fenced block that holds a unified diff.
var diffFencePattern = regexp.MustCompile("(?s)```(?:diff|patch)?\n(.*?)\n?```")

// ParseFileBlocks extracts every fenced file block from a model reply
// into a bundle. Duplicate paths are an error; the model repeating a
// file means its output is unreliable.
func ParseFileBlocks(reply string) (converge.CodeBundle, error) {
	bundle := make(converge.CodeBundle)
	for _, match := range fileBlockPattern.FindAllStringSubmatch(reply, -1) {
		path := strings.TrimSpace(match[1])
		if _, dup := bundle[path]; dup {
			return nil, fmt.Errorf("patch: duplicate file block for %s", path)
		}
		bundle[path] = match[2]
	}
	return bundle, nil
}

// ExtractDiff pulls the unified diff out of a model reply. A fenced
// block wins; otherwise, if the reply itself starts with diff headers,
// it is taken verbatim. Returns "" when no diff is present.
func ExtractDiff(reply string) string {
	if m := diffFencePattern.FindStringSubmatch(reply); m != nil {
		if looksLikeDiff(m[1]) {
			return m[1]
		}
	}
	trimmed := strings.TrimSpace(reply)
	if looksLikeDiff(trimmed) {
		return trimmed
	}
	return ""
}

func looksLikeDiff(s string) bool {
	return strings.Contains(s, "--- ") && strings.Contains(s, "+++ ") && strings.Contains(s, "@@")
}

// ApplyUnifiedDiff applies a multi-file unified diff to a bundle.
//
// # Description
//
// The input bundle is not mutated; the result is a clone with the
// diff's hunks applied. Git-style a/ and b/ prefixes are stripped from
// paths. A file created by the diff (orig /dev/null) is added; a file
// deleted by the diff (new /dev/null) is removed.
//
// # Outputs
//
//   - converge.CodeBundle: The patched bundle.
//   - []string: Paths the diff touched, in diff order.
//   - error: Parse failures, hunks referencing unknown files, or
//     context mismatches.
func ApplyUnifiedDiff(current converge.CodeBundle, diffText string) (converge.CodeBundle, []string, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(diffText)).ReadAllFiles()
	if err != nil {
		return nil, nil, fmt.Errorf("patch: parse diff: %w", err)
	}

	next := current.Clone()
	var touched []string

	for _, fd := range fileDiffs {
		path := diffPath(fd)
		if path == "" {
			return nil, nil, fmt.Errorf("patch: diff entry without a path")
		}

		if fd.NewName == "/dev/null" {
			if _, ok := next[path]; !ok {
				return nil, nil, fmt.Errorf("patch: diff deletes unknown file %s", path)
			}
			delete(next, path)
			touched = append(touched, path)
			continue
		}

		original, exists := next[path]
		if !exists && fd.OrigName != "/dev/null" {
			return nil, nil, fmt.Errorf("patch: diff targets unknown file %s", path)
		}

		patched, err := applyHunks(original, fd)
		if err != nil {
			return nil, nil, fmt.Errorf("patch: apply %s: %w", path, err)
		}
		next[path] = patched
		touched = append(touched, path)
	}

	return next, touched, nil
}

// diffPath resolves a FileDiff's target path, stripping git prefixes.
func diffPath(fd *diff.FileDiff) string {
	path := fd.NewName
	if path == "" || path == "/dev/null" {
		path = fd.OrigName
	}
	path = strings.TrimPrefix(path, "a/")
	path = strings.TrimPrefix(path, "b/")
	if path == "/dev/null" {
		return ""
	}
	return path
}

// applyHunks rebuilds a file's content from its hunks. Context lines
// must match the original or the hunk is rejected.
func applyHunks(original string, fd *diff.FileDiff) (string, error) {
	if fd.OrigName == "/dev/null" || original == "" {
		var lines []string
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if strings.HasPrefix(line, "+") {
					lines = append(lines, strings.TrimPrefix(line, "+"))
				}
			}
		}
		return strings.Join(lines, "\n"), nil
	}

	origLines := strings.Split(original, "\n")
	var newLines []string
	origIdx := 0

	for _, hunk := range fd.Hunks {
		hunkStart := int(hunk.OrigStartLine) - 1
		if hunkStart < origIdx || hunkStart > len(origLines) {
			return "", fmt.Errorf("hunk start %d out of order", hunk.OrigStartLine)
		}
		newLines = append(newLines, origLines[origIdx:hunkStart]...)
		origIdx = hunkStart

		body := strings.Split(string(hunk.Body), "\n")
		if len(body) > 0 && body[len(body)-1] == "" {
			// Trailing blank from the final newline split.
			body = body[:len(body)-1]
		}
		for _, line := range body {
			switch {
			case strings.HasPrefix(line, "+"):
				newLines = append(newLines, strings.TrimPrefix(line, "+"))
			case strings.HasPrefix(line, "-"):
				if origIdx >= len(origLines) {
					return "", fmt.Errorf("hunk removes past end of file")
				}
				if origLines[origIdx] != strings.TrimPrefix(line, "-") {
					return "", fmt.Errorf("hunk context mismatch at line %d", origIdx+1)
				}
				origIdx++
			default:
				// Context: either " <text>" or a bare empty line.
				if origIdx >= len(origLines) {
					return "", fmt.Errorf("hunk context past end of file")
				}
				if origLines[origIdx] != strings.TrimPrefix(line, " ") {
					return "", fmt.Errorf("hunk context mismatch at line %d", origIdx+1)
				}
				newLines = append(newLines, origLines[origIdx])
				origIdx++
			}
		}
	}

	newLines = append(newLines, origLines[origIdx:]...)
	return strings.Join(newLines, "\n"), nil
}
