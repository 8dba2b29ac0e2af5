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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/pixelloop/services/converge"
)

func TestParseFileBlocks(t *testing.T) {
	reply := "Here is the project:\n\n" +
		"```file:src/App.tsx\n" +
		"export default function App() {\n  return <div>hello</div>;\n}\n" +
		"```\n\n" +
		"```file:src/index.css\n" +
		"body { margin: 0; }\n" +
		"```\n"

	bundle, err := ParseFileBlocks(reply)
	require.NoError(t, err)
	require.Len(t, bundle, 2)

	assert.Equal(t, "export default function App() {\n  return <div>hello</div>;\n}", bundle["src/App.tsx"])
	assert.Equal(t, "body { margin: 0; }", bundle["src/index.css"])
}

func TestParseFileBlocks_LanguageTag(t *testing.T) {
	reply := "```tsx file:src/App.tsx\nconst x = 1;\n```\n"

	bundle, err := ParseFileBlocks(reply)
	require.NoError(t, err)
	assert.Equal(t, "const x = 1;", bundle["src/App.tsx"])
}

func TestParseFileBlocks_DuplicatePath(t *testing.T) {
	reply := "```file:a.txt\none\n```\n```file:a.txt\ntwo\n```\n"

	_, err := ParseFileBlocks(reply)
	assert.Error(t, err)
}

func TestParseFileBlocks_NoBlocks(t *testing.T) {
	bundle, err := ParseFileBlocks("sorry, I cannot help with that")
	require.NoError(t, err)
	assert.Empty(t, bundle)
}

const sampleDiff = `--- a/src/App.tsx
+++ b/src/App.tsx
@@ -1,3 +1,3 @@
 line one
-line two
+line two changed
 line three
`

func TestExtractDiff_Fenced(t *testing.T) {
	reply := "Here is the patch:\n\n```diff\n" + sampleDiff + "```\n"
	got := ExtractDiff(reply)
	assert.Contains(t, got, "+++ b/src/App.tsx")
	assert.Contains(t, got, "+line two changed")
}

func TestExtractDiff_Bare(t *testing.T) {
	got := ExtractDiff(sampleDiff)
	assert.Contains(t, got, "@@")
}

func TestExtractDiff_NoDiff(t *testing.T) {
	assert.Empty(t, ExtractDiff("no patch needed, everything matches"))
}

func TestApplyUnifiedDiff_ModifiesLine(t *testing.T) {
	current := converge.CodeBundle{
		"src/App.tsx": "line one\nline two\nline three",
	}

	next, touched, err := ApplyUnifiedDiff(current, sampleDiff)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/App.tsx"}, touched)
	assert.Equal(t, "line one\nline two changed\nline three", next["src/App.tsx"])
	// Input bundle untouched.
	assert.Equal(t, "line one\nline two\nline three", current["src/App.tsx"])
}

func TestApplyUnifiedDiff_CreatesFile(t *testing.T) {
	diffText := `--- /dev/null
+++ b/src/new.css
@@ -0,0 +1,2 @@
+.card {
+}
`
	next, touched, err := ApplyUnifiedDiff(converge.CodeBundle{}, diffText)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/new.css"}, touched)
	assert.Equal(t, ".card {\n}", next["src/new.css"])
}

func TestApplyUnifiedDiff_DeletesFile(t *testing.T) {
	diffText := `--- a/src/old.css
+++ /dev/null
@@ -1,1 +0,0 @@
-gone
`
	current := converge.CodeBundle{"src/old.css": "gone", "src/keep.css": "kept"}

	next, touched, err := ApplyUnifiedDiff(current, diffText)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/old.css"}, touched)
	assert.NotContains(t, next, "src/old.css")
	assert.Equal(t, "kept", next["src/keep.css"])
}

func TestApplyUnifiedDiff_UnknownFile(t *testing.T) {
	_, _, err := ApplyUnifiedDiff(converge.CodeBundle{}, sampleDiff)
	assert.Error(t, err)
}

func TestApplyUnifiedDiff_ContextMismatch(t *testing.T) {
	current := converge.CodeBundle{
		"src/App.tsx": "completely\ndifferent\ncontent",
	}
	_, _, err := ApplyUnifiedDiff(current, sampleDiff)
	assert.Error(t, err)
}

func TestApplyUnifiedDiff_MalformedDiff(t *testing.T) {
	_, _, err := ApplyUnifiedDiff(converge.CodeBundle{}, "not a diff at all")
	assert.Error(t, err)
}
