// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/pixelloop/services/converge"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s, err := NewStore(Config{
		ProjectDir:    filepath.Join(root, "project"),
		BackupDir:     filepath.Join(root, "backups"),
		SettleWindow:  50 * time.Millisecond,
		SettleTimeout: 500 * time.Millisecond,
	})
	require.NoError(t, err)
	return s
}

func TestStore_WriteFiles(t *testing.T) {
	s := newTestStore(t)

	bundle := converge.CodeBundle{
		"src/App.tsx":   "export default function App() {}",
		"src/index.css": "body { margin: 0; }",
	}
	require.NoError(t, s.WriteFiles(bundle))

	data, err := os.ReadFile(filepath.Join(s.ProjectDir(), "src", "App.tsx"))
	require.NoError(t, err)
	assert.Equal(t, "export default function App() {}", string(data))
}

func TestStore_WriteFilesRejectsEscape(t *testing.T) {
	s := newTestStore(t)

	tests := []string{
		"../outside.txt",
		"../../etc/passwd",
		"/etc/passwd",
	}
	for _, path := range tests {
		err := s.WriteFiles(converge.CodeBundle{path: "x"})
		assert.Error(t, err, path)
	}
}

func TestStore_BackupAndRestore(t *testing.T) {
	s := newTestStore(t)

	v1 := converge.CodeBundle{"src/App.tsx": "version one"}
	require.NoError(t, s.WriteFiles(v1))
	require.NoError(t, s.Backup(1))

	v2 := converge.CodeBundle{"src/App.tsx": "version two"}
	require.NoError(t, s.WriteFiles(v2))
	require.NoError(t, s.Backup(2))

	restored, err := s.Restore(1)
	require.NoError(t, err)
	assert.Equal(t, "version one", restored["src/App.tsx"])

	restored, err = s.Restore(2)
	require.NoError(t, err)
	assert.Equal(t, "version two", restored["src/App.tsx"])
}

func TestStore_BackupIsWriteOnce(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.WriteFiles(converge.CodeBundle{"a.txt": "original"}))
	require.NoError(t, s.Backup(1))

	require.NoError(t, s.WriteFiles(converge.CodeBundle{"a.txt": "mutated"}))
	err := s.Backup(1)
	require.ErrorIs(t, err, ErrBackupExists)

	// The first snapshot survives the rejected overwrite.
	restored, err := s.Restore(1)
	require.NoError(t, err)
	assert.Equal(t, "original", restored["a.txt"])
}

func TestStore_RestoreMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Restore(7)
	assert.ErrorIs(t, err, ErrBackupMissing)
}

func TestStore_ListBackups(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteFiles(converge.CodeBundle{"a.txt": "x"}))

	assert.Empty(t, s.ListBackups())

	require.NoError(t, s.Backup(3))
	require.NoError(t, s.Backup(1))
	require.NoError(t, s.Backup(2))

	assert.Equal(t, []int{1, 2, 3}, s.ListBackups())
}

func TestStore_BackupSkipsDependencyCaches(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.WriteFiles(converge.CodeBundle{"src/App.tsx": "code"}))
	require.NoError(t, os.MkdirAll(filepath.Join(s.ProjectDir(), "node_modules", "react"), 0o750))
	require.NoError(t, os.WriteFile(
		filepath.Join(s.ProjectDir(), "node_modules", "react", "index.js"), []byte("huge"), 0o640))

	require.NoError(t, s.Backup(1))

	restored, err := s.Restore(1)
	require.NoError(t, err)
	assert.Contains(t, restored, "src/App.tsx")
	assert.NotContains(t, restored, "node_modules/react/index.js")
}

func TestAwaitSettle_QuietTreeReturnsQuickly(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteFiles(converge.CodeBundle{"a.txt": "x"}))

	start := time.Now()
	require.NoError(t, s.AwaitSettle(context.Background()))
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestAwaitSettle_CanceledContext(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.AwaitSettle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
