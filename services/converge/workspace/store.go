// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workspace owns the generated project on disk: committing code
// bundles, per-iteration backups for rollback, and the post-write settle
// wait that gives the dev server time to rebuild.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/pixelloop/services/converge"
)

// ErrBackupExists is returned when a backup for an iteration would be
// overwritten. Backups are write-once.
var ErrBackupExists = errors.New("workspace: backup already exists")

// ErrBackupMissing is returned when a requested backup does not exist.
var ErrBackupMissing = errors.New("workspace: backup not found")

// skipDirs are project subtrees never snapshotted or watched. They are
// build output or dependency caches, not generated source.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	".next":        true,
}

// Config configures the store.
type Config struct {
	// ProjectDir is the generated project root the dev server serves.
	ProjectDir string

	// BackupDir holds per-iteration snapshots. Defaults to
	// "<ProjectDir>/../.pixelloop/backups".
	BackupDir string

	// SettleWindow is how long the project tree must stay quiet before
	// AwaitSettle returns. Default: 500ms.
	SettleWindow time.Duration

	// SettleTimeout bounds AwaitSettle. Default: 10s.
	SettleTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.BackupDir == "" {
		c.BackupDir = filepath.Join(filepath.Dir(c.ProjectDir), ".pixelloop", "backups")
	}
	if c.SettleWindow <= 0 {
		c.SettleWindow = 500 * time.Millisecond
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Store is the filesystem collaborator for one convergence run.
//
// # Thread Safety
//
// Safe for concurrent use; all mutating operations hold the lock.
type Store struct {
	cfg Config
	mu  sync.Mutex
}

// NewStore creates the project and backup directories.
func NewStore(cfg Config) (*Store, error) {
	if cfg.ProjectDir == "" {
		return nil, fmt.Errorf("workspace: project dir is required")
	}
	cfg.defaults()

	if err := os.MkdirAll(cfg.ProjectDir, 0o750); err != nil {
		return nil, fmt.Errorf("workspace: create project dir: %w", err)
	}
	if err := os.MkdirAll(cfg.BackupDir, 0o750); err != nil {
		return nil, fmt.Errorf("workspace: create backup dir: %w", err)
	}
	return &Store{cfg: cfg}, nil
}

// ProjectDir returns the project root.
func (s *Store) ProjectDir() string {
	return s.cfg.ProjectDir
}

// WriteFiles commits a bundle to the project directory. Paths are
// validated against escaping the project root.
func (s *Store) WriteFiles(bundle converge.CodeBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rel := range bundle.Paths() {
		abs, err := s.resolve(rel)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
			return fmt.Errorf("workspace: create dir for %s: %w", rel, err)
		}
		if err := os.WriteFile(abs, []byte(bundle[rel]), 0o640); err != nil {
			return fmt.Errorf("workspace: write %s: %w", rel, err)
		}
	}
	s.cfg.Logger.Debug("committed bundle", "files", len(bundle))
	return nil
}

// Backup snapshots the current project files under the iteration's
// directory. Write-once: a second backup for the same iteration fails
// with ErrBackupExists, keeping the snapshot that actually produced the
// recorded score.
func (s *Store) Backup(iteration int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.backupPath(iteration)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: iteration %d", ErrBackupExists, iteration)
	}

	bundle, err := s.readTree(s.cfg.ProjectDir)
	if err != nil {
		return fmt.Errorf("workspace: snapshot iteration %d: %w", iteration, err)
	}

	for rel, content := range bundle {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
			return fmt.Errorf("workspace: backup dir for %s: %w", rel, err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o640); err != nil {
			return fmt.Errorf("workspace: backup %s: %w", rel, err)
		}
	}
	s.cfg.Logger.Debug("backup written", "iteration", iteration, "files", len(bundle))
	return nil
}

// Restore reads an iteration's backup without writing it to the project.
func (s *Store) Restore(iteration int) (converge.CodeBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.backupPath(iteration)
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("%w: iteration %d", ErrBackupMissing, iteration)
	}
	bundle, err := s.readTree(dir)
	if err != nil {
		return nil, fmt.Errorf("workspace: read backup %d: %w", iteration, err)
	}
	return bundle, nil
}

// ListBackups returns existing backup iterations in ascending order.
func (s *Store) ListBackups() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.cfg.BackupDir)
	if err != nil {
		return nil
	}
	var iters []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(e.Name(), "iter_%d", &n); err == nil {
			iters = append(iters, n)
		}
	}
	sort.Ints(iters)
	return iters
}

func (s *Store) backupPath(iteration int) string {
	return filepath.Join(s.cfg.BackupDir, fmt.Sprintf("iter_%03d", iteration))
}

// resolve maps a bundle-relative path to an absolute one, rejecting
// escapes from the project root.
func (s *Store) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("workspace: path escapes project root: %q", rel)
	}
	return filepath.Join(s.cfg.ProjectDir, clean), nil
}

// readTree loads every regular file under root into a bundle, keyed by
// slash-separated relative path.
func (s *Store) readTree(root string) (converge.CodeBundle, error) {
	bundle := make(converge.CodeBundle)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		bundle[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bundle, nil
}
