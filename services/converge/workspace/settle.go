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
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// AwaitSettle blocks until the project tree has seen no filesystem
// events for the settle window, meaning the dev server's rebuild output
// has stopped churning and a screenshot is safe.
//
// # Description
//
// Watches the project directory recursively. The wait ends when:
//
//   - no event arrives for SettleWindow (settled), or
//   - SettleTimeout elapses (treated as settled; the dev server may
//     legitimately touch files continuously), or
//   - ctx is canceled, which is the only error case.
func (s *Store) AwaitSettle(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// No watcher support: fall back to a fixed sleep.
		s.cfg.Logger.Warn("fsnotify unavailable, sleeping instead", "error", err)
		select {
		case <-time.After(s.cfg.SettleWindow):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	defer watcher.Close()

	if err := s.watchTree(watcher); err != nil {
		s.cfg.Logger.Warn("partial watch of project tree", "error", err)
	}

	quiet := time.NewTimer(s.cfg.SettleWindow)
	defer quiet.Stop()
	deadline := time.NewTimer(s.cfg.SettleTimeout)
	defer deadline.Stop()

	for {
		select {
		case ev := <-watcher.Events:
			// New directories must be watched too or later writes under
			// them go unseen.
			if ev.Op.Has(fsnotify.Create) {
				s.maybeWatchDir(watcher, ev.Name)
			}
			if !quiet.Stop() {
				select {
				case <-quiet.C:
				default:
				}
			}
			quiet.Reset(s.cfg.SettleWindow)
		case err := <-watcher.Errors:
			s.cfg.Logger.Debug("watch error during settle", "error", err)
		case <-quiet.C:
			return nil
		case <-deadline.C:
			s.cfg.Logger.Debug("settle timeout reached, proceeding")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// watchTree adds the project root and every non-skipped subdirectory.
func (s *Store) watchTree(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(s.cfg.ProjectDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func (s *Store) maybeWatchDir(watcher *fsnotify.Watcher, path string) {
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() || skipDirs[filepath.Base(path)] {
		return
	}
	if err := watcher.Add(path); err != nil {
		s.cfg.Logger.Debug("watch add failed", "path", path, "error", err)
	}
}
