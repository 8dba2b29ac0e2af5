// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package compare

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// ArtifactWriter persists per-iteration screenshots and heatmaps as
// numbered PNGs under one directory, so a run leaves a browsable trail:
//
//	screenshot_001.png, heatmap_001.png, screenshot_002.png, ...
type ArtifactWriter struct {
	dir string
}

// NewArtifactWriter creates the directory if needed.
func NewArtifactWriter(dir string) (*ArtifactWriter, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("compare: create artifact dir: %w", err)
	}
	return &ArtifactWriter{dir: dir}, nil
}

// Dir returns the artifact directory.
func (w *ArtifactWriter) Dir() string {
	return w.dir
}

// WriteIteration writes this round's screenshot and heatmap.
func (w *ArtifactWriter) WriteIteration(iteration int, screenshot, heatmap image.Image) error {
	if screenshot != nil {
		name := filepath.Join(w.dir, fmt.Sprintf("screenshot_%03d.png", iteration))
		if err := writePNG(name, screenshot); err != nil {
			return err
		}
	}
	if heatmap != nil {
		name := filepath.Join(w.dir, fmt.Sprintf("heatmap_%03d.png", iteration))
		if err := writePNG(name, heatmap); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("compare: create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("compare: encode %s: %w", filepath.Base(path), err)
	}
	return nil
}
