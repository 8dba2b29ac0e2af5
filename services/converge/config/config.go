// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the pixelloop run configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/pixelloop/services/converge/loop"
)

var configValidate = validator.New()

// Duration wraps time.Duration so YAML values like "10m" or "90s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ErrConfigValidation wraps any field-level validation failure.
var ErrConfigValidation = errors.New("config: validation failed")

// Config is the full run configuration, loadable from YAML and
// overridable by CLI flags.
type Config struct {
	// Design is the path to the target design image (PNG or JPEG).
	Design string `yaml:"design" validate:"required"`

	// ProjectDir is the generated project root the dev server serves.
	ProjectDir string `yaml:"project_dir" validate:"required"`

	// BaseURL is the dev server origin.
	BaseURL string `yaml:"base_url" validate:"required,url"`

	// Route is the page to capture, relative to BaseURL.
	Route string `yaml:"route"`

	// ArtifactDir receives screenshots, heatmaps, and iterations.json.
	ArtifactDir string `yaml:"artifact_dir"`

	// Provider selects the model backend.
	Provider string `yaml:"provider" validate:"oneof=openai ollama"`

	// VisionScoring enables the multimodal similarity judge.
	VisionScoring bool `yaml:"vision_scoring"`

	// Loop tunes the convergence decisions.
	Loop LoopConfig `yaml:"loop"`

	// Viewport fixes the capture resolution.
	Viewport ViewportConfig `yaml:"viewport"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// LoopConfig mirrors loop.Config in YAML form.
type LoopConfig struct {
	Threshold            float64       `yaml:"threshold" validate:"gt=0,lte=1"`
	MaxIterations        int           `yaml:"max_iterations" validate:"gte=1,lte=100"`
	ImprovementThreshold float64       `yaml:"improvement_threshold" validate:"gte=0,lt=1"`
	PatchSwitchThreshold float64       `yaml:"patch_switch_threshold" validate:"gte=0,lte=1"`
	OverallTimeout       Duration      `yaml:"overall_timeout"`
	RoundRetries         int           `yaml:"round_retries" validate:"gte=0,lte=10"`
}

// ViewportConfig is the capture resolution.
type ViewportConfig struct {
	Width  int `yaml:"width" validate:"gte=320,lte=3840"`
	Height int `yaml:"height" validate:"gte=240,lte=2160"`
}

// Default returns the configuration defaults. Design, ProjectDir, and
// BaseURL have no sensible defaults and must come from the file or
// flags.
func Default() Config {
	lc := loop.DefaultConfig()
	return Config{
		Route:       "/",
		ArtifactDir: ".pixelloop/artifacts",
		Provider:    "openai",
		Loop: LoopConfig{
			Threshold:            lc.Threshold,
			MaxIterations:        lc.MaxIterations,
			ImprovementThreshold: lc.ImprovementThreshold,
			PatchSwitchThreshold: lc.PatchSwitchThreshold,
			OverallTimeout:       Duration(lc.OverallTimeout),
			RoundRetries:         lc.RoundRetries,
		},
		Viewport: ViewportConfig{Width: 1280, Height: 800},
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults and validates the result.
// An empty path returns the defaults unvalidated, for flag-only runs.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field consistency.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigValidation, err)
	}
	if c.Loop.PatchSwitchThreshold > c.Loop.Threshold {
		return fmt.Errorf("%w: patch_switch_threshold %.2f exceeds threshold %.2f",
			ErrConfigValidation, c.Loop.PatchSwitchThreshold, c.Loop.Threshold)
	}
	return nil
}

// LoopConfig converts to the controller's config type.
func (c *Config) LoopConfig() loop.Config {
	return loop.Config{
		Threshold:            c.Loop.Threshold,
		MaxIterations:        c.Loop.MaxIterations,
		ImprovementThreshold: c.Loop.ImprovementThreshold,
		PatchSwitchThreshold: c.Loop.PatchSwitchThreshold,
		OverallTimeout:       time.Duration(c.Loop.OverallTimeout),
		RoundRetries:         c.Loop.RoundRetries,
	}
}
