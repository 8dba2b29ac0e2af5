// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/pixelloop/pkg/logging"
	"github.com/AleutianAI/pixelloop/pkg/ux"
	"github.com/AleutianAI/pixelloop/services/converge/capture"
	"github.com/AleutianAI/pixelloop/services/converge/compare"
	"github.com/AleutianAI/pixelloop/services/converge/config"
	"github.com/AleutianAI/pixelloop/services/converge/imagery"
	"github.com/AleutianAI/pixelloop/services/converge/loop"
	"github.com/AleutianAI/pixelloop/services/converge/patch"
	"github.com/AleutianAI/pixelloop/services/converge/vision"
	"github.com/AleutianAI/pixelloop/services/converge/workspace"
	"github.com/AleutianAI/pixelloop/services/llm"
)

var (
	flagDesign     string
	flagProjectDir string
	flagBaseURL    string
	flagRoute      string
	flagProvider   string
	flagVision     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the convergence loop against a design image",
	RunE:  runConvergence,
}

func init() {
	runCmd.Flags().StringVarP(&flagDesign, "design", "d", "", "target design image (png or jpeg)")
	runCmd.Flags().StringVarP(&flagProjectDir, "project-dir", "p", "", "generated project root")
	runCmd.Flags().StringVarP(&flagBaseURL, "base-url", "u", "", "dev server origin, e.g. http://localhost:5173")
	runCmd.Flags().StringVar(&flagRoute, "route", "", "route to capture (default /)")
	runCmd.Flags().StringVar(&flagProvider, "provider", "", "model backend: openai or ollama")
	runCmd.Flags().BoolVar(&flagVision, "vision", false, "enable multimodal similarity scoring")
}

func runConvergence(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	overlayFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	runID := uuid.NewString()[:8]
	artifactDir := filepath.Join(cfg.ArtifactDir, runID)

	log, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		LogDir:  artifactDir,
		Service: "pixelloop",
		Quiet:   true,
	})
	if err != nil {
		return err
	}
	defer log.Close()
	log.Info("run starting", "run_id", runID, "design", cfg.Design, "route", cfg.Route)

	design, err := imagery.DecodeFile(cfg.Design)
	if err != nil {
		return fmt.Errorf("load design: %w", err)
	}

	store, err := workspace.NewStore(workspace.Config{
		ProjectDir: cfg.ProjectDir,
		Logger:     log.Logger,
	})
	if err != nil {
		return err
	}

	browser := capture.NewBrowser(capture.Config{
		BaseURL:        cfg.BaseURL,
		ViewportWidth:  cfg.Viewport.Width,
		ViewportHeight: cfg.Viewport.Height,
		Logger:         log.Logger,
	})
	defer browser.Close()

	client, err := buildClient(cfg.Provider)
	if err != nil {
		return err
	}

	var visionScorer compare.VisionScorer
	if cfg.VisionScoring {
		visionScorer = vision.NewScorer(client, log.Logger)
	}
	pipeline := compare.NewPipeline(compare.DefaultOptions(), visionScorer, nil, log.Logger)

	artifacts, err := compare.NewArtifactWriter(artifactDir)
	if err != nil {
		return err
	}

	reporter := ux.NewRoundReporter(os.Stdout)
	ctrl, err := loop.NewController(cfg.LoopConfig(), loop.Dependencies{
		Capture:   browser,
		Compare:   pipeline,
		Patch:     patch.NewGenerator(client, log.Logger),
		Workspace: store,
		Artifacts: artifacts,
		Observer: func(s loop.IterationState) {
			reporter.Phase(s.Iteration, s.Phase.String())
		},
		Logger: log.Logger,
	}, filepath.Join(artifactDir, "iterations.json"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ux.Title("pixelloop")
	ux.Info("run %s: converging %s toward %s", runID, cfg.BaseURL+cfg.Route, cfg.Design)

	start := time.Now()
	res, runErr := ctrl.Run(ctx, design, cfg.Route)

	if res != nil {
		for _, rec := range res.History {
			reporter.Round(rec.Iteration, rec.Score, string(rec.Category), rec.Strategy.String())
		}
		reporter.Summary(res.FinalScore, res.Iterations, string(res.StopReason))
		ux.Info("artifacts in %s (%.0fs elapsed)", artifactDir, time.Since(start).Seconds())
	}
	if runErr != nil {
		ux.Error("run failed: %v", runErr)
		return runErr
	}
	if res.StopReason != loop.StopSuccess {
		ux.Warn("stopped without reaching threshold (%s)", res.StopReason)
	} else {
		ux.Success("converged")
	}
	return nil
}

// overlayFlags applies explicitly set CLI flags over the file config.
func overlayFlags(cmd *cobra.Command, cfg *config.Config) {
	if flagDesign != "" {
		cfg.Design = flagDesign
	}
	if flagProjectDir != "" {
		cfg.ProjectDir = flagProjectDir
	}
	if flagBaseURL != "" {
		cfg.BaseURL = flagBaseURL
	}
	if flagRoute != "" {
		cfg.Route = flagRoute
	}
	if flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if cmd.Flags().Changed("vision") {
		cfg.VisionScoring = flagVision
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
}

func buildClient(provider string) (llm.Client, error) {
	switch provider {
	case "ollama":
		return llm.NewOllamaClient()
	default:
		return llm.NewOpenAIClient()
	}
}
