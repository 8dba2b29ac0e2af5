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
	"encoding/json"
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/pixelloop/pkg/logging"
	"github.com/AleutianAI/pixelloop/pkg/ux"
	"github.com/AleutianAI/pixelloop/services/converge/compare"
	"github.com/AleutianAI/pixelloop/services/converge/imagery"
	"github.com/AleutianAI/pixelloop/services/converge/report"
)

var (
	flagCompareJSON    bool
	flagCompareHeatmap string
)

var compareCmd = &cobra.Command{
	Use:   "compare <design> <screenshot>",
	Short: "Compare two images once, without running the loop",
	Args:  cobra.ExactArgs(2),
	RunE:  runCompare,
}

func init() {
	compareCmd.Flags().BoolVar(&flagCompareJSON, "json", false, "emit the full report as JSON")
	compareCmd.Flags().StringVar(&flagCompareHeatmap, "heatmap", "", "write the difference heatmap PNG to this path")
}

// compareOutput is the JSON shape of a one-shot comparison.
type compareOutput struct {
	Composite float64                 `json:"composite_score"`
	SSIM      float64                 `json:"ssim"`
	DiffPct   float64                 `json:"diff_percentage"`
	Strategy  string                  `json:"suggested_strategy"`
	Summary   string                  `json:"summary"`
	Regions   []report.AnalyzedRegion `json:"regions"`
}

func runCompare(_ *cobra.Command, args []string) error {
	design, err := imagery.DecodeFile(args[0])
	if err != nil {
		return fmt.Errorf("load design: %w", err)
	}
	screenshot, err := imagery.DecodeFile(args[1])
	if err != nil {
		return fmt.Errorf("load screenshot: %w", err)
	}

	log := logging.Default()
	pipeline := compare.NewPipeline(compare.DefaultOptions(), nil, nil, log.Logger)

	res, err := pipeline.Compare(context.Background(), design, screenshot)
	if err != nil {
		return err
	}
	rpt := report.Build(report.BuildInput{
		Regions:        res.Regions,
		CompositeScore: res.Composite,
	})

	if flagCompareHeatmap != "" {
		f, err := os.Create(flagCompareHeatmap)
		if err != nil {
			return fmt.Errorf("create heatmap file: %w", err)
		}
		defer f.Close()
		if err := png.Encode(f, res.Heatmap); err != nil {
			return fmt.Errorf("encode heatmap: %w", err)
		}
	}

	if flagCompareJSON {
		out := compareOutput{
			Composite: res.Composite,
			SSIM:      res.SSIM,
			DiffPct:   res.PixelDiff.DiffPercentage,
			Strategy:  string(rpt.SuggestedStrategy),
			Summary:   rpt.Summary,
			Regions:   rpt.Regions,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	ux.Title("comparison")
	ux.Info("composite %.3f  ssim %.3f  differing pixels %.1f%%",
		res.Composite, res.SSIM, res.PixelDiff.DiffPercentage*100)
	for i, region := range rpt.Regions {
		ux.Info("%d. [%s/%s] %s", i+1, region.Classification, region.Priority, region.Description)
	}
	ux.Info("suggested strategy: %s", rpt.SuggestedStrategy)
	return nil
}
