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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/pixelloop/pkg/ux"
)

var (
	flagConfig   string
	flagLogLevel string
	flagPlain    bool
)

var rootCmd = &cobra.Command{
	Use:   "pixelloop",
	Short: "Converge a rendered UI toward a target design image",
	Long: `pixelloop drives a generate-render-compare-patch loop: it generates UI
code, screenshots the dev server's rendering, measures visual similarity
against a target design, and patches the code until the two converge.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagPlain {
			ux.SetInteractive(false)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to pixelloop.yaml")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "debug, info, warn, or error")
	rootCmd.PersistentFlags().BoolVar(&flagPlain, "plain", false, "machine-readable output, no styling")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
}
