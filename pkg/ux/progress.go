// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"fmt"
	"io"
	"strings"
)

// RoundReporter renders per-iteration progress lines and the final run
// summary for the convergence loop.
type RoundReporter struct {
	w io.Writer
}

// NewRoundReporter writes to w.
func NewRoundReporter(w io.Writer) *RoundReporter {
	return &RoundReporter{w: w}
}

// Phase prints the current phase of a round, overwriting in place when
// the terminal supports it.
func (r *RoundReporter) Phase(iteration int, phase string) {
	if !interactive {
		fmt.Fprintf(r.w, "ITER %d PHASE %s\n", iteration, phase)
		return
	}
	fmt.Fprintf(r.w, "\r\033[K%s iteration %d: %s",
		Styles.Muted.Render(string(IconPending)), iteration, phase)
}

// Round prints one completed round's score line.
func (r *RoundReporter) Round(iteration int, score float64, category, strategy string) {
	if !interactive {
		fmt.Fprintf(r.w, "ITER %d SCORE %.3f CATEGORY %s STRATEGY %s\n",
			iteration, score, category, strategy)
		return
	}
	icon := IconArrow
	style := Styles.Subtitle
	switch category {
	case "achieved", "improved":
		icon, style = IconSuccess, Styles.Success
	case "regressed":
		icon, style = IconWarning, Styles.Warning
	}
	fmt.Fprintf(r.w, "\r\033[K%s iteration %d: %s %s\n",
		icon.Render(),
		iteration,
		style.Render(fmt.Sprintf("%.3f", score)),
		Styles.Muted.Render(fmt.Sprintf("%s via %s", category, strategy)))
}

// Summary prints the final result box.
func (r *RoundReporter) Summary(score float64, iterations int, stopReason string) {
	if !interactive {
		fmt.Fprintf(r.w, "DONE SCORE %.3f ITERATIONS %d REASON %s\n",
			score, iterations, stopReason)
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", Styles.Title.Render("convergence finished"))
	fmt.Fprintf(&b, "final score  %s\n", Styles.Highlight.Render(fmt.Sprintf("%.3f", score)))
	fmt.Fprintf(&b, "iterations   %d\n", iterations)
	fmt.Fprintf(&b, "stop reason  %s", stopReason)
	fmt.Fprintln(r.w, Styles.Box.Render(b.String()))
}
