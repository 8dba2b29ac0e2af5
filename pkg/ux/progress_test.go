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
	"bytes"
	"strings"
	"testing"
)

func plainMode(t *testing.T) {
	t.Helper()
	prev := Interactive()
	SetInteractive(false)
	t.Cleanup(func() { SetInteractive(prev) })
}

func TestRoundReporter_PlainRoundLine(t *testing.T) {
	plainMode(t)
	var buf bytes.Buffer
	r := NewRoundReporter(&buf)

	r.Round(3, 0.842, "improved", "surgical_patch")

	out := buf.String()
	if !strings.Contains(out, "ITER 3 SCORE 0.842") {
		t.Errorf("expected machine round line, got %q", out)
	}
	if !strings.Contains(out, "STRATEGY surgical_patch") {
		t.Errorf("expected strategy in line, got %q", out)
	}
}

func TestRoundReporter_PlainPhaseLine(t *testing.T) {
	plainMode(t)
	var buf bytes.Buffer
	r := NewRoundReporter(&buf)

	r.Phase(1, "capturing")

	if got := buf.String(); got != "ITER 1 PHASE capturing\n" {
		t.Errorf("unexpected phase line %q", got)
	}
}

func TestRoundReporter_PlainSummary(t *testing.T) {
	plainMode(t)
	var buf bytes.Buffer
	r := NewRoundReporter(&buf)

	r.Summary(0.93, 4, "success")

	out := buf.String()
	if !strings.Contains(out, "DONE SCORE 0.930 ITERATIONS 4 REASON success") {
		t.Errorf("unexpected summary %q", out)
	}
}

func TestRoundReporter_StyledRoundEndsLine(t *testing.T) {
	prev := Interactive()
	SetInteractive(true)
	t.Cleanup(func() { SetInteractive(prev) })

	var buf bytes.Buffer
	r := NewRoundReporter(&buf)
	r.Round(1, 0.5, "first", "full_regen")

	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("styled round line should end with newline")
	}
}
