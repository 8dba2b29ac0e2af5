// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package loop

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// History is the bounded, append-only iteration log owned by the
// controller for the duration of one run.
//
// # Description
//
// Records are capped at the configured maximum iteration count. When a
// persist path is set, the full log is rewritten as JSON after every
// append, so a crashed run still leaves its trace next to the artifacts.
//
// # Thread Safety
//
// Safe for concurrent use. In practice the controller is single-flow and
// only the observer reads concurrently.
type History struct {
	mu      sync.RWMutex
	records []Record
	cap     int
	path    string
}

// NewHistory creates a history bounded to maxIterations records.
// persistPath may be empty for memory-only operation.
func NewHistory(maxIterations int, persistPath string) *History {
	return &History{
		cap:  maxIterations,
		path: persistPath,
	}
}

// Append adds one record. Returns an error when the log is full or when
// persistence fails; a persistence failure does not discard the record.
func (h *History) Append(r Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cap > 0 && len(h.records) >= h.cap {
		return fmt.Errorf("loop: history full at %d records", h.cap)
	}
	h.records = append(h.records, r)

	if h.path == "" {
		return nil
	}
	return h.persistLocked()
}

// Records returns a copy of the log in append order.
func (h *History) Records() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Last returns the most recent record, if any.
func (h *History) Last() (Record, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.records) == 0 {
		return Record{}, false
	}
	return h.records[len(h.records)-1], true
}

// persistLocked rewrites the JSON log file. Caller holds the lock.
func (h *History) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(h.path), 0o750); err != nil {
		return fmt.Errorf("loop: create history dir: %w", err)
	}
	data, err := json.MarshalIndent(h.records, "", "  ")
	if err != nil {
		return fmt.Errorf("loop: marshal history: %w", err)
	}
	if err := os.WriteFile(h.path, data, 0o640); err != nil {
		return fmt.Errorf("loop: write history: %w", err)
	}
	return nil
}
