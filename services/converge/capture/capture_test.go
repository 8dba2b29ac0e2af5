// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{BaseURL: "http://localhost:5173"}
	cfg.defaults()

	assert.Equal(t, 1280, cfg.ViewportWidth)
	assert.Equal(t, 800, cfg.ViewportHeight)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.NotNil(t, cfg.Logger)
}

func TestConfigDefaults_ExplicitValuesKept(t *testing.T) {
	cfg := Config{
		BaseURL:        "http://localhost:3000",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Timeout:        5 * time.Second,
	}
	cfg.defaults()

	assert.Equal(t, 1920, cfg.ViewportWidth)
	assert.Equal(t, 1080, cfg.ViewportHeight)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestNewBrowser_DoesNotLaunch(t *testing.T) {
	b := NewBrowser(Config{BaseURL: "http://localhost:5173"})
	assert.Nil(t, b.browser)
	assert.NoError(t, b.Close())
}
