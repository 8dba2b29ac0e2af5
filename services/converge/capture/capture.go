// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package capture takes screenshots of the dev server's rendered output
// through a headless Chrome driven by Rod.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/AleutianAI/pixelloop/services/converge/imagery"
)

// ErrCaptureTimeout is returned when navigation or rendering does not
// finish inside the per-capture deadline.
var ErrCaptureTimeout = errors.New("capture: timed out")

// Config configures the browser capturer.
type Config struct {
	// BaseURL is the dev server origin, e.g. "http://localhost:5173".
	BaseURL string

	// ViewportWidth and ViewportHeight fix the capture resolution so
	// screenshots are comparable across rounds. Defaults: 1280x800.
	ViewportWidth  int
	ViewportHeight int

	// Timeout bounds one capture: navigate, settle, screenshot.
	// Default: 30s.
	Timeout time.Duration

	// RemoteURL is the WebSocket URL of an external Chrome. Empty
	// launches a local headless instance.
	RemoteURL string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1280
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 800
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser owns one headless Chrome for the lifetime of a run and takes
// one screenshot per round.
//
// # Thread Safety
//
// Safe for concurrent use, though the controller calls it sequentially.
type Browser struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewBrowser creates the capturer without launching Chrome; the first
// Capture launches lazily so a dry run costs nothing.
func NewBrowser(cfg Config) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

// Capture navigates to the route and returns a PNG-decoded screenshot at
// the configured viewport.
//
// # Inputs
//
//   - ctx: Combined with the per-capture timeout.
//   - route: Path appended to the base URL, e.g. "/" or "/dashboard".
//
// # Outputs
//
//   - *image.RGBA: The screenshot.
//   - error: ErrCaptureTimeout on deadline, or the underlying browser
//     error. Both are retryable at the round level.
func (b *Browser) Capture(ctx context.Context, route string) (*image.RGBA, error) {
	browser, err := b.connect()
	if err != nil {
		return nil, err
	}

	target, err := url.JoinPath(b.cfg.BaseURL, route)
	if err != nil {
		return nil, fmt.Errorf("capture: bad route %q: %w", route, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	page, err := browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("capture: create page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx)

	// Fixed viewport so every round's screenshot is comparable.
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.cfg.ViewportWidth,
		Height:            b.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("capture: set viewport: %w", err)
	}

	if err := page.Navigate(target); err != nil {
		return nil, b.timeoutOr(ctx, fmt.Errorf("capture: navigate %s: %w", target, err))
	}
	if err := page.WaitLoad(); err != nil {
		return nil, b.timeoutOr(ctx, fmt.Errorf("capture: wait load: %w", err))
	}
	// Let in-flight asset requests drain so fonts and images render.
	wait := page.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	wait()

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, b.timeoutOr(ctx, fmt.Errorf("capture: screenshot: %w", err))
	}

	img, err := imagery.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("capture: decode screenshot: %w", err)
	}

	b.cfg.Logger.Debug("captured",
		"url", target,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())
	return img, nil
}

// Close shuts down Chrome.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return nil
}

// connect returns the live browser handle, launching Chrome on first use.
func (b *Browser) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	wsURL := b.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("capture: launch chrome: %w", err)
		}
		b.lnch = l
		wsURL = u
		b.cfg.Logger.Info("launched headless chrome", "url", wsURL)
	} else {
		b.cfg.Logger.Info("connecting to remote chrome", "url", wsURL)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("capture: connect: %w", err)
	}
	b.browser = browser
	return browser, nil
}

// timeoutOr maps a deadline-driven failure to ErrCaptureTimeout so the
// controller can tell a slow render from a broken browser.
func (b *Browser) timeoutOr(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w after %s", ErrCaptureTimeout, b.cfg.Timeout)
	}
	return err
}
