// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package imagery

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	xdraw "golang.org/x/image/draw"
)

// Decode parses PNG or JPEG bytes into an RGBA raster.
//
// # Outputs
//
//   - *image.RGBA: The decoded image, converted to RGBA.
//   - error: ErrDecode (wrapped) on malformed input.
func Decode(data []byte) (*image.RGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return toRGBA(img), nil
}

// DecodeFile reads and decodes an image from disk.
func DecodeFile(path string) (*image.RGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// AlignPair normalizes two images to identical dimensions so they are safe
// for per-pixel operations.
//
// # Description
//
// Both images are placed on a canvas sized to the maximum width and maximum
// height of the pair. Each is scaled with a "contain" fit (aspect ratio
// preserved) and the remainder is padded opaque white.
//
// # Inputs
//
//   - a, b: The design and rendered images, possibly of different sizes.
//
// # Outputs
//
//   - Two new *image.RGBA of identical dimensions. Inputs are not mutated.
func AlignPair(a, b image.Image) (*image.RGBA, *image.RGBA) {
	aw, ah := a.Bounds().Dx(), a.Bounds().Dy()
	bw, bh := b.Bounds().Dx(), b.Bounds().Dy()

	w := max(aw, bw)
	h := max(ah, bh)

	return containOnCanvas(a, w, h), containOnCanvas(b, w, h)
}

// Resize scales an image to exactly the requested dimensions.
//
// Round-trip property: the result's bounds report exactly w by h.
func Resize(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// containOnCanvas scales img into a w by h white canvas, preserving aspect
// ratio and centering the result.
func containOnCanvas(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	sw, sh := img.Bounds().Dx(), img.Bounds().Dy()
	if sw == 0 || sh == 0 {
		return dst
	}

	// Contain fit: the larger relative dimension wins.
	scale := min(float64(w)/float64(sw), float64(h)/float64(sh))
	tw := int(float64(sw) * scale)
	th := int(float64(sh) * scale)
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	x0 := (w - tw) / 2
	y0 := (h - th) / 2
	target := image.Rect(x0, y0, x0+tw, y0+th)
	xdraw.CatmullRom.Scale(dst, target, img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// toRGBA converts any image.Image to *image.RGBA without mutating it.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		out := image.NewRGBA(rgba.Bounds())
		copy(out.Pix, rgba.Pix)
		return out
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}
