// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	wm "github.com/lightwm/wm"
)

// decodeBuffer views a client buffer as an RGBA image of w×h pixels.
// The 32-bit formats are wrapped without copying; packed formats are
// expanded.
func decodeBuffer(item *wm.BufferItem, w, h int32, format wm.PixelFormat) *image.RGBA {
	if item == nil || w <= 0 || h <= 0 {
		return nil
	}
	pix := item.Bytes()
	need := int(w * h * format.BytesPerPixel())
	if len(pix) < need {
		return nil
	}

	switch format {
	case wm.FormatARGB8888:
		return &image.RGBA{Pix: pix[:4*w*h], Stride: int(4 * w), Rect: image.Rect(0, 0, int(w), int(h))}

	case wm.FormatXRGB8888:
		img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		copy(img.Pix, pix[:4*w*h])
		for i := 3; i < len(img.Pix); i += 4 {
			img.Pix[i] = 0xFF
		}
		return img

	case wm.FormatRGB888:
		img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		n := int(w * h)
		for i := 0; i < n; i++ {
			img.Pix[4*i+0] = pix[3*i+0]
			img.Pix[4*i+1] = pix[3*i+1]
			img.Pix[4*i+2] = pix[3*i+2]
			img.Pix[4*i+3] = 0xFF
		}
		return img

	case wm.FormatRGB565, wm.FormatRGB565A8:
		img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		n := int(w * h)
		alpha := []byte(nil)
		if format == wm.FormatRGB565A8 {
			alpha = pix[2*n : 3*n]
		}
		for i := 0; i < n; i++ {
			v := uint16(pix[2*i]) | uint16(pix[2*i+1])<<8
			r := uint8(v >> 11)
			g := uint8(v >> 5 & 0x3F)
			b := uint8(v & 0x1F)
			img.Pix[4*i+0] = r<<3 | r>>2
			img.Pix[4*i+1] = g<<2 | g>>4
			img.Pix[4*i+2] = b<<3 | b>>2
			if alpha != nil {
				img.Pix[4*i+3] = alpha[i]
			} else {
				img.Pix[4*i+3] = 0xFF
			}
		}
		return img
	}

	// Unknown formats fall back to the default 32-bit layout.
	return &image.RGBA{Pix: pix[:4*w*h], Stride: int(4 * w), Rect: image.Rect(0, 0, int(w), int(h))}
}

// blit paints sr of src into dr of dst with a global alpha, scaling when
// the rectangles differ in size.
func blit(dst *image.RGBA, dr image.Rectangle, src *image.RGBA, sr image.Rectangle, alpha int32) {
	if sr.Empty() || dr.Empty() || alpha <= 0 {
		return
	}

	scaled := src
	ssr := sr
	if sr.Dx() != dr.Dx() || sr.Dy() != dr.Dy() {
		scaled = image.NewRGBA(image.Rect(0, 0, dr.Dx(), dr.Dy()))
		xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), src, sr, xdraw.Src, nil)
		ssr = scaled.Bounds()
	}

	if alpha >= 255 {
		draw.Draw(dst, dr, scaled, ssr.Min, draw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(alpha)})
	draw.DrawMask(dst, dr, scaled, ssr.Min, mask, image.Point{}, draw.Over)
}
