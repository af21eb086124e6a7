// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"image"

	wm "github.com/lightwm/wm"
)

// DrawFunc paints one frame onto the canvas. Returning false abandons the
// frame.
type DrawFunc func(canvas *image.RGBA) bool

// EventFunc receives one input message.
type EventFunc func(msg *wm.InputMessage)

// ImageDriver hands each dequeued buffer to application code as an RGBA
// canvas. It is the draw-client adapter for programs that render with the
// image packages rather than a full toolkit. Only the 32-bit formats are
// supported; other formats draw nothing.
type ImageDriver struct {
	DriverProxy

	width  int32
	height int32
	format wm.PixelFormat

	draw    DrawFunc
	onEvent EventFunc
}

var _ UIDriver = (*ImageDriver)(nil)

// NewImageDriver returns a driver bound to win, painting with draw.
func NewImageDriver(win *BaseWindow, draw DrawFunc) *ImageDriver {
	d := &ImageDriver{DriverProxy: NewDriverProxy(win), draw: draw}
	d.InitInstance()
	return d
}

// SetEventFunc installs the input callback.
func (d *ImageDriver) SetEventFunc(f EventFunc) { d.onEvent = f }

// InitInstance implements UIDriver.
func (d *ImageDriver) InitInstance() error { return nil }

// DrawFrame implements UIDriver.
func (d *ImageDriver) DrawFrame(item *wm.BufferItem) {
	d.DriverProxy.DrawFrame(item)
	if item == nil || d.draw == nil {
		return
	}
	if d.format.BytesPerPixel() != 4 {
		return
	}
	buf := d.OnDequeueBuffer()
	if buf == nil {
		return
	}
	w, h := int(d.width), int(d.height)
	if w <= 0 || h <= 0 || len(buf) < 4*w*h {
		return
	}
	canvas := &image.RGBA{Pix: buf[:4*w*h], Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
	if !d.draw(canvas) {
		d.OnCancelBuffer()
		return
	}
	d.OnQueueBuffer()
	d.OnRectCrop(wm.MakeRect(0, 0, d.width, d.height))
}

// HandleEvent implements UIDriver.
func (d *ImageDriver) HandleEvent() {
	var msg wm.InputMessage
	if !d.ReadEvent(&msg) {
		return
	}
	if d.onEvent != nil {
		d.onEvent(&msg)
	}
}

// UpdateResolution implements UIDriver.
func (d *ImageDriver) UpdateResolution(width, height int32, format wm.PixelFormat) {
	d.width = width
	d.height = height
	d.format = format
}

// UpdateVisibility implements UIDriver. The window schedules its own
// vsync on visibility changes; continuous redraw is requested through
// OnInvalidate.
func (d *ImageDriver) UpdateVisibility(visible bool) {}

// GetRoot implements UIDriver.
func (d *ImageDriver) GetRoot() interface{} { return nil }

// GetWindow implements UIDriver.
func (d *ImageDriver) GetWindow() interface{} { return nil }
