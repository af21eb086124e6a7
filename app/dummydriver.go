// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	wm "github.com/lightwm/wm"
)

// Mock UI events reported by DummyDriver.
const (
	MockEventDraw  = 1
	MockEventClick = 2
)

// MockEventCallback receives (pixels, size, event) from DummyDriver.
type MockEventCallback func(data []byte, size int, event int)

// DummyDriver is the no-op UI driver: it fills frames through a caller
// provided callback and reports input as mock events. Tests and headless
// clients use it in place of a real toolkit.
type DummyDriver struct {
	DriverProxy

	drawCallback MockEventCallback
}

var _ UIDriver = (*DummyDriver)(nil)

// NewDummyDriver returns a driver bound to win.
func NewDummyDriver(win *BaseWindow) *DummyDriver {
	d := &DummyDriver{DriverProxy: NewDriverProxy(win)}
	d.InitInstance()
	return d
}

// SetMockEventCallback installs the draw/click callback.
func (d *DummyDriver) SetMockEventCallback(cb MockEventCallback) { d.drawCallback = cb }

// InitInstance implements UIDriver.
func (d *DummyDriver) InitInstance() error { return nil }

// DrawFrame implements UIDriver: the callback fills the buffer, and the
// frame is queued.
func (d *DummyDriver) DrawFrame(item *wm.BufferItem) {
	d.DriverProxy.DrawFrame(item)
	if item == nil {
		return
	}
	if buf := d.OnDequeueBuffer(); buf != nil && d.drawCallback != nil {
		d.drawCallback(buf, item.Size(), MockEventDraw)
	}
	d.OnQueueBuffer()
}

// HandleEvent implements UIDriver: pointer presses become mock clicks.
func (d *DummyDriver) HandleEvent() {
	var msg wm.InputMessage
	if !d.ReadEvent(&msg) {
		return
	}
	if msg.Type == wm.MessagePointer && msg.State == wm.StatePressed && d.drawCallback != nil {
		d.drawCallback(nil, 0, MockEventClick)
	}
}

// UpdateResolution implements UIDriver.
func (d *DummyDriver) UpdateResolution(width, height int32, format wm.PixelFormat) {}

// UpdateVisibility implements UIDriver.
func (d *DummyDriver) UpdateVisibility(visible bool) {}

// GetRoot implements UIDriver.
func (d *DummyDriver) GetRoot() interface{} { return nil }

// GetWindow implements UIDriver.
func (d *DummyDriver) GetWindow() interface{} { return nil }
