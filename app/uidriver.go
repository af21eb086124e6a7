// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	wm "github.com/lightwm/wm"
)

// WindowEventListener observes window-level events from the driver.
type WindowEventListener interface {
	// OnPostDraw runs after a frame has been queued and applied.
	OnPostDraw()
}

// UIDriver is the capability set a UI toolkit exposes to its window: draw
// into a locked buffer, handle input, track resolution and visibility.
// Two drivers ship with the runtime: ImageDriver, which hands an RGBA
// canvas to application code, and DummyDriver, a mock for tests and
// headless clients.
type UIDriver interface {
	InitInstance() error
	DrawFrame(item *wm.BufferItem)
	HandleEvent()
	UpdateResolution(width, height int32, format wm.PixelFormat)
	UpdateVisibility(visible bool)
	GetRoot() interface{}
	GetWindow() interface{}

	FinishDrawing() bool
	RectCrop() *wm.Rect
	ResetBuffer()
	SetInputMonitor(m *InputMonitor)
	SetEventListener(l WindowEventListener)
	EventListener() WindowEventListener
}

// Driver buffer flags.
const (
	bufferUpdated = 1 << 0
	cropUpdated   = 1 << 1
)

// DriverProxy carries the state every driver shares: the in-flight buffer,
// the crop rectangle, the draw flags, the input monitor and the event
// listener. Concrete drivers embed it.
type DriverProxy struct {
	win *BaseWindow

	bufferItem *wm.BufferItem
	rectCrop   wm.Rect
	flags      int8

	monitor  *InputMonitor
	listener WindowEventListener
}

// NewDriverProxy returns the shared driver state bound to win.
func NewDriverProxy(win *BaseWindow) DriverProxy {
	return DriverProxy{win: win}
}

// OnInvalidate asks the window for another frame: periodic for continuous
// redraw, otherwise a single shot.
func (p *DriverProxy) OnInvalidate(periodic bool) {
	if p.win == nil {
		return
	}
	if periodic {
		p.win.ScheduleVsync(wm.VsyncPeriodic)
	} else {
		p.win.ScheduleVsync(wm.VsyncSingle)
	}
}

// DrawFrame begins a frame over item. Embedders call it before drawing.
func (p *DriverProxy) DrawFrame(item *wm.BufferItem) {
	p.flags = 0
	p.bufferItem = item
}

// OnDequeueBuffer returns the writable pixels of the in-flight buffer.
func (p *DriverProxy) OnDequeueBuffer() []byte {
	if p.bufferItem == nil || p.bufferItem.State != wm.BufferDequeued {
		return nil
	}
	return p.bufferItem.Bytes()
}

// OnQueueBuffer marks the frame's pixels updated.
func (p *DriverProxy) OnQueueBuffer() { p.flags |= bufferUpdated }

// OnCancelBuffer abandons the frame.
func (p *DriverProxy) OnCancelBuffer() { p.flags = 0 }

// OnRectCrop stages the frame's source crop.
func (p *DriverProxy) OnRectCrop(rect wm.Rect) {
	p.flags |= cropUpdated
	p.rectCrop = rect
}

// RectCrop returns the staged crop, or nil when the frame has none.
func (p *DriverProxy) RectCrop() *wm.Rect {
	if p.flags&cropUpdated == 0 {
		return nil
	}
	return &p.rectCrop
}

// FinishDrawing reports whether the frame produced anything to queue.
func (p *DriverProxy) FinishDrawing() bool { return p.flags != 0 }

// BufferItem returns the in-flight buffer.
func (p *DriverProxy) BufferItem() *wm.BufferItem { return p.bufferItem }

// ResetBuffer drops the in-flight buffer, as when the surface changes.
func (p *DriverProxy) ResetBuffer() {
	p.bufferItem = nil
	p.flags = 0
}

// ReadEvent reads one input message from the monitor, reporting
// availability.
func (p *DriverProxy) ReadEvent(msg *wm.InputMessage) bool {
	if p.monitor == nil {
		return false
	}
	return p.monitor.ReceiveMessage(msg)
}

// SetInputMonitor installs the event source.
func (p *DriverProxy) SetInputMonitor(m *InputMonitor) { p.monitor = m }

// SetEventListener installs the window event listener.
func (p *DriverProxy) SetEventListener(l WindowEventListener) { p.listener = l }

// EventListener returns the installed listener, or nil.
func (p *DriverProxy) EventListener() WindowEventListener { return p.listener }
