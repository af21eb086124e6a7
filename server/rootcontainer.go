// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"go.uber.org/zap"

	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/internal/looper"
)

// LayerID selects one of the scene graph's stacking layers.
type LayerID int

const (
	// LayerDefault holds application windows.
	LayerDefault LayerID = iota
	// LayerTop holds system windows and dialogs.
	LayerTop
	// LayerSys holds toasts, above everything.
	LayerSys
	numLayers
)

// DeviceEventListener receives display and input device events. The
// service implements it.
type DeviceEventListener interface {
	// ResponseVsync fans one vsync out to subscribed windows, reporting
	// whether any window is still subscribed afterwards.
	ResponseVsync() bool
	// ResponseInput routes one raw input event.
	ResponseInput(msg *wm.InputMessage)
}

// PresentSink receives the composed framebuffer. Implementations paint it
// to real hardware; a nil sink drops frames on the floor.
type PresentSink interface {
	Present(fb *image.RGBA) error
	Close() error
}

// RootContainer owns the scene graph, the framebuffer and the vsync timer.
// Nodes within a layer are ordered back to front.
type RootContainer struct {
	ctx      *ServiceContext
	cfg      Config
	listener DeviceEventListener

	display wm.DisplayInfo
	fb      *image.RGBA
	layers  [numLayers][]*WindowNode

	vsyncTimer *looper.Timer
	vsyncSeq   int64

	sink PresentSink

	meta  *wm.FrameMetaInfo
	times *wm.FrameTimeInfo

	ready bool
}

// NewRootContainer builds the scene over a framebuffer of the configured
// display size. The vsync timer starts paused; the first subscription
// resumes it.
func NewRootContainer(ctx *ServiceContext, cfg Config, listener DeviceEventListener, sink PresentSink) *RootContainer {
	c := &RootContainer{
		ctx:      ctx,
		cfg:      cfg,
		listener: listener,
		display:  wm.DisplayInfo{Width: cfg.DisplayWidth, Height: cfg.DisplayHeight},
		sink:     sink,
		meta:     wm.NewFrameMetaInfo(),
		times:    wm.NewFrameTimeInfo(ctx.Log),
	}
	c.fb = image.NewRGBA(image.Rect(0, 0, int(c.display.Width), int(c.display.Height)))
	c.vsyncTimer = ctx.Loop.NewTimer(cfg.RefreshPeriod, c.processVsyncEvent)
	c.vsyncTimer.Pause()
	c.ready = true
	return c
}

// Ready reports whether the container came up with a display.
func (c *RootContainer) Ready() bool { return c.ready }

// DisplayInfo returns the display geometry.
func (c *RootContainer) DisplayInfo() wm.DisplayInfo { return c.display }

// Framebuffer returns the composition target.
func (c *RootContainer) Framebuffer() *image.RGBA { return c.fb }

// VsyncEnabled reports whether the vsync timer is running.
func (c *RootContainer) VsyncEnabled() bool { return !c.vsyncTimer.Paused() }

// EnableVsync resumes or pauses the vsync timer.
func (c *RootContainer) EnableVsync(enable bool) {
	if enable && c.vsyncTimer.Paused() {
		c.vsyncTimer.Resume()
	} else if !enable && !c.vsyncTimer.Paused() {
		c.vsyncTimer.Pause()
	}
}

// processVsyncEvent is the timer callback: stamp a new frame record and
// fan the vsync out.
func (c *RootContainer) processVsyncEvent() {
	c.vsyncSeq++
	c.meta.SetVsync(time.Now().UnixMilli(), c.vsyncSeq, c.cfg.RefreshPeriod.Milliseconds())
	if c.listener != nil {
		if !c.listener.ResponseVsync() {
			c.EnableVsync(false)
		}
	}
}

// AttachNode places a node on its layer, on top of its siblings.
func (c *RootContainer) AttachNode(n *WindowNode) {
	c.layers[n.layer] = append(c.layers[n.layer], n)
}

// DetachNode removes a node from the scene.
func (c *RootContainer) DetachNode(n *WindowNode) {
	nodes := c.layers[n.layer]
	for i, o := range nodes {
		if o == n {
			c.layers[n.layer] = append(nodes[:i], nodes[i+1:]...)
			return
		}
	}
}

// MoveNode reparents a node onto another layer, keeping it topmost there.
func (c *RootContainer) MoveNode(n *WindowNode, layer LayerID) {
	c.DetachNode(n)
	n.layer = layer
	c.AttachNode(n)
}

// WindowAt returns the topmost input-enabled node containing the display
// point, or nil.
func (c *RootContainer) WindowAt(x, y int32) *WindowNode {
	for layer := numLayers - 1; layer >= 0; layer-- {
		nodes := c.layers[layer]
		for i := len(nodes) - 1; i >= 0; i-- {
			n := nodes[i]
			if n.state == nil || !n.InputEnabled() {
				continue
			}
			if n.Rect().Contains(x, y) {
				return n
			}
		}
	}
	return nil
}

// TopInputWindow returns the topmost input-enabled node, the keypad focus.
func (c *RootContainer) TopInputWindow() *WindowNode {
	for layer := numLayers - 1; layer >= 0; layer-- {
		nodes := c.layers[layer]
		for i := len(nodes) - 1; i >= 0; i-- {
			if n := nodes[i]; n.state != nil && n.InputEnabled() {
				return n
			}
		}
	}
	return nil
}

// Refresh composes every visible node into the framebuffer, presents it,
// and offsets the next vsync from completion so a slow frame does not pile
// notifications up.
func (c *RootContainer) Refresh() {
	c.meta.MarkRenderStart()

	draw.Draw(c.fb, c.fb.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	drew := false
	for layer := LayerID(0); layer < numLayers; layer++ {
		for _, n := range c.layers[layer] {
			if !n.visible() {
				continue
			}
			c.composeNode(n)
			n.dirty = false
			drew = true
		}
	}
	c.meta.MarkRenderEnd()

	if drew && c.sink != nil {
		if err := c.sink.Present(c.fb); err != nil {
			c.ctx.Log.Warn("present failed", zap.Error(err))
		}
	}
	if !drew {
		c.meta.SetSkipReason(wm.SkipNothingToDraw)
	}
	c.meta.MarkFrameFinished()
	c.times.Time(c.meta)

	if !c.vsyncTimer.Paused() {
		c.vsyncTimer.Reset()
	}
}

// composeNode paints one node's content at its rect, honoring crop and
// alpha.
func (c *RootContainer) composeNode(n *WindowNode) {
	dst := image.Rect(int(n.rect.Left), int(n.rect.Top), int(n.rect.Right), int(n.rect.Bottom))
	dst = dst.Intersect(c.fb.Bounds())
	if dst.Empty() {
		return
	}

	if n.fill != nil {
		fill := *n.fill
		fill.A = uint8(int32(fill.A) * n.alpha / 255)
		draw.Draw(c.fb, dst, image.NewUniform(fill), image.Point{}, draw.Over)
		return
	}

	src := decodeBuffer(n.buffer, n.rect.Width(), n.rect.Height(), n.format)
	if src == nil {
		return
	}
	sr := src.Bounds()
	if n.crop != nil {
		cr := image.Rect(int(n.crop.Left), int(n.crop.Top), int(n.crop.Right), int(n.crop.Bottom))
		sr = sr.Intersect(cr)
	}
	blit(c.fb, dst, src, sr, n.alpha)
}

// ShowToast raises a short-lived label node on the system layer, fading it
// in and out through the animation engine.
func (c *RootContainer) ShowToast(engine *AnimEngine, duration time.Duration) {
	info := c.display
	w, h := info.Width/2, int32(40)
	rect := wm.MakeRect(info.Width/2-w/2, info.Height-80, info.Width/2+w/2, info.Height-80+h)

	n := &WindowNode{
		layer: LayerSys,
		rect:  rect,
		alpha: 0,
		fill:  &color.NRGBA{R: 32, G: 32, B: 32, A: 204},
	}
	c.AttachNode(n)

	fadeIn := AnimSpec{Type: AnimAlpha, Duration: 500 * time.Millisecond, From: 0, To: 255}
	fadeOut := AnimSpec{Type: AnimAlpha, Duration: 500 * time.Millisecond, From: 255, To: 0}
	engine.Start(n, fadeIn, n.SetAlpha, func() {
		c.ctx.Loop.PostDelayed(duration, func() {
			engine.Start(n, fadeOut, n.SetAlpha, func() {
				c.DetachNode(n)
			})
		})
	})
}
