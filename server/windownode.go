// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"image/color"

	"go.uber.org/zap"

	wm "github.com/lightwm/wm"
)

// WindowNode is one leaf of the server's scene graph: the renderable
// placeholder backed by a window's current buffer. Toast nodes carry a
// fill color instead of a window.
type WindowNode struct {
	state *WindowState
	layer LayerID

	rect   wm.Rect
	format wm.PixelFormat
	alpha  int32

	buffer *wm.BufferItem
	crop   *wm.Rect
	seq    uint32

	inputEnabled bool
	dirty        bool

	fill *color.NRGBA
}

// newWindowNode returns a node for state placed on layer.
func newWindowNode(state *WindowState, layer LayerID, rect wm.Rect, enableInput bool, format wm.PixelFormat) *WindowNode {
	return &WindowNode{
		state:        state,
		layer:        layer,
		rect:         rect,
		format:       format,
		alpha:        255,
		inputEnabled: enableInput,
	}
}

// State returns the owning window state, nil for toast nodes.
func (n *WindowNode) State() *WindowState { return n.state }

// Rect returns the node's placement on the display.
func (n *WindowNode) Rect() wm.Rect { return n.rect }

// SetRect moves and resizes the node.
func (n *WindowNode) SetRect(r wm.Rect) {
	n.rect = r
	n.dirty = true
}

// SetAlpha sets the node's global opacity, 0..255.
func (n *WindowNode) SetAlpha(a int32) {
	if a < 0 {
		a = 0
	} else if a > 255 {
		a = 255
	}
	n.alpha = a
	n.dirty = true
}

// Alpha returns the node's opacity.
func (n *WindowNode) Alpha() int32 { return n.alpha }

// EnableInput controls whether the node is an input target.
func (n *WindowNode) EnableInput(enable bool) { n.inputEnabled = enable }

// InputEnabled reports whether the node accepts input.
func (n *WindowNode) InputEnabled() bool { return n.inputEnabled }

// SurfaceSize returns the byte size of one backing buffer.
func (n *WindowNode) SurfaceSize() int32 {
	return n.rect.Width() * n.rect.Height() * n.format.BytesPerPixel()
}

// UpdateBuffer adopts the queued item as the node's draw source, acquiring
// it from the consumer face. The previously held buffer is remembered and
// released after the next composition. A nil item detaches the node's
// content and releases the held buffer immediately.
func (n *WindowNode) UpdateBuffer(item *wm.BufferItem, crop *wm.Rect, seq uint32) bool {
	prev := n.buffer

	if item == nil {
		n.buffer = nil
		n.crop = nil
		n.dirty = true
		if prev != nil && n.state != nil {
			n.state.releaseBuffer(prev)
		}
		return true
	}

	acquired, err := n.state.acquireBuffer()
	if err != nil {
		n.state.log().Warn("acquire failed", zap.Error(err))
		return false
	}
	n.buffer = acquired
	n.seq = seq
	if crop != nil {
		c := *crop
		n.crop = &c
	} else {
		n.crop = nil
	}
	n.dirty = true

	if prev != nil && prev != n.buffer {
		n.state.deferRelease(prev)
	}
	return true
}

// Buffer returns the node's current draw source, or nil.
func (n *WindowNode) Buffer() *wm.BufferItem { return n.buffer }

// Crop returns the node's source crop, or nil for the full buffer.
func (n *WindowNode) Crop() *wm.Rect { return n.crop }

// visible reports whether the node should be composed.
func (n *WindowNode) visible() bool {
	if n.fill != nil {
		return true
	}
	if n.state == nil || n.buffer == nil {
		return false
	}
	return n.state.isVisible() || n.state.animRunning
}
