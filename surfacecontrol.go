// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

// BufferKey is the stable identity of one buffer within a surface.
type BufferKey int32

// BufferID names one shared-memory buffer for IPC handoff: a stable key
// plus the descriptor of the backing memory object.
type BufferID struct {
	Name string
	Key  BufferKey
	Fd   int
}

// SurfaceControl is the handle to a window's buffer set and pixel-format
// contract. The server creates it when a window first becomes visible; a
// copy (with duplicated buffer descriptors) travels to the client. Both
// sides attach their face of the buffer queue to it.
type SurfaceControl struct {
	window Handle
	handle Handle

	width  int32
	height int32
	format PixelFormat

	bufferIDs map[BufferKey]BufferID
	queue     *BufferQueue
}

// NewSurfaceControl returns a surface control for the window identified by
// window. handle is the surface's own unique identity.
func NewSurfaceControl(window, handle Handle, width, height int32, format PixelFormat) *SurfaceControl {
	return &SurfaceControl{
		window: window,
		handle: handle,
		width:  width,
		height: height,
		format: format,
	}
}

// Window returns the identity of the owning client window. Transactions key
// their layer states by this handle.
func (sc *SurfaceControl) Window() Handle { return sc.window }

// Handle returns the surface's unique identity.
func (sc *SurfaceControl) Handle() Handle { return sc.handle }

func (sc *SurfaceControl) Width() int32        { return sc.width }
func (sc *SurfaceControl) Height() int32       { return sc.height }
func (sc *SurfaceControl) Format() PixelFormat { return sc.format }

// BufferIDs returns the buffer set, keyed by BufferKey.
func (sc *SurfaceControl) BufferIDs() map[BufferKey]BufferID { return sc.bufferIDs }

// InitBufferIDs replaces the buffer set.
func (sc *SurfaceControl) InitBufferIDs(ids []BufferID) {
	sc.bufferIDs = make(map[BufferKey]BufferID, len(ids))
	for _, id := range ids {
		sc.bufferIDs[id.Key] = id
	}
}

// Valid reports whether the surface names a window and carries buffers.
func (sc *SurfaceControl) Valid() bool {
	return sc != nil && sc.window != 0 && sc.handle != 0 && len(sc.bufferIDs) > 0
}

// SetQueue attaches this side's buffer queue to the surface.
func (sc *SurfaceControl) SetQueue(q *BufferQueue) { sc.queue = q }

// Queue returns the attached buffer queue, or nil.
func (sc *SurfaceControl) Queue() *BufferQueue { return sc.queue }

// SameSurface reports whether two controls refer to the same surface.
func SameSurface(a, b *SurfaceControl) bool {
	if a == nil || b == nil {
		return false
	}
	return a.handle == b.handle
}

// CopyFrom copies the surface identity and buffer set of other. The buffer
// queue is not copied; each side owns its own face.
func (sc *SurfaceControl) CopyFrom(other *SurfaceControl) {
	sc.window = other.window
	sc.handle = other.handle
	sc.width = other.width
	sc.height = other.height
	sc.format = other.format
	sc.bufferIDs = make(map[BufferKey]BufferID, len(other.bufferIDs))
	for k, id := range other.bufferIDs {
		sc.bufferIDs[k] = id
	}
}
