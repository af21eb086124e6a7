// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

// LayerFlags enumerate which optional LayerState fields are present.
type LayerFlags int32

const (
	LayerPositionChanged   LayerFlags = 0x01
	LayerAlphaChanged      LayerFlags = 0x02
	LayerBufferChanged     LayerFlags = 0x04
	LayerBufferCropChanged LayerFlags = 0x08
)

// LayerState is one entry of a surface transaction: the pending mutations
// for the layer identified by Window. Only the fields named by Flags are
// meaningful.
type LayerState struct {
	Window Handle
	Flags  LayerFlags

	X     int32
	Y     int32
	Alpha int32

	BufferKey  BufferKey
	BufferCrop Rect
}

// Merge folds other into s. Per field the last writer wins; flags OR
// together.
func (s *LayerState) Merge(other *LayerState) {
	if other.Flags&LayerPositionChanged != 0 {
		s.X = other.X
		s.Y = other.Y
	}
	if other.Flags&LayerAlphaChanged != 0 {
		s.Alpha = other.Alpha
	}
	if other.Flags&LayerBufferChanged != 0 {
		s.BufferKey = other.BufferKey
	}
	if other.Flags&LayerBufferCropChanged != 0 {
		s.BufferCrop = other.BufferCrop
	}
	s.Flags |= other.Flags
}
