// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	wm "github.com/lightwm/wm"
)

// SurfaceTransaction accumulates layer mutations keyed by surface. Setters
// chain; Apply sends the batch to the server, which applies it atomically
// with respect to composition, and clears the local state. Within one
// transaction the last write per field wins.
type SurfaceTransaction struct {
	manager *WindowManager
	states  map[wm.Handle]*wm.LayerState
	order   []wm.Handle
}

// NewSurfaceTransaction returns an empty accumulator bound to manager.
func NewSurfaceTransaction(manager *WindowManager) *SurfaceTransaction {
	return &SurfaceTransaction{manager: manager}
}

func (t *SurfaceTransaction) layerState(sc *wm.SurfaceControl) *wm.LayerState {
	if sc == nil || sc.Window() == 0 {
		return nil
	}
	if t.states == nil {
		t.states = make(map[wm.Handle]*wm.LayerState)
	}
	st, ok := t.states[sc.Window()]
	if !ok {
		st = &wm.LayerState{Window: sc.Window()}
		t.states[sc.Window()] = st
		t.order = append(t.order, sc.Window())
	}
	return st
}

// SetBuffer stages item as the surface's next content.
func (t *SurfaceTransaction) SetBuffer(sc *wm.SurfaceControl, item *wm.BufferItem) *SurfaceTransaction {
	if st := t.layerState(sc); st != nil {
		st.Flags |= wm.LayerBufferChanged
		st.BufferKey = item.Key
	}
	return t
}

// SetBufferCrop stages the source crop for the surface's next content.
func (t *SurfaceTransaction) SetBufferCrop(sc *wm.SurfaceControl, rect wm.Rect) *SurfaceTransaction {
	if st := t.layerState(sc); st != nil {
		st.Flags |= wm.LayerBufferCropChanged
		st.BufferCrop = rect
	}
	return t
}

// SetPosition stages a new layer origin.
func (t *SurfaceTransaction) SetPosition(sc *wm.SurfaceControl, x, y int32) *SurfaceTransaction {
	if st := t.layerState(sc); st != nil {
		st.Flags |= wm.LayerPositionChanged
		st.X = x
		st.Y = y
	}
	return t
}

// SetAlpha stages a new layer opacity, 0..255.
func (t *SurfaceTransaction) SetAlpha(sc *wm.SurfaceControl, alpha int32) *SurfaceTransaction {
	if st := t.layerState(sc); st != nil {
		st.Flags |= wm.LayerAlphaChanged
		st.Alpha = alpha
	}
	return t
}

// Apply sends the accumulated states and clears the accumulator, whether
// or not the send succeeded.
func (t *SurfaceTransaction) Apply() error {
	states := make([]wm.LayerState, 0, len(t.order))
	for _, h := range t.order {
		states = append(states, *t.states[h])
	}
	t.Clean()
	if len(states) == 0 {
		return nil
	}
	return t.manager.Service().ApplyTransaction(states)
}

// Clean drops all staged state.
func (t *SurfaceTransaction) Clean() {
	t.states = nil
	t.order = nil
}
