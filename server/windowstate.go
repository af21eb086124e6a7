// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"fmt"

	"go.uber.org/zap"

	wm "github.com/lightwm/wm"
)

// layerForType places a window type on a scene layer.
func layerForType(typ wm.WindowType) LayerID {
	switch typ {
	case wm.TypeSystemWindow, wm.TypeDialog:
		return LayerTop
	case wm.TypeToast:
		return LayerSys
	}
	return LayerDefault
}

// WindowState is the server-side record of one window.
type WindowState struct {
	service *Service
	client  wm.Window
	token   wm.Token

	attrs      wm.LayoutParams
	visibility wm.Visibility

	vsyncRequest wm.VsyncRequest
	frameSeq     uint32

	hasSurface bool
	sc         *wm.SurfaceControl

	node       *WindowNode
	dispatcher *InputDispatcher
	animator   *WindowAnimator

	frameWaiting   bool
	animRunning    bool
	windowRemoving bool

	releasePending []*wm.BufferItem
}

func newWindowState(s *Service, client wm.Window, token *WindowToken, attrs wm.LayoutParams, visibility wm.Visibility, enableInput bool) *WindowState {
	win := &WindowState{
		service:      s,
		client:       client,
		token:        token.token,
		attrs:        attrs,
		visibility:   visibility,
		vsyncRequest: wm.VsyncNone,
		frameWaiting: true,
	}
	rect := wm.MakeRect(attrs.X, attrs.Y, attrs.X+attrs.Width, attrs.Y+attrs.Height)
	win.node = newWindowNode(win, layerForType(attrs.Type), rect, enableInput, attrs.Format)
	s.container.AttachNode(win.node)
	if s.cfg.EnableAnimations {
		win.animator = NewWindowAnimator(s.anim, win.node)
	}
	return win
}

func (w *WindowState) log() *zap.Logger { return w.service.log }

func (w *WindowState) handle() wm.Handle { return w.client.Handle() }

// Token resolves the owning token through the registry.
func (w *WindowState) Token() *WindowToken { return w.service.tokens[w.token] }

// VsyncRequest returns the window's current subscription mode.
func (w *WindowState) VsyncRequest() wm.VsyncRequest { return w.vsyncRequest }

// Visibility returns the window's own visibility.
func (w *WindowState) Visibility() wm.Visibility { return w.visibility }

// HasSurface reports whether backing buffers exist.
func (w *WindowState) HasSurface() bool { return w.hasSurface }

func (w *WindowState) isVisible() bool { return w.visibility == wm.VisibilityVisible }

// bufferConsumer returns the consumer face of the window's surface, or
// nil.
func (w *WindowState) bufferConsumer() *wm.BufferConsumer {
	if w.sc != nil && w.sc.Valid() {
		return wm.ConsumerFor(w.sc)
	}
	return nil
}

// createInputDispatcher makes the window's input queue under name.
func (w *WindowState) createInputDispatcher(name string) (*InputDispatcher, error) {
	if w.dispatcher != nil {
		return nil, fmt.Errorf("window %d already has an input dispatcher", w.handle())
	}
	d, err := NewInputDispatcher(w.service.ctx, name)
	if err != nil {
		return nil, err
	}
	w.dispatcher = d
	return d, nil
}

// sendInputMessage forwards one event to the window's queue.
func (w *WindowState) sendInputMessage(msg *wm.InputMessage) error {
	if w.dispatcher == nil {
		return wm.ErrInvalidState
	}
	return w.dispatcher.Send(msg)
}

func (w *WindowState) setVisibility(visibility wm.Visibility) {
	w.visibility = visibility
	w.log().Info("window visibility",
		zap.Uint64("window", uint64(w.handle())),
		zap.Stringer("visibility", visibility))
	w.node.EnableInput(visibility == wm.VisibilityVisible)
}

// sendAppVisibilityToClients propagates an effective visibility change to
// the client, through the hide animation when one is configured.
func (w *WindowState) sendAppVisibilityToClients(visibility wm.Visibility) {
	if !w.isVisible() && visibility == wm.VisibilityGone {
		return
	}

	if w.animRunning {
		w.animator.Cancel()
	}
	w.setVisibility(visibility)
	visible := visibility == wm.VisibilityVisible

	if !visible {
		w.scheduleVsync(wm.VsyncNone)
		if w.animator != nil {
			w.animRunning = true
			w.animator.Start(w.service.animConfig(false, w), w.onAnimationFinished)
		} else {
			w.client.DispatchAppVisibility(false)
		}
	} else {
		if w.vsyncRequest == wm.VsyncNone {
			w.scheduleVsync(wm.VsyncSingle)
		} else {
			w.scheduleVsync(w.vsyncRequest)
		}
		w.client.DispatchAppVisibility(true)
	}
}

// onAnimationFinished is the animation completion barrier. It may be
// entered synchronously from a cancel or asynchronously from the engine,
// and is idempotent per animation.
func (w *WindowState) onAnimationFinished(status AnimStatus) {
	if status != AnimFinished {
		return
	}
	w.animRunning = false
	if w.visibility != wm.VisibilityVisible {
		w.client.DispatchAppVisibility(false)
	}
	if w.windowRemoving {
		w.removeIfPossible()
	}
}

// createSurfaceControl binds a fresh buffer set to the window and attaches
// the consumer face.
func (w *WindowState) createSurfaceControl(ids []wm.BufferID, width, height int32) (*wm.SurfaceControl, error) {
	w.hasSurface = false

	sc := wm.NewSurfaceControl(w.handle(), wm.NewHandle(), width, height, w.attrs.Format)
	sc.InitBufferIDs(ids)
	if _, err := wm.NewBufferConsumer(sc); err != nil {
		return nil, err
	}
	w.sc = sc
	w.hasSurface = true
	return sc, nil
}

// destroySurfaceControl unmaps and closes the buffer set, detaching the
// node's content first so the client receives its final buffer release.
func (w *WindowState) destroySurfaceControl() {
	if !w.hasSurface {
		return
	}
	w.hasSurface = false
	if w.node != nil {
		w.node.UpdateBuffer(nil, nil, 0)
		w.frameWaiting = true
	}
	w.scheduleVsync(wm.VsyncNone)
	if q := w.sc.Queue(); q != nil {
		q.Clear()
	}
	w.sc = nil
}

// applyTransaction applies one merged layer state to the window.
func (w *WindowState) applyTransaction(state wm.LayerState) {
	var (
		item *wm.BufferItem
		crop *wm.Rect
	)

	if state.Flags&wm.LayerPositionChanged != 0 {
		r := w.node.Rect()
		w.node.SetRect(wm.MakeRect(state.X, state.Y, state.X+r.Width(), state.Y+r.Height()))
	}
	if state.Flags&wm.LayerAlphaChanged != 0 {
		w.node.SetAlpha(state.Alpha)
	}

	if state.Flags&wm.LayerBufferChanged != 0 {
		consumer := w.bufferConsumer()
		if consumer == nil {
			w.service.container.meta.SetSkipReason(wm.SkipNoSurface)
			return
		}
		var err error
		item, err = consumer.SyncQueued(state.BufferKey)
		if err != nil {
			w.log().Warn("sync queued failed",
				zap.Int32("key", int32(state.BufferKey)), zap.Error(err))
			return
		}
		w.service.container.meta.MarkSyncQueued()
	}
	if state.Flags&wm.LayerBufferCropChanged != 0 {
		c := state.BufferCrop
		crop = &c
	}

	if w.animator != nil {
		// First buffer since becoming visible: run the show transition.
		if w.frameWaiting && state.Flags&wm.LayerBufferChanged != 0 {
			w.frameWaiting = false
			if w.animRunning {
				w.animator.Cancel()
			}
			w.animRunning = true
			w.animator.Start(w.service.animConfig(true, w), w.onAnimationFinished)
		}
		if w.animRunning && item == nil && state.Flags&wm.LayerBufferChanged != 0 {
			w.log().Warn("animation running, dropping null buffer",
				zap.Uint64("window", uint64(w.handle())))
			return
		}
	}

	if state.Flags&(wm.LayerBufferChanged|wm.LayerBufferCropChanged) != 0 {
		w.node.UpdateBuffer(item, crop, w.frameSeq)
	}
}

// scheduleVsync updates the window's subscription, waking the vsync timer
// for any live mode.
func (w *WindowState) scheduleVsync(req wm.VsyncRequest) bool {
	if req != wm.VsyncNone {
		w.service.container.EnableVsync(true)
	}
	if w.vsyncRequest == req {
		return false
	}
	w.vsyncRequest = req
	return true
}

// onVsync delivers one frame notification when the window is subscribed
// and advances the subscription.
func (w *WindowState) onVsync() wm.VsyncRequest {
	if w.vsyncRequest == wm.VsyncNone {
		return w.vsyncRequest
	}
	w.vsyncRequest = w.vsyncRequest.Next()
	w.frameSeq++
	w.client.OnFrame(w.frameSeq)
	return w.vsyncRequest
}

// acquireBuffer takes the next queued buffer for composition.
func (w *WindowState) acquireBuffer() (*wm.BufferItem, error) {
	consumer := w.bufferConsumer()
	if consumer == nil {
		return nil, wm.ErrNoSurface
	}
	return consumer.Acquire()
}

// releaseBuffer returns a composed buffer to the client.
func (w *WindowState) releaseBuffer(item *wm.BufferItem) bool {
	consumer := w.bufferConsumer()
	if consumer == nil {
		return false
	}
	if err := consumer.Release(item); err != nil {
		w.log().Warn("release failed", zap.Int32("key", int32(item.Key)), zap.Error(err))
		return false
	}
	if w.client != nil {
		w.client.BufferReleased(item.Key)
	}
	return true
}

// deferRelease parks a buffer until composition of the frame that replaced
// it has finished.
func (w *WindowState) deferRelease(item *wm.BufferItem) {
	w.releasePending = append(w.releasePending, item)
}

// flushReleases releases every parked buffer.
func (w *WindowState) flushReleases() {
	for _, item := range w.releasePending {
		w.releaseBuffer(item)
	}
	w.releasePending = w.releasePending[:0]
}

// setLayoutParams reconciles new attributes, reparenting the node when the
// window type changed.
func (w *WindowState) setLayoutParams(attrs wm.LayoutParams) {
	if w.sc != nil && w.sc.Valid() {
		w.log().Warn("layout update ignored while surface is valid",
			zap.Uint64("window", uint64(w.handle())))
		return
	}
	if w.attrs.Type != attrs.Type {
		w.service.container.MoveNode(w.node, layerForType(attrs.Type))
	}
	w.attrs = attrs
	w.node.SetRect(wm.MakeRect(attrs.X, attrs.Y, attrs.X+attrs.Width, attrs.Y+attrs.Height))
}

// removeIfPossible removes the window unless a transition animation is
// still running; the animation's completion callback retries.
func (w *WindowState) removeIfPossible() {
	w.windowRemoving = true
	if w.animRunning {
		return
	}
	w.windowRemoving = false
	w.removeImmediately()
}

// removeImmediately tears the window down without waiting on animations.
func (w *WindowState) removeImmediately() {
	w.destroySurfaceControl()
	if w.dispatcher != nil {
		w.dispatcher.Release()
		w.dispatcher = nil
	}
	if w.animRunning {
		w.animator.Cancel()
	}
	w.service.container.DetachNode(w.node)
	if t := w.Token(); t != nil {
		t.removeWindow(w.handle())
	}
	w.service.doRemoveWindow(w.handle())
}
