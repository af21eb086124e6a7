// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"

	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/internal/shm"
	"github.com/lightwm/wm/ipc"
)

// windowAdapter is the client-side wm.Window implementation the server
// calls back into. It holds the window's cross-process identity and
// forwards onto the owning BaseWindow until cleared.
type windowAdapter struct {
	handle wm.Handle
	win    *BaseWindow
}

func (a *windowAdapter) Handle() wm.Handle { return a.handle }

func (a *windowAdapter) Moved(x, y int32) {
	if a.win != nil {
		a.win.moved(x, y)
	}
}

func (a *windowAdapter) Resized(frames wm.WindowFrames, displayID int32) {
	if a.win != nil {
		a.win.resized(frames, displayID)
	}
}

func (a *windowAdapter) DispatchAppVisibility(visible bool) {
	if a.win != nil {
		a.win.dispatchAppVisibility(visible)
	}
}

func (a *windowAdapter) OnFrame(seq uint32) {
	if a.win != nil {
		a.win.onFrame(seq)
	}
}

func (a *windowAdapter) BufferReleased(key wm.BufferKey) {
	if a.win != nil {
		a.win.bufferReleased(key)
	}
}

func (a *windowAdapter) clear() { a.win = nil }

// BaseWindow is one client window: the producer side of a surface, its UI
// driver, its input monitor and its vsync subscription.
type BaseWindow struct {
	ctx     *Context
	manager *WindowManager
	log     *zap.Logger

	attrs   wm.LayoutParams
	adapter *windowAdapter
	proxy   wm.Window

	sc           *wm.SurfaceControl
	inputMonitor *InputMonitor
	uiProxy      UIDriver

	vsyncRequest wm.VsyncRequest
	appVisible   bool

	// frameDone drops re-entrant OnFrame notifications while a draw is
	// in flight. It is the only cross-handler synchronization point on
	// the client.
	frameDone *atomic.Bool
}

func newBaseWindow(ctx *Context, manager *WindowManager) *BaseWindow {
	w := &BaseWindow{
		ctx:          ctx,
		manager:      manager,
		log:          ctx.Log,
		vsyncRequest: wm.VsyncNone,
		frameDone:    atomic.NewBool(true),
	}
	w.attrs = wm.NewLayoutParams()
	w.attrs.Token = ctx.Token

	info := manager.DisplayInfo()
	w.attrs.Width = info.Width
	w.attrs.Height = info.Height

	w.adapter = &windowAdapter{handle: wm.NewHandle(), win: w}
	w.proxy = ipc.BindWindow(ctx.Peer, w.adapter)
	return w
}

// remote returns the wm.Window the server should hold.
func (w *BaseWindow) remote() wm.Window { return w.proxy }

// Handle returns the window's cross-process identity.
func (w *BaseWindow) Handle() wm.Handle { return w.adapter.handle }

// LayoutParams returns the window's attributes.
func (w *BaseWindow) LayoutParams() wm.LayoutParams { return w.attrs }

// SetLayoutParams stores new attributes, resolving MatchParent against the
// display and clamping requested sizes to twice the display extent.
func (w *BaseWindow) SetLayoutParams(attrs wm.LayoutParams) {
	w.attrs = attrs
	info := w.manager.DisplayInfo()
	if w.attrs.Width < 0 {
		w.attrs.Width = info.Width
	} else if w.attrs.Width > info.Width*2 {
		w.attrs.Width = info.Width * 2
	}
	if w.attrs.Height < 0 {
		w.attrs.Height = info.Height
	} else if w.attrs.Height > info.Height*2 {
		w.attrs.Height = info.Height * 2
	}
}

// SetUIProxy installs the window's UI driver.
func (w *BaseWindow) SetUIProxy(d UIDriver) { w.uiProxy = d }

// UIProxy returns the installed driver.
func (w *BaseWindow) UIProxy() UIDriver { return w.uiProxy }

// AppVisible reports the last visibility the server dispatched.
func (w *BaseWindow) AppVisible() bool { return w.appVisible }

// Visibility maps the dispatched visibility onto the RPC value.
func (w *BaseWindow) Visibility() wm.Visibility {
	if w.appVisible {
		return wm.VisibilityVisible
	}
	return wm.VisibilityGone
}

// SurfaceControl returns the window's surface, or nil.
func (w *BaseWindow) SurfaceControl() *wm.SurfaceControl { return w.sc }

// BufferProducer returns the producer face of the window's surface, or
// nil without one.
func (w *BaseWindow) BufferProducer() *wm.BufferProducer {
	if w.sc != nil && w.sc.Valid() {
		return wm.ProducerFor(w.sc)
	}
	w.log.Debug("no valid surface control", zap.Bool("visible", w.appVisible))
	return nil
}

// ScheduleVsync asks the server for frame notifications. Requests are
// suppressed while the window is invisible or unchanged.
func (w *BaseWindow) ScheduleVsync(req wm.VsyncRequest) bool {
	if !w.appVisible || w.vsyncRequest == req {
		return false
	}
	w.vsyncRequest = req
	w.manager.Service().RequestVsync(w.remote(), req)
	return true
}

// destroy severs the window from its driver, surface and input.
func (w *BaseWindow) destroy() {
	if w.inputMonitor != nil {
		w.inputMonitor.Stop()
		w.inputMonitor = nil
	}
	if w.sc != nil {
		if q := w.sc.Queue(); q != nil {
			q.Clear()
		}
		w.sc = nil
	}
	w.uiProxy = nil
	w.adapter.clear()
}

// setInputChannel wires the read end of the window's input queue into the
// driver's event handling.
func (w *BaseWindow) setInputChannel(ch *wm.InputChannel) {
	if ch != nil && ch.Valid() {
		w.inputMonitor = NewInputMonitor(w.ctx, ch)
		if w.uiProxy != nil {
			w.uiProxy.SetInputMonitor(w.inputMonitor)
		}
		w.inputMonitor.Start(func(*InputMonitor) {
			if w.uiProxy != nil {
				w.uiProxy.HandleEvent()
			}
		})
	} else if w.inputMonitor != nil {
		if w.uiProxy != nil {
			w.uiProxy.SetInputMonitor(nil)
		}
		w.inputMonitor.Stop()
		w.inputMonitor = nil
	}
}

// setSurfaceControl adopts a surface returned by relayout. Relayout of an
// unchanged surface hands back a fresh copy with duplicated descriptors;
// those are dropped and the mapped surface is kept.
func (w *BaseWindow) setSurfaceControl(sc *wm.SurfaceControl) {
	if sc != nil && wm.SameSurface(sc, w.sc) {
		for _, id := range sc.BufferIDs() {
			shm.Close(id.Fd)
		}
		return
	}
	if w.uiProxy != nil {
		w.uiProxy.ResetBuffer()
	}
	if w.sc != nil {
		if q := w.sc.Queue(); q != nil {
			q.Clear()
		}
	}
	w.sc = sc
	if sc != nil && sc.Valid() && w.uiProxy != nil {
		w.uiProxy.UpdateResolution(sc.Width(), sc.Height(), sc.Format())
	}
}

func (w *BaseWindow) moved(x, y int32)                             {}
func (w *BaseWindow) resized(frames wm.WindowFrames, displayID int32) {}

// dispatchAppVisibility is the server's visibility callback.
func (w *BaseWindow) dispatchAppVisibility(visible bool) {
	w.log.Info("app visibility", zap.Bool("visible", visible))
	w.handleAppVisibility(visible)
}

func (w *BaseWindow) handleAppVisibility(visible bool) {
	if visible == w.appVisible {
		return
	}
	w.appVisible = visible
	if w.uiProxy != nil {
		w.uiProxy.UpdateVisibility(visible)
	}

	w.manager.RelayoutWindow(w)
	if w.sc != nil && w.sc.Valid() {
		w.updateOrCreateBufferQueue()
	} else {
		w.sc = nil
	}

	if !visible {
		w.vsyncRequest = wm.VsyncNone
	} else {
		w.ScheduleVsync(wm.VsyncSingle)
	}
}

// onFrame is the server's vsync callback. A notification arriving while a
// frame is in flight is observed and dropped.
func (w *BaseWindow) onFrame(seq uint32) {
	if !w.frameDone.CAS(true, false) {
		w.log.Debug("frame notification dropped, draw in flight", zap.Uint32("seq", seq))
		return
	}
	w.handleOnFrame(seq)
	w.frameDone.Store(true)
}

func (w *BaseWindow) handleOnFrame(seq uint32) {
	if !w.appVisible {
		w.log.Debug("window needs no update")
		return
	}

	w.vsyncRequest = w.vsyncRequest.Next()

	if w.sc == nil {
		w.manager.RelayoutWindow(w)
		if w.sc != nil && w.sc.Valid() {
			w.updateOrCreateBufferQueue()
		}
		return
	}

	if w.uiProxy == nil {
		w.log.Info("no ui driver installed")
		return
	}
	producer := w.BufferProducer()
	if producer == nil {
		return
	}
	item, err := producer.Dequeue()
	if err != nil {
		w.log.Info("skipping frame", zap.Uint32("seq", seq), zap.Error(err))
		return
	}

	w.uiProxy.DrawFrame(item)
	if !w.uiProxy.FinishDrawing() {
		w.log.Debug("no finished drawing, canceling buffer")
		producer.CancelBuffer(item)
		return
	}
	if err := producer.Queue(item); err != nil {
		w.log.Warn("queue buffer failed", zap.Error(err))
		producer.CancelBuffer(item)
		return
	}

	t := w.manager.Transaction()
	t.SetBuffer(w.sc, item)
	if crop := w.uiProxy.RectCrop(); crop != nil {
		t.SetBufferCrop(w.sc, *crop)
	}
	if err := t.Apply(); err != nil {
		w.log.Warn("transaction apply failed", zap.Error(err))
	}

	if listener := w.uiProxy.EventListener(); listener != nil {
		listener.OnPostDraw()
	}
}

// bufferReleased is the server's buffer handoff callback.
func (w *BaseWindow) bufferReleased(key wm.BufferKey) {
	w.handleBufferReleased(key)
}

func (w *BaseWindow) handleBufferReleased(key wm.BufferKey) {
	producer := w.BufferProducer()
	if producer == nil {
		return
	}
	if _, err := producer.SyncFree(key); err != nil {
		w.log.Debug("buffer release sync failed",
			zap.Int32("key", int32(key)), zap.Error(err))
	}
}

func (w *BaseWindow) updateOrCreateBufferQueue() {
	if q := w.sc.Queue(); q != nil {
		if _, err := q.Update(w.sc); err != nil {
			w.log.Warn("buffer queue update failed", zap.Error(err))
		}
		return
	}
	if _, err := wm.NewBufferProducer(w.sc); err != nil {
		w.log.Warn("buffer queue create failed", zap.Error(err))
	}
}

// SetEventListener forwards a listener to the driver.
func (w *BaseWindow) SetEventListener(l WindowEventListener) {
	if w.uiProxy != nil {
		w.uiProxy.SetEventListener(l)
	}
}
