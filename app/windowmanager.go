// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"go.uber.org/zap"

	wm "github.com/lightwm/wm"
)

// WindowManager is the client's handle on the window service.
type WindowManager struct {
	ctx     *Context
	service wm.Service
	display wm.DisplayInfo

	transaction *SurfaceTransaction
}

// NewWindowManager connects to the service and caches the display
// geometry.
func NewWindowManager(ctx *Context) (*WindowManager, error) {
	m := &WindowManager{ctx: ctx, service: ctx.Service}
	info, err := m.service.GetPhysicalDisplayInfo(0)
	if err != nil {
		return nil, err
	}
	m.display = info
	m.transaction = &SurfaceTransaction{manager: m}
	return m, nil
}

// Service returns the RPC surface.
func (m *WindowManager) Service() wm.Service { return m.service }

// DisplayInfo returns the display geometry.
func (m *WindowManager) DisplayInfo() wm.DisplayInfo { return m.display }

// Transaction returns the process-wide surface transaction accumulator.
func (m *WindowManager) Transaction() *SurfaceTransaction { return m.transaction }

// NewWindow returns a window sized to the display, owned by the context's
// token.
func (m *WindowManager) NewWindow(ctx *Context) *BaseWindow {
	return newBaseWindow(ctx, m)
}

// AttachWindow registers the window with the service and wires its input
// channel.
func (m *WindowManager) AttachWindow(w *BaseWindow) error {
	ch, err := m.service.AddWindow(w.remote(), w.LayoutParams(), w.Visibility(), 0, 1)
	if err != nil {
		m.ctx.Log.Error("add window failed", zap.Error(err))
		return err
	}
	w.setInputChannel(ch)
	return nil
}

// RelayoutWindow reconciles the window's geometry and visibility with the
// server, adopting whatever surface comes back.
func (m *WindowManager) RelayoutWindow(w *BaseWindow) error {
	attrs := w.LayoutParams()
	sc, err := m.service.Relayout(w.remote(), attrs, attrs.Width, attrs.Height, w.Visibility())
	if err != nil {
		return err
	}
	w.setSurfaceControl(sc)
	return nil
}

// RemoveWindow detaches the window from the service and tears it down
// locally.
func (m *WindowManager) RemoveWindow(w *BaseWindow) error {
	err := m.service.RemoveWindow(w.remote())
	w.destroy()
	return err
}
