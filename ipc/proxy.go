// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ipc

import (
	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/internal/shm"
)

// BindService wraps svc, which executes on server, into a proxy callable
// from another peer. Calls block until the server loop has run them;
// results are copied out as a parcel would, duplicating descriptors.
func BindService(server *Peer, svc wm.Service) wm.Service {
	return &serviceProxy{server: server, svc: svc}
}

type serviceProxy struct {
	server *Peer
	svc    wm.Service
}

func (p *serviceProxy) GetPhysicalDisplayInfo(displayID int32) (wm.DisplayInfo, error) {
	var (
		info wm.DisplayInfo
		err  error
	)
	if cerr := p.server.Call(func() {
		info, err = p.svc.GetPhysicalDisplayInfo(displayID)
	}); cerr != nil {
		return wm.DisplayInfo{}, cerr
	}
	return info, err
}

func (p *serviceProxy) AddWindowToken(token wm.Token, typ wm.WindowType, displayID int32) error {
	var err error
	if cerr := p.server.Call(func() {
		err = p.svc.AddWindowToken(token, typ, displayID)
	}); cerr != nil {
		return cerr
	}
	return err
}

func (p *serviceProxy) RemoveWindowToken(token wm.Token, displayID int32) error {
	var err error
	if cerr := p.server.Call(func() {
		err = p.svc.RemoveWindowToken(token, displayID)
	}); cerr != nil {
		return cerr
	}
	return err
}

func (p *serviceProxy) UpdateWindowTokenVisibility(token wm.Token, visibility wm.Visibility) error {
	var err error
	if cerr := p.server.Call(func() {
		err = p.svc.UpdateWindowTokenVisibility(token, visibility)
	}); cerr != nil {
		return cerr
	}
	return err
}

func (p *serviceProxy) AddWindow(w wm.Window, attrs wm.LayoutParams, visibility wm.Visibility, displayID, userID int32) (*wm.InputChannel, error) {
	var (
		ch  *wm.InputChannel
		err error
	)
	if cerr := p.server.Call(func() {
		ch, err = p.svc.AddWindow(w, attrs, visibility, displayID, userID)
		if ch != nil {
			ch = ch.Dup()
		}
	}); cerr != nil {
		return nil, cerr
	}
	return ch, err
}

func (p *serviceProxy) RemoveWindow(w wm.Window) error {
	var err error
	if cerr := p.server.Call(func() {
		err = p.svc.RemoveWindow(w)
	}); cerr != nil {
		return cerr
	}
	return err
}

func (p *serviceProxy) Relayout(w wm.Window, attrs wm.LayoutParams, width, height int32, visibility wm.Visibility) (*wm.SurfaceControl, error) {
	var (
		sc  *wm.SurfaceControl
		err error
	)
	if cerr := p.server.Call(func() {
		var out *wm.SurfaceControl
		out, err = p.svc.Relayout(w, attrs, width, height, visibility)
		if out != nil {
			sc, err = copySurfaceControl(out)
		}
	}); cerr != nil {
		return nil, cerr
	}
	return sc, err
}

// copySurfaceControl deep-copies a surface control for the receiving
// process, duplicating every buffer descriptor.
func copySurfaceControl(in *wm.SurfaceControl) (*wm.SurfaceControl, error) {
	out := &wm.SurfaceControl{}
	out.CopyFrom(in)
	ids := make([]wm.BufferID, 0, len(in.BufferIDs()))
	for _, id := range in.BufferIDs() {
		fd, err := shm.Dup(id.Fd)
		if err != nil {
			for _, d := range ids {
				shm.Close(d.Fd)
			}
			return nil, err
		}
		ids = append(ids, wm.BufferID{Name: id.Name, Key: id.Key, Fd: fd})
	}
	out.InitBufferIDs(ids)
	return out, nil
}

func (p *serviceProxy) ApplyTransaction(states []wm.LayerState) error {
	copied := append([]wm.LayerState(nil), states...)
	var err error
	if cerr := p.server.Call(func() {
		err = p.svc.ApplyTransaction(copied)
	}); cerr != nil {
		return cerr
	}
	return err
}

func (p *serviceProxy) RequestVsync(w wm.Window, req wm.VsyncRequest) error {
	var err error
	if cerr := p.server.Call(func() {
		err = p.svc.RequestVsync(w, req)
	}); cerr != nil {
		return cerr
	}
	return err
}

func (p *serviceProxy) MonitorInput(token wm.Token, name string, displayID int32) (*wm.InputChannel, error) {
	var (
		ch  *wm.InputChannel
		err error
	)
	if cerr := p.server.Call(func() {
		ch, err = p.svc.MonitorInput(token, name, displayID)
		if ch != nil {
			ch = ch.Dup()
		}
	}); cerr != nil {
		return nil, cerr
	}
	return ch, err
}

func (p *serviceProxy) ReleaseInput(token wm.Token) error {
	var err error
	if cerr := p.server.Call(func() {
		err = p.svc.ReleaseInput(token)
	}); cerr != nil {
		return cerr
	}
	return err
}

// BindWindow wraps w, which executes on client, into the one-way proxy the
// server holds. Posts to a dead client are dropped.
func BindWindow(client *Peer, w wm.Window) wm.Window {
	return &windowProxy{client: client, w: w}
}

type windowProxy struct {
	client *Peer
	w      wm.Window
}

// WindowPeer returns the client peer a window proxy posts to, or nil when
// w is not a proxy.
func WindowPeer(w wm.Window) *Peer {
	if p, ok := w.(*windowProxy); ok {
		return p.client
	}
	return nil
}

func (p *windowProxy) Handle() wm.Handle { return p.w.Handle() }

func (p *windowProxy) Moved(x, y int32) {
	p.client.Post(func() { p.w.Moved(x, y) })
}

func (p *windowProxy) Resized(frames wm.WindowFrames, displayID int32) {
	p.client.Post(func() { p.w.Resized(frames, displayID) })
}

func (p *windowProxy) DispatchAppVisibility(visible bool) {
	p.client.Post(func() { p.w.DispatchAppVisibility(visible) })
}

func (p *windowProxy) OnFrame(seq uint32) {
	p.client.Post(func() { p.w.OnFrame(seq) })
}

func (p *windowProxy) BufferReleased(key wm.BufferKey) {
	p.client.Post(func() { p.w.BufferReleased(key) })
}
