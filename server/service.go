// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/internal/shm"
	"github.com/lightwm/wm/ipc"
)

// Service is the window manager: the registries of tokens and windows, the
// scene container, input routing and the vsync fanout. All state is
// confined to the server loop; the ipc layer marshals every RPC onto it.
type Service struct {
	ctx    *ServiceContext
	cfg    Config
	log    *zap.Logger
	tracer trace.Tracer

	tokens   map[wm.Token]*WindowToken
	windows  map[wm.Handle]*WindowState
	monitors map[wm.Token]*InputDispatcher

	container *RootContainer
	gesture   *GestureDetector
	anim      *AnimEngine

	nextBufferKey wm.BufferKey
}

var _ wm.Service = (*Service)(nil)

// New builds the service over ctx. sink may be nil for a headless server.
func New(ctx *ServiceContext, cfg Config, sink PresentSink) *Service {
	s := &Service{
		ctx:      ctx,
		cfg:      cfg,
		log:      ctx.Log,
		tracer:   ctx.Tracer,
		tokens:   make(map[wm.Token]*WindowToken),
		windows:  make(map[wm.Handle]*WindowState),
		monitors: make(map[wm.Token]*InputDispatcher),
	}
	s.anim = NewAnimEngine(ctx.Loop, cfg.RefreshPeriod, ctx.Log)
	s.container = NewRootContainer(ctx, cfg, s, sink)
	s.gesture = NewGestureDetector(ctx)
	s.gesture.SetDisplayInfo(s.container.DisplayInfo())
	return s
}

// Ready reports whether the display came up.
func (s *Service) Ready() bool { return s.container.Ready() }

// Container returns the scene container.
func (s *Service) Container() *RootContainer { return s.container }

// Close tears the service down.
func (s *Service) Close() {
	for _, t := range s.tokens {
		t.removeImmediately()
	}
	s.tokens = map[wm.Token]*WindowToken{}
	for _, d := range s.monitors {
		d.Release()
	}
	s.monitors = map[wm.Token]*InputDispatcher{}
	s.gesture.Close()
}

// GetPhysicalDisplayInfo implements wm.Service.
func (s *Service) GetPhysicalDisplayInfo(displayID int32) (wm.DisplayInfo, error) {
	return s.container.DisplayInfo(), nil
}

// AddWindowToken implements wm.Service. Re-registration keeps the first
// token and is reported as success.
func (s *Service) AddWindowToken(token wm.Token, typ wm.WindowType, displayID int32) error {
	if _, ok := s.tokens[token]; ok {
		s.log.Warn("token already registered", zap.Uint64("token", uint64(token)))
		return nil
	}
	s.tokens[token] = newWindowToken(s, token, typ, displayID)
	return nil
}

// RemoveWindowToken implements wm.Service: the token is evicted once its
// children are gone, unless it persists on empty.
func (s *Service) RemoveWindowToken(token wm.Token, displayID int32) error {
	t, ok := s.tokens[token]
	if !ok {
		s.log.Warn("remove of unknown token", zap.Uint64("token", uint64(token)))
		return nil
	}
	t.removed = true
	t.removeAllWindowsIfPossible()
	if t.IsEmpty() && !t.persistOnEmpty {
		s.evictToken(token)
	}
	return nil
}

func (s *Service) evictToken(token wm.Token) {
	delete(s.tokens, token)
	s.log.Info("token evicted", zap.Uint64("token", uint64(token)))
}

// UpdateWindowTokenVisibility implements wm.Service.
func (s *Service) UpdateWindowTokenVisibility(token wm.Token, visibility wm.Visibility) error {
	t, ok := s.tokens[token]
	if !ok {
		return wm.ErrUnknownToken
	}
	t.SetClientVisibility(visibility)
	return nil
}

// AddWindow implements wm.Service.
func (s *Service) AddWindow(w wm.Window, attrs wm.LayoutParams, visibility wm.Visibility, displayID, userID int32) (*wm.InputChannel, error) {
	if _, ok := s.windows[w.Handle()]; ok {
		s.log.Warn("window already added", zap.Uint64("window", uint64(w.Handle())))
		return nil, wm.ErrWindowExists
	}
	t, ok := s.tokens[attrs.Token]
	if !ok {
		s.log.Warn("window for unknown token", zap.Uint64("token", uint64(attrs.Token)))
		return nil, wm.ErrUnknownToken
	}

	win := newWindowState(s, w, t, attrs, visibility, attrs.HasInput())
	s.windows[w.Handle()] = win
	t.addWindow(win)

	if peer := ipc.WindowPeer(w); peer != nil {
		if t.peer == nil {
			t.peer = peer
		}
		peer.LinkToDeath(func() {
			s.ctx.Loop.Post(func() { s.clientDied(peer) })
		})
	}

	if !attrs.HasInput() {
		return nil, nil
	}
	d, err := win.createInputDispatcher(fmt.Sprintf("wm/input/%d", w.Handle()))
	if err != nil {
		return nil, err
	}
	return d.Channel(), nil
}

// RemoveWindow implements wm.Service.
func (s *Service) RemoveWindow(w wm.Window) error {
	win, ok := s.windows[w.Handle()]
	if !ok {
		s.log.Warn("remove of unknown window", zap.Uint64("window", uint64(w.Handle())))
		return nil
	}
	win.removeIfPossible()
	return nil
}

// Relayout implements wm.Service: reconcile geometry, and allocate or drop
// the surface as visibility demands.
func (s *Service) Relayout(w wm.Window, attrs wm.LayoutParams, width, height int32, visibility wm.Visibility) (*wm.SurfaceControl, error) {
	win, ok := s.windows[w.Handle()]
	if !ok {
		return nil, wm.ErrUnknownToken
	}

	display := s.container.DisplayInfo()
	if width == wm.MatchParent {
		width = display.Width
	}
	if height == wm.MatchParent {
		height = display.Height
	}
	attrs.Width, attrs.Height = width, height
	prev := win.attrs
	win.setLayoutParams(attrs)
	win.setVisibility(visibility)
	cur := win.attrs

	if prev.X != cur.X || prev.Y != cur.Y {
		w.Moved(cur.X, cur.Y)
	}
	if prev.Width != cur.Width || prev.Height != cur.Height {
		w.Resized(wm.WindowFrames{
			Left: cur.X, Top: cur.Y,
			Right: cur.X + cur.Width, Bottom: cur.Y + cur.Height,
		}, 0)
	}

	if visibility == wm.VisibilityVisible && !win.hasSurface {
		sc, err := s.createSurfaceControl(win, width, height)
		if err != nil {
			return nil, err
		}
		return sc, nil
	}
	if visibility != wm.VisibilityVisible && win.hasSurface {
		win.destroySurfaceControl()
		return nil, nil
	}
	return win.sc, nil
}

// createSurfaceControl allocates the window's shared-memory buffer set.
// The service owns the memory objects; descriptors are duplicated on IPC
// handoff.
func (s *Service) createSurfaceControl(win *WindowState, width, height int32) (*wm.SurfaceControl, error) {
	size := int(width * height * win.attrs.Format.BytesPerPixel())
	ids := make([]wm.BufferID, 0, s.cfg.BufferCount)
	for i := 0; i < s.cfg.BufferCount; i++ {
		s.nextBufferKey++
		key := s.nextBufferKey
		name := fmt.Sprintf("wm/buffer/%d/%d", win.handle(), key)
		fd, err := shm.CreateFd(name, size)
		if err != nil {
			for _, id := range ids {
				shm.Close(id.Fd)
			}
			return nil, err
		}
		ids = append(ids, wm.BufferID{Name: name, Key: key, Fd: fd})
	}
	sc, err := win.createSurfaceControl(ids, width, height)
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// ApplyTransaction implements wm.Service. States are merged per window,
// applied, composed once, and only then are replaced buffers released — so
// the scene either shows all of a transaction or none of it.
func (s *Service) ApplyTransaction(states []wm.LayerState) error {
	_, span := s.tracer.Start(context.Background(), "ApplyTransaction",
		trace.WithAttributes(attribute.Int("states", len(states))))
	defer span.End()

	merged := make(map[wm.Handle]*wm.LayerState)
	order := make([]wm.Handle, 0, len(states))
	for i := range states {
		st := states[i]
		if prev, ok := merged[st.Window]; ok {
			prev.Merge(&st)
			continue
		}
		merged[st.Window] = &st
		order = append(order, st.Window)
	}

	anyVisible := false
	touched := make([]*WindowState, 0, len(order))
	for _, h := range order {
		win, ok := s.windows[h]
		if !ok {
			s.log.Warn("transaction for unknown window", zap.Uint64("window", uint64(h)))
			continue
		}
		win.applyTransaction(*merged[h])
		touched = append(touched, win)
		if win.isVisible() {
			anyVisible = true
		}
	}

	s.container.Refresh()
	for _, win := range touched {
		win.flushReleases()
	}

	if anyVisible {
		s.container.EnableVsync(true)
	}
	return nil
}

// RequestVsync implements wm.Service.
func (s *Service) RequestVsync(w wm.Window, req wm.VsyncRequest) error {
	win, ok := s.windows[w.Handle()]
	if !ok {
		return wm.ErrUnknownToken
	}
	win.scheduleVsync(req)
	return nil
}

// MonitorInput implements wm.Service: attach a mirror queue for the token.
func (s *Service) MonitorInput(token wm.Token, name string, displayID int32) (*wm.InputChannel, error) {
	if d, ok := s.monitors[token]; ok {
		return d.Channel(), nil
	}
	d, err := NewInputDispatcher(s.ctx, name)
	if err != nil {
		return nil, err
	}
	s.monitors[token] = d
	return d.Channel(), nil
}

// ReleaseInput implements wm.Service.
func (s *Service) ReleaseInput(token wm.Token) error {
	if d, ok := s.monitors[token]; ok {
		d.Release()
		delete(s.monitors, token)
	}
	return nil
}

// ResponseVsync implements DeviceEventListener: deliver OnFrame to every
// subscribed window and report whether any subscription remains.
func (s *Service) ResponseVsync() bool {
	_, span := s.tracer.Start(context.Background(), "ResponseVsync")
	defer span.End()

	active := false
	for _, win := range s.windows {
		if win.onVsync() != wm.VsyncNone {
			active = true
		}
	}
	return active
}

// ResponseInput implements DeviceEventListener: annotate, target, map and
// deliver one raw input event.
func (s *Service) ResponseInput(msg *wm.InputMessage) {
	_, span := s.tracer.Start(context.Background(), "ResponseInput")
	defer span.End()

	var target *WindowNode
	switch msg.Type {
	case wm.MessagePointer:
		msg.Pointer.Gesture = s.gesture.Recognize(msg)
		target = s.container.WindowAt(msg.Pointer.RawX, msg.Pointer.RawY)
		if target != nil {
			r := target.Rect()
			msg.Pointer.X = msg.Pointer.RawX - r.Left
			msg.Pointer.Y = msg.Pointer.RawY - r.Top
		}
		for _, d := range s.monitors {
			d.Send(msg)
		}
	case wm.MessageKeypad:
		target = s.container.TopInputWindow()
	}

	if target == nil || target.State() == nil {
		return
	}
	if err := target.State().sendInputMessage(msg); err != nil {
		s.log.Warn("input dropped",
			zap.Uint64("window", uint64(target.State().handle())),
			zap.Error(err))
	}
}

// animConfig picks the transition for a window becoming visible (show) or
// hidden.
func (s *Service) animConfig(show bool, win *WindowState) AnimSpec {
	if show {
		return AnimSpec{Type: AnimAlpha, Duration: s.cfg.AnimDuration, From: 0, To: 255}
	}
	return AnimSpec{Type: AnimAlpha, Duration: s.cfg.AnimDuration, From: win.node.Alpha(), To: 0}
}

// doRemoveWindow evicts a fully torn-down window from the registry.
func (s *Service) doRemoveWindow(h wm.Handle) {
	delete(s.windows, h)
	s.log.Info("window removed", zap.Uint64("window", uint64(h)))
}

// clientDied is the death notification: every token bound to the dead
// process is torn down in bulk, without waiting on animations.
func (s *Service) clientDied(peer *ipc.Peer) {
	s.log.Warn("client died", zap.String("peer", peer.Name()))
	for token, t := range s.tokens {
		if t.peer == peer {
			s.removeWindowTokenInner(token)
		}
	}
}

func (s *Service) removeWindowTokenInner(token wm.Token) {
	t, ok := s.tokens[token]
	if !ok {
		return
	}
	t.removeImmediately()
	s.evictToken(token)
}
