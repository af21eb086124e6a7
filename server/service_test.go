// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"errors"
	"testing"

	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/internal/looper"
	"github.com/lightwm/wm/internal/shm"
)

// testWindow records the server's callbacks synchronously.
type testWindow struct {
	handle     wm.Handle
	visibility []bool
	frames     []uint32
	released   []wm.BufferKey
}

func newTestWindow() *testWindow { return &testWindow{handle: wm.NewHandle()} }

func (w *testWindow) Handle() wm.Handle                                 { return w.handle }
func (w *testWindow) Moved(x, y int32)                                  {}
func (w *testWindow) Resized(frames wm.WindowFrames, displayID int32)   {}
func (w *testWindow) DispatchAppVisibility(visible bool)                { w.visibility = append(w.visibility, visible) }
func (w *testWindow) OnFrame(seq uint32)                                { w.frames = append(w.frames, seq) }
func (w *testWindow) BufferReleased(key wm.BufferKey)                   { w.released = append(w.released, key) }

func newTestService(t *testing.T, mutate func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.EnableAnimations = false
	if mutate != nil {
		mutate(&cfg)
	}
	ctx := NewServiceContext(looper.New())
	s := New(ctx, cfg, nil)
	t.Cleanup(s.Close)
	return s
}

// addVisibleWindow registers a token and window and walks it to VISIBLE
// with a live surface, returning the client-side producer over the
// window's buffers.
func addVisibleWindow(t *testing.T, s *Service, w *testWindow, token wm.Token) *wm.BufferProducer {
	t.Helper()
	if err := s.AddWindowToken(token, wm.TypeApplication, 0); err != nil {
		t.Fatalf("AddWindowToken: %v", err)
	}
	attrs := wm.NewLayoutParams()
	attrs.Token = token
	attrs.Width, attrs.Height = 64, 64
	attrs.X, attrs.Y = 0, 0
	if _, err := s.AddWindow(w, attrs, wm.VisibilityGone, 0, 1); err != nil {
		t.Fatalf("AddWindow: %v", err)
	}
	if err := s.UpdateWindowTokenVisibility(token, wm.VisibilityVisible); err != nil {
		t.Fatalf("UpdateWindowTokenVisibility: %v", err)
	}
	sc, err := s.Relayout(w, attrs, attrs.Width, attrs.Height, wm.VisibilityVisible)
	if err != nil {
		t.Fatalf("Relayout: %v", err)
	}
	if sc == nil || !sc.Valid() {
		t.Fatal("relayout returned no surface")
	}

	clientSC := &wm.SurfaceControl{}
	clientSC.CopyFrom(sc)
	ids := make([]wm.BufferID, 0, len(sc.BufferIDs()))
	for _, id := range sc.BufferIDs() {
		fd, err := shm.Dup(id.Fd)
		if err != nil {
			t.Fatalf("Dup: %v", err)
		}
		ids = append(ids, wm.BufferID{Name: id.Name, Key: id.Key, Fd: fd})
	}
	clientSC.InitBufferIDs(ids)
	producer, err := wm.NewBufferProducer(clientSC)
	if err != nil {
		t.Fatalf("NewBufferProducer: %v", err)
	}
	t.Cleanup(producer.Clear)
	return producer
}

func TestDuplicateTokenIsWarnedNotFailed(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()

	if err := s.AddWindowToken(token, wm.TypeApplication, 0); err != nil {
		t.Fatalf("first AddWindowToken: %v", err)
	}
	if err := s.AddWindowToken(token, wm.TypeDialog, 0); err != nil {
		t.Fatalf("duplicate AddWindowToken: %v", err)
	}
	// The first registration wins.
	if got := s.tokens[token].Type(); got != wm.TypeApplication {
		t.Fatalf("token type = %v, want application", got)
	}
}

func TestAddWindowUnknownToken(t *testing.T) {
	s := newTestService(t, nil)
	attrs := wm.NewLayoutParams()
	attrs.Token = wm.NewToken()
	if _, err := s.AddWindow(newTestWindow(), attrs, wm.VisibilityGone, 0, 1); !errors.Is(err, wm.ErrUnknownToken) {
		t.Fatalf("AddWindow = %v, want ErrUnknownToken", err)
	}
}

func TestDuplicateWindowRejected(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	s.AddWindowToken(token, wm.TypeApplication, 0)

	attrs := wm.NewLayoutParams()
	attrs.Token = token
	w := newTestWindow()
	if _, err := s.AddWindow(w, attrs, wm.VisibilityGone, 0, 1); err != nil {
		t.Fatalf("AddWindow: %v", err)
	}
	if _, err := s.AddWindow(w, attrs, wm.VisibilityGone, 0, 1); !errors.Is(err, wm.ErrWindowExists) {
		t.Fatalf("duplicate AddWindow = %v, want ErrWindowExists", err)
	}
}

func TestVisibilityHoldFreezes(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	w := newTestWindow()
	addVisibleWindow(t, s, w, token)

	dispatched := len(w.visibility)
	win := s.windows[w.handle]
	win.scheduleVsync(wm.VsyncPeriodic)

	// HOLD freezes the effective state: no dispatch, no vsync change.
	if err := s.UpdateWindowTokenVisibility(token, wm.VisibilityHold); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if len(w.visibility) != dispatched {
		t.Fatalf("hold dispatched visibility: %v", w.visibility)
	}
	if win.VsyncRequest() != wm.VsyncPeriodic {
		t.Fatalf("hold changed vsync request to %v", win.VsyncRequest())
	}

	// GONE propagates: dispatch false, vsync off.
	if err := s.UpdateWindowTokenVisibility(token, wm.VisibilityGone); err != nil {
		t.Fatalf("gone: %v", err)
	}
	if len(w.visibility) != dispatched+1 || w.visibility[len(w.visibility)-1] {
		t.Fatalf("gone dispatch = %v", w.visibility)
	}
	if win.VsyncRequest() != wm.VsyncNone {
		t.Fatalf("vsync request after gone = %v", win.VsyncRequest())
	}
}

func TestVsyncSingleDeliversOnce(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	w := newTestWindow()
	addVisibleWindow(t, s, w, token)

	before := len(w.frames)
	if err := s.RequestVsync(w, wm.VsyncSingle); err != nil {
		t.Fatalf("RequestVsync: %v", err)
	}
	if !s.container.VsyncEnabled() {
		t.Fatal("vsync timer not running after subscription")
	}

	s.container.processVsyncEvent()
	if got := len(w.frames) - before; got != 1 {
		t.Fatalf("frames after first vsync = %d, want 1", got)
	}
	// The SINGLE subscription is spent; the timer stops.
	s.container.processVsyncEvent()
	if got := len(w.frames) - before; got != 1 {
		t.Fatalf("frames after second vsync = %d, want 1", got)
	}
	if s.container.VsyncEnabled() {
		t.Fatal("vsync timer still running with no subscribers")
	}
}

func TestVsyncPeriodicUntilNone(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	w := newTestWindow()
	addVisibleWindow(t, s, w, token)

	before := len(w.frames)
	s.RequestVsync(w, wm.VsyncPeriodic)
	s.container.processVsyncEvent()
	s.container.processVsyncEvent()
	if got := len(w.frames) - before; got != 2 {
		t.Fatalf("periodic frames = %d, want 2", got)
	}

	s.RequestVsync(w, wm.VsyncNone)
	s.container.processVsyncEvent()
	if got := len(w.frames) - before; got != 2 {
		t.Fatalf("frames after unsubscribe = %d, want 2", got)
	}
}

func TestTransactionBufferFlow(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	w := newTestWindow()
	producer := addVisibleWindow(t, s, w, token)

	// Frame 1: draw red into the first buffer.
	item1, err := producer.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	pix := item1.Bytes()
	for i := 0; i < len(pix); i += 4 {
		pix[i+0], pix[i+1], pix[i+2], pix[i+3] = 0xFF, 0, 0, 0xFF
	}
	producer.Queue(item1)
	if err := s.ApplyTransaction([]wm.LayerState{{
		Window: w.handle, Flags: wm.LayerBufferChanged, BufferKey: item1.Key,
	}}); err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}

	fb := s.container.Framebuffer()
	r, g, b, _ := fb.At(10, 10).RGBA()
	if r>>8 != 0xFF || g>>8 != 0 || b>>8 != 0 {
		t.Fatalf("framebuffer pixel = %x %x %x, want red", r>>8, g>>8, b>>8)
	}
	if len(w.released) != 0 {
		t.Fatalf("first frame released %v", w.released)
	}

	// Frame 2: the second buffer replaces the first, which is released
	// back to the client after composition.
	item2, err := producer.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue 2: %v", err)
	}
	producer.Queue(item2)
	if err := s.ApplyTransaction([]wm.LayerState{{
		Window: w.handle, Flags: wm.LayerBufferChanged, BufferKey: item2.Key,
	}}); err != nil {
		t.Fatalf("ApplyTransaction 2: %v", err)
	}
	if len(w.released) != 1 || w.released[0] != item1.Key {
		t.Fatalf("released = %v, want [%d]", w.released, item1.Key)
	}
	if _, err := producer.SyncFree(item1.Key); err != nil {
		t.Fatalf("SyncFree: %v", err)
	}
	// The client can now cycle back onto the first buffer.
	item3, err := producer.Dequeue()
	if err != nil || item3.Key != item1.Key {
		t.Fatalf("Dequeue 3 = %v, %v; want buffer %d", item3, err, item1.Key)
	}
}

func TestTransactionMergesPerWindow(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	w := newTestWindow()
	producer := addVisibleWindow(t, s, w, token)

	item, _ := producer.Dequeue()
	producer.Queue(item)

	// Two states for one window in a single transaction: the later
	// position wins, the buffer still applies.
	err := s.ApplyTransaction([]wm.LayerState{
		{Window: w.handle, Flags: wm.LayerBufferChanged | wm.LayerPositionChanged, BufferKey: item.Key, X: 5, Y: 5},
		{Window: w.handle, Flags: wm.LayerPositionChanged, X: 11, Y: 13},
	})
	if err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}
	win := s.windows[w.handle]
	if r := win.node.Rect(); r.Left != 11 || r.Top != 13 {
		t.Fatalf("node rect = %v, want origin (11,13)", r)
	}
	if win.node.Buffer() == nil {
		t.Fatal("buffer lost in merge")
	}
}

func TestAnimationGatedRemoval(t *testing.T) {
	s := newTestService(t, func(cfg *Config) { cfg.EnableAnimations = true })
	token := wm.NewToken()
	w := newTestWindow()
	producer := addVisibleWindow(t, s, w, token)

	// Submit one frame so the show animation starts and runs.
	item, _ := producer.Dequeue()
	producer.Queue(item)
	s.ApplyTransaction([]wm.LayerState{{Window: w.handle, Flags: wm.LayerBufferChanged, BufferKey: item.Key}})

	win := s.windows[w.handle]
	if !win.animRunning {
		t.Fatal("show animation not running")
	}

	if err := s.RemoveWindow(w); err != nil {
		t.Fatalf("RemoveWindow: %v", err)
	}
	if !win.windowRemoving {
		t.Fatal("removal not deferred behind the animation")
	}
	if _, ok := s.windows[w.handle]; !ok {
		t.Fatal("window evicted while animating")
	}

	// Animation completion retries the removal and tears down.
	win.animator.Cancel()
	if _, ok := s.windows[w.handle]; ok {
		t.Fatal("window still registered after animation finished")
	}
	if win.hasSurface {
		t.Fatal("surface survived removal")
	}
}

func TestInputRoutingAndQueueFull(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	w := newTestWindow()
	addVisibleWindow(t, s, w, token)

	win := s.windows[w.handle]
	if win.dispatcher == nil {
		t.Fatal("window has no input dispatcher")
	}
	ch := win.dispatcher.Channel()

	press := &wm.InputMessage{
		Type:    wm.MessagePointer,
		State:   wm.StatePressed,
		Pointer: wm.PointerPayload{RawX: 10, RawY: 20},
	}
	s.ResponseInput(press)
	var got wm.InputMessage
	ok, err := ch.ReceiveMessage(&got)
	if !ok || err != nil {
		t.Fatalf("receive = %v, %v", ok, err)
	}
	if got.Pointer.X != 10 || got.Pointer.Y != 20 {
		t.Fatalf("window-local coords = (%d,%d)", got.Pointer.X, got.Pointer.Y)
	}

	// Fill the queue; further events drop without blocking or retrying.
	for i := 0; i < wm.MaxMessages; i++ {
		s.ResponseInput(press)
	}
	if got := ch.Pending(); got != wm.MaxMessages {
		t.Fatalf("pending = %d, want %d", got, wm.MaxMessages)
	}
	s.ResponseInput(press)
	if got := ch.Pending(); got != wm.MaxMessages {
		t.Fatalf("pending after overflow = %d, want %d", got, wm.MaxMessages)
	}
}

func TestInputMonitorMirrorsPointer(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	w := newTestWindow()
	addVisibleWindow(t, s, w, token)

	mon, err := s.MonitorInput(token, "wm/monitor/test", 0)
	if err != nil {
		t.Fatalf("MonitorInput: %v", err)
	}
	s.ResponseInput(&wm.InputMessage{
		Type:    wm.MessagePointer,
		State:   wm.StatePressed,
		Pointer: wm.PointerPayload{RawX: 1, RawY: 1},
	})
	var got wm.InputMessage
	ok, _ := mon.ReceiveMessage(&got)
	if !ok {
		t.Fatal("monitor saw nothing")
	}
	if err := s.ReleaseInput(token); err != nil {
		t.Fatalf("ReleaseInput: %v", err)
	}
	if _, ok := s.monitors[token]; ok {
		t.Fatal("monitor still registered")
	}
}

func TestKeypadGoesToTopInputWindow(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	w := newTestWindow()
	addVisibleWindow(t, s, w, token)

	s.ResponseInput(&wm.InputMessage{
		Type:   wm.MessageKeypad,
		State:  wm.StatePressed,
		Keypad: wm.KeypadPayload{KeyCode: 30},
	})
	win := s.windows[w.handle]
	var got wm.InputMessage
	ok, _ := win.dispatcher.Channel().ReceiveMessage(&got)
	if !ok || got.Keypad.KeyCode != 30 {
		t.Fatalf("keypad delivery = %v %v", ok, got)
	}
}

func TestTokenRemovalWaitsForChildren(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	w := newTestWindow()
	addVisibleWindow(t, s, w, token)

	if err := s.RemoveWindowToken(token, 0); err != nil {
		t.Fatalf("RemoveWindowToken: %v", err)
	}
	// Children were removable immediately (no animations), so the token
	// is gone with them.
	if _, ok := s.tokens[token]; ok {
		t.Fatal("token survived removal with removable children")
	}
	if _, ok := s.windows[w.handle]; ok {
		t.Fatal("child window survived token removal")
	}
}

func TestPersistOnEmptyRetainsToken(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	s.AddWindowToken(token, wm.TypeApplication, 0)
	s.tokens[token].SetPersistOnEmpty(true)

	if err := s.RemoveWindowToken(token, 0); err != nil {
		t.Fatalf("RemoveWindowToken: %v", err)
	}
	if _, ok := s.tokens[token]; !ok {
		t.Fatal("persistent token evicted")
	}
}

func TestRelayoutResolvesMatchParent(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	s.AddWindowToken(token, wm.TypeApplication, 0)

	attrs := wm.NewLayoutParams()
	attrs.Token = token
	w := newTestWindow()
	if _, err := s.AddWindow(w, attrs, wm.VisibilityGone, 0, 1); err != nil {
		t.Fatalf("AddWindow: %v", err)
	}
	sc, err := s.Relayout(w, attrs, wm.MatchParent, wm.MatchParent, wm.VisibilityVisible)
	if err != nil {
		t.Fatalf("Relayout: %v", err)
	}
	display := s.container.DisplayInfo()
	if sc.Width() != display.Width || sc.Height() != display.Height {
		t.Fatalf("surface = %dx%d, want display %dx%d",
			sc.Width(), sc.Height(), display.Width, display.Height)
	}
}

func TestWindowAtPrefersTopmost(t *testing.T) {
	s := newTestService(t, nil)

	tokenA, tokenB := wm.NewToken(), wm.NewToken()
	below, above := newTestWindow(), newTestWindow()
	addVisibleWindow(t, s, below, tokenA)

	// A dialog lands on the top layer, above the application window.
	s.AddWindowToken(tokenB, wm.TypeDialog, 0)
	attrs := wm.NewLayoutParams()
	attrs.Token = tokenB
	attrs.Type = wm.TypeDialog
	attrs.Width, attrs.Height = 64, 64
	if _, err := s.AddWindow(above, attrs, wm.VisibilityGone, 0, 1); err != nil {
		t.Fatalf("AddWindow dialog: %v", err)
	}
	s.UpdateWindowTokenVisibility(tokenB, wm.VisibilityVisible)

	node := s.container.WindowAt(10, 10)
	if node == nil || node.State().handle() != above.handle {
		t.Fatalf("topmost window at (10,10) = %v, want the dialog", node)
	}
}

func TestClientDeathTearsDownTokens(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	s.AddWindowToken(token, wm.TypeApplication, 0)

	w := newTestWindow()
	attrs := wm.NewLayoutParams()
	attrs.Token = token
	attrs.Width, attrs.Height = 32, 32
	if _, err := s.AddWindow(w, attrs, wm.VisibilityGone, 0, 1); err != nil {
		t.Fatalf("AddWindow: %v", err)
	}

	s.removeWindowTokenInner(token)
	if _, ok := s.tokens[token]; ok {
		t.Fatal("token survived death cleanup")
	}
	if _, ok := s.windows[w.handle]; ok {
		t.Fatal("window survived death cleanup")
	}
}

func TestSurfaceDestroyReleasesHeldBuffer(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	w := newTestWindow()
	producer := addVisibleWindow(t, s, w, token)

	item, _ := producer.Dequeue()
	producer.Queue(item)
	s.ApplyTransaction([]wm.LayerState{{Window: w.handle, Flags: wm.LayerBufferChanged, BufferKey: item.Key}})

	win := s.windows[w.handle]
	win.destroySurfaceControl()
	if win.hasSurface {
		t.Fatal("surface still marked present")
	}
	// The held buffer came back before the surface went away.
	if len(w.released) != 1 || w.released[0] != item.Key {
		t.Fatalf("released = %v, want [%d]", w.released, item.Key)
	}
	if win.VsyncRequest() != wm.VsyncNone {
		t.Fatalf("vsync request after destroy = %v", win.VsyncRequest())
	}
}

func TestBufferKeysUniquePerSurface(t *testing.T) {
	s := newTestService(t, nil)
	seen := map[wm.BufferKey]bool{}
	for i := 0; i < 3; i++ {
		token := wm.NewToken()
		w := newTestWindow()
		addVisibleWindow(t, s, w, token)
		for key := range s.windows[w.handle].sc.BufferIDs() {
			if seen[key] {
				t.Fatalf("buffer key %d reused", key)
			}
			seen[key] = true
		}
	}
	if len(seen) != 3*s.cfg.BufferCount {
		t.Fatalf("allocated %d keys, want %d", len(seen), 3*s.cfg.BufferCount)
	}
}
