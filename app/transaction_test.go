// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"testing"

	wm "github.com/lightwm/wm"
)

func TestTransactionLastBufferWins(t *testing.T) {
	svc, manager, _ := newTestClient(t)
	sc := wm.NewSurfaceControl(wm.NewHandle(), wm.NewHandle(), 64, 64, wm.FormatARGB8888)

	tr := NewSurfaceTransaction(manager)
	tr.SetBuffer(sc, &wm.BufferItem{Key: 1}).
		SetBuffer(sc, &wm.BufferItem{Key: 2})
	if err := tr.Apply(); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if len(svc.transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(svc.transactions))
	}
	states := svc.transactions[0]
	if len(states) != 1 {
		t.Fatalf("states = %d, want 1 per surface", len(states))
	}
	if states[0].BufferKey != 2 {
		t.Fatalf("buffer key = %d, want the last write", states[0].BufferKey)
	}
	if states[0].Flags != wm.LayerBufferChanged {
		t.Fatalf("flags = %#x", states[0].Flags)
	}
}

func TestTransactionAccumulatesFields(t *testing.T) {
	svc, manager, _ := newTestClient(t)
	a := wm.NewSurfaceControl(wm.NewHandle(), wm.NewHandle(), 64, 64, wm.FormatARGB8888)
	b := wm.NewSurfaceControl(wm.NewHandle(), wm.NewHandle(), 64, 64, wm.FormatARGB8888)

	tr := NewSurfaceTransaction(manager)
	tr.SetBuffer(a, &wm.BufferItem{Key: 9}).
		SetPosition(a, 3, 4).
		SetAlpha(b, 128).
		SetBufferCrop(a, wm.MakeRect(0, 0, 32, 32))
	if err := tr.Apply(); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	states := svc.transactions[0]
	if len(states) != 2 {
		t.Fatalf("states = %d, want 2", len(states))
	}
	var forA, forB *wm.LayerState
	for i := range states {
		switch states[i].Window {
		case a.Window():
			forA = &states[i]
		case b.Window():
			forB = &states[i]
		}
	}
	if forA == nil || forB == nil {
		t.Fatal("missing per-surface state")
	}
	wantA := wm.LayerBufferChanged | wm.LayerPositionChanged | wm.LayerBufferCropChanged
	if forA.Flags != wantA || forA.X != 3 || forA.Y != 4 || forA.BufferKey != 9 {
		t.Fatalf("surface a state = %+v", forA)
	}
	if forB.Flags != wm.LayerAlphaChanged || forB.Alpha != 128 {
		t.Fatalf("surface b state = %+v", forB)
	}
}

func TestApplyClearsAccumulator(t *testing.T) {
	svc, manager, _ := newTestClient(t)
	sc := wm.NewSurfaceControl(wm.NewHandle(), wm.NewHandle(), 64, 64, wm.FormatARGB8888)

	tr := NewSurfaceTransaction(manager)
	tr.SetAlpha(sc, 10)
	tr.Apply()
	tr.Apply()
	if len(svc.transactions) != 1 {
		t.Fatalf("empty apply sent a transaction: %d", len(svc.transactions))
	}
}
