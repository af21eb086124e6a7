// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"testing"
	"time"

	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/internal/looper"
)

func newTestDetector(t *testing.T, w, h int32) *GestureDetector {
	t.Helper()
	ctx := NewServiceContext(looper.New())
	g := NewGestureDetector(ctx)
	g.SetDisplayInfo(wm.DisplayInfo{Width: w, Height: h})
	t.Cleanup(g.Close)
	return g
}

func pointer(state wm.InputMessageState, x, y int32) *wm.InputMessage {
	return &wm.InputMessage{
		Type:    wm.MessagePointer,
		State:   state,
		Pointer: wm.PointerPayload{RawX: x, RawY: y},
	}
}

func TestEdgeSwipeLeft(t *testing.T) {
	g := newTestDetector(t, 480, 480)

	// Press inside the right edge strip arms a leftward swipe.
	got := g.Recognize(pointer(wm.StatePressed, 475, 200))
	if got&wm.SwipeLeft == 0 {
		t.Fatalf("first press gesture = %#x, want swipe left", got)
	}
	if got&wm.TriggerX != 0 {
		t.Fatalf("trigger set before any travel: %#x", got)
	}

	// 75 pixels of travel exceeds the confirm distance.
	got = g.Recognize(pointer(wm.StatePressed, 400, 200))
	if got&wm.SwipeLeft == 0 || got&wm.TriggerX == 0 {
		t.Fatalf("second press gesture = %#x, want swipe left | trigger x", got)
	}

	// Release emits the final bitset and clears.
	got = g.Recognize(pointer(wm.StateReleased, 400, 200))
	if got&(wm.SwipeLeft|wm.TriggerX) != wm.SwipeLeft|wm.TriggerX {
		t.Fatalf("release gesture = %#x", got)
	}
	if got := g.Recognize(pointer(wm.StateReleased, 400, 200)); got != 0 {
		t.Fatalf("gesture survived release: %#x", got)
	}
}

func TestEdgeSwipeDirections(t *testing.T) {
	tests := []struct {
		name string
		x, y int32
		want uint8
	}{
		{"top edge swipes down", 240, 5, wm.SwipeDown},
		{"bottom edge swipes up", 240, 475, wm.SwipeUp},
		{"left edge swipes right", 5, 240, wm.SwipeRight},
		{"right edge swipes left", 475, 240, wm.SwipeLeft},
		{"center is no swipe", 240, 240, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g := newTestDetector(t, 480, 480)
			got := g.Recognize(pointer(wm.StatePressed, test.x, test.y))
			if got != test.want {
				t.Errorf("gesture = %#x, want %#x", got, test.want)
			}
		})
	}
}

func TestShortTravelClearsTrigger(t *testing.T) {
	g := newTestDetector(t, 480, 480)

	g.Recognize(pointer(wm.StatePressed, 475, 200))
	// 56 pixels is one short of the confirm distance.
	got := g.Recognize(pointer(wm.StatePressed, 419, 200))
	if got&wm.TriggerX != 0 {
		t.Fatalf("trigger confirmed at 56 pixels: %#x", got)
	}
	got = g.Recognize(pointer(wm.StatePressed, 418, 200))
	if got&wm.TriggerX == 0 {
		t.Fatalf("trigger missing at 57 pixels: %#x", got)
	}
}

func TestScreenOffShortCircuits(t *testing.T) {
	g := newTestDetector(t, 480, 480)
	g.screenOn = false

	got := g.Recognize(pointer(wm.StatePressed, 240, 240))
	if got&wm.ScreenOff == 0 {
		t.Fatalf("gesture = %#x, want screen off", got)
	}
	got = g.Recognize(pointer(wm.StateReleased, 240, 240))
	if got&wm.ScreenOff == 0 {
		t.Fatalf("release gesture = %#x, want screen off", got)
	}
}

func TestScreenStateFollowsProperty(t *testing.T) {
	loop := looper.New()
	go loop.Run()
	defer loop.Stop()

	ctx := NewServiceContext(loop)
	ctx.Properties.Set(ScreenStatusKey, "1")
	g := NewGestureDetector(ctx)
	defer g.Close()

	if !g.ScreenOn() {
		t.Fatal("screen should start on")
	}
	ctx.Properties.Set(ScreenStatusKey, "-1")

	// The update crosses the monitor goroutine and the loop.
	deadline := make(chan bool, 1)
	for i := 0; i < 100; i++ {
		loop.Call(func() { deadline <- !g.ScreenOn() })
		if <-deadline {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("screen state never followed the property")
}
