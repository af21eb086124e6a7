// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"go.uber.org/zap"

	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/internal/property"
)

// Gesture thresholds, in pixels.
const (
	// TriggerDistance is the width of the edge strip that arms a swipe.
	TriggerDistance = 13
	// InvalidDistance is the displacement from the press point that
	// confirms a swipe.
	InvalidDistance = 57
)

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GestureDetector recognizes edge swipes on the pointer stream. It tracks
// the press point, classifies it against the edge trigger strips, and
// confirms the swipe once the pointer has traveled far enough. The screen
// power state arrives through a property subscription; without one the
// detector assumes the screen is on.
type GestureDetector struct {
	ctx *ServiceContext

	width  int32
	height int32

	screenOn bool
	monitor  *property.Monitor
	stop     chan struct{}

	lastState wm.InputMessageState
	swipe     uint8
	pressedX  int32
	pressedY  int32
	lastX     int32
	lastY     int32
}

// NewGestureDetector subscribes to the screen state and returns a detector
// ready to annotate pointer messages.
func NewGestureDetector(ctx *ServiceContext) *GestureDetector {
	g := &GestureDetector{
		ctx:       ctx,
		screenOn:  true,
		lastState: wm.StateReleased,
		stop:      make(chan struct{}),
	}
	monitor, err := ctx.Properties.Monitor(ScreenStatusKey)
	if err != nil {
		// A missing subscription is a fatal configuration error; the
		// detector proceeds assuming the screen is on.
		ctx.Log.Error("fatal: no screen state subscription", zap.Error(err))
		g.screenOn = true
		return g
	}
	g.screenOn = ctx.Properties.GetInt32(ScreenStatusKey, 1) > 0
	g.monitor = monitor
	go func() {
		for {
			select {
			case v, ok := <-monitor.C():
				if !ok {
					return
				}
				ctx.Loop.Post(func() { g.screenOn = v != "-1" })
			case <-g.stop:
				return
			}
		}
	}()
	return g
}

// SetDisplayInfo sizes the edge strips.
func (g *GestureDetector) SetDisplayInfo(info wm.DisplayInfo) {
	g.width = info.Width
	g.height = info.Height
}

// ScreenOn reports the tracked screen power state.
func (g *GestureDetector) ScreenOn() bool { return g.screenOn }

// Close drops the screen state subscription.
func (g *GestureDetector) Close() {
	close(g.stop)
	if g.monitor != nil {
		g.monitor.Close()
		g.monitor = nil
	}
}

// Recognize folds one pointer message into the state machine and returns
// the gesture bitset to annotate it with. A release emits the final bitset
// and clears the state.
func (g *GestureDetector) Recognize(msg *wm.InputMessage) uint8 {
	var ret uint8
	curX := msg.Pointer.RawX
	curY := msg.Pointer.RawY

	switch msg.State {
	case wm.StatePressed:
		if !g.screenOn {
			g.swipe |= wm.ScreenOff
			ret = g.swipe
			break
		}
		if g.lastX == curX && g.lastY == curY && g.lastState == wm.StatePressed {
			return g.swipe
		}
		if g.lastState == wm.StateReleased {
			g.pressedX = curX
			g.pressedY = curY
			left := clamp32(g.pressedX, 0, TriggerDistance)
			top := clamp32(g.pressedY, 0, TriggerDistance)
			right := clamp32(g.pressedX, g.width-TriggerDistance, g.width)
			bottom := clamp32(g.pressedY, g.height-TriggerDistance, g.height)

			switch {
			case top == g.pressedY:
				g.swipe |= wm.SwipeDown
			case bottom == g.pressedY:
				g.swipe |= wm.SwipeUp
			case left == g.pressedX:
				g.swipe |= wm.SwipeRight
			case right == g.pressedX:
				g.swipe |= wm.SwipeLeft
			}
			if !wm.IsXSwipe(g.swipe) && !wm.IsYSwipe(g.swipe) {
				ret = 0
				break
			}
		} else {
			switch {
			case g.swipe&wm.SwipeLeft != 0 && g.pressedX-curX >= InvalidDistance,
				g.swipe&wm.SwipeRight != 0 && curX-g.pressedX >= InvalidDistance:
				g.swipe |= wm.TriggerX
			case g.swipe&wm.SwipeUp != 0 && g.pressedY-curY >= InvalidDistance,
				g.swipe&wm.SwipeDown != 0 && curY-g.pressedY >= InvalidDistance:
				g.swipe |= wm.TriggerY
			default:
				g.swipe &^= wm.TriggerX
				g.swipe &^= wm.TriggerY
			}
		}
		ret = g.swipe

	case wm.StateReleased:
		if !wm.IsXSwipe(g.swipe) && !wm.IsYSwipe(g.swipe) && !wm.IsScreenOff(g.swipe) {
			break
		}
		ret = g.swipe
		g.swipe = 0
	}

	g.lastState = msg.State
	g.lastX = curX
	g.lastY = curY
	return ret
}
