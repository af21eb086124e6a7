// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import "time"

// DefRefreshPeriod is the vsync timer period when the display reports no
// rate of its own.
const DefRefreshPeriod = 16 * time.Millisecond

// ScreenStatusKey is the property the gesture recognizer follows for the
// screen power state. The value "-1" means the screen is off.
const ScreenStatusKey = "screen.status"

// Config carries the server's tunables.
type Config struct {
	// RefreshPeriod paces the vsync timer.
	RefreshPeriod time.Duration
	// BufferCount is the number of shared-memory buffers allocated per
	// surface.
	BufferCount int
	// EnableAnimations turns window show/hide transition animations on.
	EnableAnimations bool
	// AnimDuration is the length of one transition animation.
	AnimDuration time.Duration
	// DisplayWidth and DisplayHeight size the framebuffer when no
	// present sink dictates a size.
	DisplayWidth  int32
	DisplayHeight int32
}

// DefaultConfig returns the stock configuration: double buffering, a 60 Hz
// timer and transition animations on.
func DefaultConfig() Config {
	return Config{
		RefreshPeriod:    DefRefreshPeriod,
		BufferCount:      2,
		EnableAnimations: true,
		AnimDuration:     200 * time.Millisecond,
		DisplayWidth:     480,
		DisplayHeight:    480,
	}
}
