// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

import "errors"

// Errors shared between the buffer queue, the input transport and the
// service. Operations never panic across the event loop boundary; every
// failure is one of these sentinels (possibly wrapped), a skip-frame marker
// in FrameMetaInfo, or a logged drop.
var (
	// ErrInvalidState is returned by buffer queue operations whose state
	// transition is not legal from the calling side. No side effect has
	// been applied.
	ErrInvalidState = errors.New("wm: invalid buffer state transition")

	// ErrNoBufferAvailable is returned by Dequeue when the free list is
	// empty. The caller skips the frame.
	ErrNoBufferAvailable = errors.New("wm: no buffer available")

	// ErrNoSurface is returned by operations on a window whose surface
	// does not exist yet.
	ErrNoSurface = errors.New("wm: window has no surface")

	// ErrQueueFull is returned by a non-blocking input send on a full
	// queue. The event is dropped.
	ErrQueueFull = errors.New("wm: input queue full")

	// ErrUnknownToken is returned by AddWindow when the layout params
	// name a token that was never registered.
	ErrUnknownToken = errors.New("wm: unknown window token")

	// ErrWindowExists is returned by AddWindow for a client handle that
	// is already registered.
	ErrWindowExists = errors.New("wm: window already added")

	// ErrDeadPeer is returned when posting to a peer whose process has
	// died.
	ErrDeadPeer = errors.New("wm: peer is dead")
)
