// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wm provides the shared model of a lightweight window manager for
// small embedded systems: windows drawn by client processes into pools of
// shared-memory pixel buffers, composed by a central server onto a single
// display, with input events routed back through bounded message queues.
//
// This package holds the types that cross the IPC boundary — layout
// parameters, layer state transactions, the buffer queue state machine,
// surface controls, input messages and frame timing records — together with
// the Service and Window interfaces that define the RPC surface. The client
// runtime lives in the app package, the server runtime in the server
// package.
package wm

import "go.uber.org/atomic"

// Token identifies a client-owned window token. Tokens are created by the
// client, registered with the service through AddWindowToken, and own zero
// or more windows.
type Token uint64

// Handle identifies a server- or client-side object (a window, a surface)
// across the IPC boundary. The zero Handle is invalid.
type Handle uint64

var handleCounter atomic.Uint64

// NewHandle returns a process-unique Handle.
func NewHandle() Handle { return Handle(handleCounter.Inc()) }

// NewToken returns a process-unique Token.
func NewToken() Token { return Token(handleCounter.Inc()) }

// DisplayInfo describes a physical display.
type DisplayInfo struct {
	Width  int32
	Height int32
}
