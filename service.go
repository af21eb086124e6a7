// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

// Window is the server-to-client callback surface of one window. All
// methods are one-way: the server posts them and does not wait.
type Window interface {
	// Handle returns the window's stable cross-process identity.
	Handle() Handle

	// Moved reports a new window origin.
	Moved(x, y int32)
	// Resized reports new window frames.
	Resized(frames WindowFrames, displayID int32)
	// DispatchAppVisibility reports the effective visibility decided by
	// the server.
	DispatchAppVisibility(visible bool)
	// OnFrame announces vsync frame seq; the client may draw and submit
	// one buffer in response.
	OnFrame(seq uint32)
	// BufferReleased returns ownership of the buffer identified by key
	// to the client.
	BufferReleased(key BufferKey)
}

// Service is the window manager's RPC surface. Calls block until the
// server's loop has processed them; errors are the status codes of §7.
type Service interface {
	GetPhysicalDisplayInfo(displayID int32) (DisplayInfo, error)

	// AddWindowToken registers a client token. Re-registering is
	// tolerated with a warning; the first registration wins.
	AddWindowToken(token Token, typ WindowType, displayID int32) error
	// RemoveWindowToken schedules token removal; the token is retained
	// while children remain or it persists on empty.
	RemoveWindowToken(token Token, displayID int32) error
	// UpdateWindowTokenVisibility drives the visibility lifecycle of the
	// token's windows.
	UpdateWindowTokenVisibility(token Token, visibility Visibility) error

	// AddWindow registers a window under attrs.Token. When the window
	// wants input, the returned channel is the read end of its queue.
	AddWindow(w Window, attrs LayoutParams, visibility Visibility, displayID, userID int32) (*InputChannel, error)
	// RemoveWindow marks the window for removal.
	RemoveWindow(w Window) error
	// Relayout reconciles geometry and visibility, allocating the
	// surface when the window first becomes visible.
	Relayout(w Window, attrs LayoutParams, width, height int32, visibility Visibility) (*SurfaceControl, error)

	// ApplyTransaction applies a batch of layer states atomically with
	// respect to composition.
	ApplyTransaction(states []LayerState) error
	// RequestVsync updates the window's frame notification mode.
	RequestVsync(w Window, req VsyncRequest) error

	// MonitorInput attaches a named monitor channel that mirrors every
	// dispatched pointer event.
	MonitorInput(token Token, name string, displayID int32) (*InputChannel, error)
	// ReleaseInput detaches the token's monitor.
	ReleaseInput(token Token) error
}
