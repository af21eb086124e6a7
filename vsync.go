// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

// VsyncRequest is a window's vsync subscription mode. The server advances
// the mode by Next after every delivered frame.
type VsyncRequest int32

const (
	// VsyncNone requests no frame notifications.
	VsyncNone VsyncRequest = iota
	// VsyncSingle requests exactly one frame notification.
	VsyncSingle
	// VsyncPeriodic requests a notification on every vsync.
	VsyncPeriodic
)

// Next returns the subscription mode after one frame has been delivered.
func (r VsyncRequest) Next() VsyncRequest {
	switch r {
	case VsyncSingle:
		return VsyncNone
	case VsyncPeriodic:
		return VsyncPeriodic
	}
	return VsyncNone
}

func (r VsyncRequest) String() string {
	switch r {
	case VsyncNone:
		return "none"
	case VsyncSingle:
		return "single"
	case VsyncPeriodic:
		return "periodic"
	}
	return "unknown"
}
