// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package app is the client runtime of the window system: windows backed
// by producer-side buffer queues, surface transactions, vsync scheduling
// and input monitoring, all driven by the application's event loop.
package app

import (
	"go.uber.org/zap"

	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/internal/looper"
	"github.com/lightwm/wm/ipc"
)

// Context is one application's process environment: its token, its loop,
// its peer identity and the connection to the window service.
type Context struct {
	Token   wm.Token
	Loop    *looper.Loop
	Log     *zap.Logger
	Peer    *ipc.Peer
	Service wm.Service
}

// NewContext returns a context over loop, bound to service through the
// given peer identity. A nil logger is replaced by a no-op one.
func NewContext(loop *looper.Loop, peer *ipc.Peer, service wm.Service, log *zap.Logger) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{
		Token:   wm.NewToken(),
		Loop:    loop,
		Log:     log,
		Peer:    peer,
		Service: service,
	}
}
