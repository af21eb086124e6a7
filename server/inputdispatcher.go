// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"go.uber.org/zap"

	wm "github.com/lightwm/wm"
)

// InputDispatcher owns the write end of one window's (or monitor's) input
// queue. Sends never block: a full queue drops the event with a log line
// and nothing is retried.
type InputDispatcher struct {
	ctx     *ServiceContext
	channel *wm.InputChannel
}

// NewInputDispatcher creates the named queue and returns its dispatcher.
func NewInputDispatcher(ctx *ServiceContext, name string) (*InputDispatcher, error) {
	ch, err := wm.CreateInputChannel(ctx.Queues, name)
	if err != nil {
		return nil, err
	}
	return &InputDispatcher{ctx: ctx, channel: ch}, nil
}

// Channel returns the dispatcher's queue.
func (d *InputDispatcher) Channel() *wm.InputChannel { return d.channel }

// Send writes one event. ErrQueueFull is logged and returned; the caller
// moves on.
func (d *InputDispatcher) Send(msg *wm.InputMessage) error {
	if d.channel == nil || !d.channel.Valid() {
		d.ctx.Log.Warn("send without valid channel")
		return wm.ErrInvalidState
	}
	if err := d.channel.SendMessage(msg); err != nil {
		d.ctx.Log.Warn("input send failed",
			zap.String("queue", d.channel.Name()),
			zap.Error(err))
		return err
	}
	return nil
}

// Release drops the dispatcher's endpoint.
func (d *InputDispatcher) Release() {
	if d.channel != nil {
		d.channel.Release()
		d.channel = nil
	}
}
