// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	wm "github.com/lightwm/wm"
)

// InputMonitor reads one window's input queue. A watcher goroutine blocks
// on the queue's readiness descriptor and posts the handler onto the
// application loop, one post per delivered message; the handler reads the
// message on the loop thread. Stopping the monitor unregisters the watcher
// and clears the handler before the channel can go away.
type InputMonitor struct {
	ctx     *Context
	channel *wm.InputChannel

	handler func(*InputMonitor)
	stop    chan struct{}
	started bool
}

// NewInputMonitor returns a monitor over ch.
func NewInputMonitor(ctx *Context, ch *wm.InputChannel) *InputMonitor {
	return &InputMonitor{ctx: ctx, channel: ch}
}

// Valid reports whether the monitor has a live channel.
func (m *InputMonitor) Valid() bool { return m.channel != nil && m.channel.Valid() }

// Channel returns the monitored input channel.
func (m *InputMonitor) Channel() *wm.InputChannel { return m.channel }

// ReceiveMessage reads one pending message, reporting availability.
func (m *InputMonitor) ReceiveMessage(msg *wm.InputMessage) bool {
	if !m.Valid() {
		m.ctx.Log.Warn("receive without input channel")
		return false
	}
	ok, err := m.channel.ReceiveMessage(msg)
	if err != nil {
		return false
	}
	return ok
}

// Start begins watching the channel, invoking handler on the loop for
// every delivered message.
func (m *InputMonitor) Start(handler func(*InputMonitor)) bool {
	if handler == nil {
		m.ctx.Log.Error("input monitor needs a handler")
		return false
	}
	if !m.Valid() {
		m.ctx.Log.Error("input monitor has no valid descriptor")
		return false
	}
	if m.started {
		return true
	}
	m.handler = handler
	m.stop = make(chan struct{})
	m.started = true

	efd := m.channel.EventFd()
	stop := m.stop
	go func() {
		fds := []unix.PollFd{{Fd: int32(efd), Events: unix.POLLIN}}
		var counter [8]byte
		for {
			select {
			case <-stop:
				return
			default:
			}
			fds[0].Revents = 0
			n, err := unix.Poll(fds, 200)
			if err != nil {
				if err == unix.EINTR {
					continue
				}
				return
			}
			if n == 0 || fds[0].Revents&unix.POLLIN == 0 {
				continue
			}
			if _, err := unix.Read(efd, counter[:]); err != nil {
				return
			}
			m.ctx.Loop.Post(func() {
				if m.started && m.handler != nil {
					m.handler(m)
				}
			})
		}
	}()
	return true
}

// Stop unregisters the watcher, clears the handler and releases the
// channel endpoint.
func (m *InputMonitor) Stop() {
	if m.started {
		m.started = false
		m.handler = nil
		close(m.stop)
	}
	if m.channel != nil {
		m.channel.Release()
		m.channel = nil
	}
}
