// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

import (
	"errors"

	"github.com/lightwm/wm/internal/fmq"
)

// MaxMessages is the depth of a window's input queue. A send beyond this
// fails immediately; events are lossy under overload by design.
const MaxMessages = 50

// InputChannel is one window's event pipe: a named bounded queue of
// InputMessage records written by the server and read by the client.
type InputChannel struct {
	name  string
	queue *fmq.Queue
}

// CreateInputChannel makes the named queue in reg and returns the channel
// owning one endpoint reference.
func CreateInputChannel(reg *fmq.Registry, name string) (*InputChannel, error) {
	q, err := reg.Create(name, InputMessageSize, MaxMessages)
	if err != nil {
		return nil, err
	}
	return &InputChannel{name: name, queue: q}, nil
}

// OpenInputChannel attaches to an existing named queue.
func OpenInputChannel(reg *fmq.Registry, name string) (*InputChannel, error) {
	q, err := reg.Open(name)
	if err != nil {
		return nil, err
	}
	return &InputChannel{name: name, queue: q}, nil
}

// Name returns the channel's queue name.
func (c *InputChannel) Name() string { return c.name }

// Valid reports whether the channel is attached to a live queue.
func (c *InputChannel) Valid() bool { return c != nil && c.queue != nil }

// EventFd returns the readiness descriptor for the reading side.
func (c *InputChannel) EventFd() int {
	if !c.Valid() {
		return -1
	}
	return c.queue.EventFd()
}

// Dup returns a second endpoint over the same queue, as when the channel
// crosses the IPC boundary.
func (c *InputChannel) Dup() *InputChannel {
	if !c.Valid() {
		return &InputChannel{name: c.name}
	}
	c.queue.OpenRef()
	return &InputChannel{name: c.name, queue: c.queue}
}

// SendMessage writes one message without blocking. A full queue returns
// ErrQueueFull and the message is dropped.
func (c *InputChannel) SendMessage(m *InputMessage) error {
	if !c.Valid() {
		return ErrInvalidState
	}
	var rec [InputMessageSize]byte
	m.Encode(rec[:])
	if err := c.queue.Send(rec[:]); err != nil {
		if errors.Is(err, fmq.ErrFull) {
			return ErrQueueFull
		}
		return err
	}
	return nil
}

// ReceiveMessage reads one message without blocking, reporting whether one
// was available.
func (c *InputChannel) ReceiveMessage(m *InputMessage) (bool, error) {
	if !c.Valid() {
		return false, ErrInvalidState
	}
	var rec [InputMessageSize]byte
	ok, err := c.queue.Receive(rec[:])
	if err != nil || !ok {
		return false, err
	}
	m.Decode(rec[:])
	return true, nil
}

// Pending returns the number of undelivered messages.
func (c *InputChannel) Pending() int {
	if !c.Valid() {
		return 0
	}
	return c.queue.Pending()
}

// Release drops this endpoint. The queue is destroyed when the last
// endpoint releases.
func (c *InputChannel) Release() {
	if c.Valid() {
		c.queue.Close()
		c.queue = nil
	}
}
