// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ipc binds the window system's RPC surfaces to event loops. A
// Peer stands for one process: calls into it are marshaled onto its loop,
// one-way posts never wait, and death links fire when the peer dies.
//
// The package is transport-shaped rather than transport-bound: both ends
// live in one address space, so "crossing the boundary" means hopping onto
// the other peer's loop. Ordering between two peers is exactly IPC send
// order, matching the binder semantics the rest of the system assumes.
package ipc

import (
	"sync"

	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/internal/looper"
)

// Peer is one process endpoint: a loop plus death bookkeeping.
type Peer struct {
	name string
	loop *looper.Loop

	mu    sync.Mutex
	dead  bool
	death []func()
}

// NewPeer returns a peer executing on loop.
func NewPeer(name string, loop *looper.Loop) *Peer {
	return &Peer{name: name, loop: loop}
}

// Name returns the peer's debug name.
func (p *Peer) Name() string { return p.name }

// Loop returns the peer's event loop.
func (p *Peer) Loop() *looper.Loop { return p.loop }

// Alive reports whether the peer still accepts work.
func (p *Peer) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.dead
}

// Post runs f on the peer's loop without waiting.
func (p *Peer) Post(f func()) error {
	p.mu.Lock()
	if p.dead {
		p.mu.Unlock()
		return wm.ErrDeadPeer
	}
	p.mu.Unlock()
	p.loop.Post(f)
	return nil
}

// Call runs f on the peer's loop and waits for completion. It must not be
// used from the peer's own loop.
func (p *Peer) Call(f func()) error {
	p.mu.Lock()
	if p.dead {
		p.mu.Unlock()
		return wm.ErrDeadPeer
	}
	p.mu.Unlock()
	p.loop.Call(f)
	return nil
}

// LinkToDeath registers f to run when the peer dies. The callback fires on
// the goroutine calling Kill; recipients repost to their own loop.
func (p *Peer) LinkToDeath(f func()) {
	p.mu.Lock()
	dead := p.dead
	if !dead {
		p.death = append(p.death, f)
	}
	p.mu.Unlock()
	if dead {
		f()
	}
}

// Kill marks the peer dead and fires the death links once.
func (p *Peer) Kill() {
	p.mu.Lock()
	if p.dead {
		p.mu.Unlock()
		return
	}
	p.dead = true
	death := p.death
	p.death = nil
	p.mu.Unlock()

	for _, f := range death {
		f()
	}
}
