// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package looper provides the single-threaded cooperative event loop each
// process of the window system runs on. Handlers posted to a loop execute
// to completion, in order, on the loop's goroutine; timers fire on the same
// goroutine.
package looper

import (
	"sync"
	"time"
)

// Loop is an ordered queue of handlers plus a timer wheel, drained by Run
// on a single goroutine. The zero value is not usable; call New.
type Loop struct {
	mu       sync.Mutex
	nonempty chan struct{} // buffered; signaled with mu held when work arrives
	queue    []func()
	timers   []*Timer
	stopped  bool
}

// New returns a loop ready to accept posts. Nothing runs until Run.
func New() *Loop {
	return &Loop{nonempty: make(chan struct{}, 1)}
}

func (l *Loop) signal() {
	select {
	case l.nonempty <- struct{}{}:
	default:
	}
}

// Post schedules f to run on the loop. Post never blocks and is safe from
// any goroutine.
func (l *Loop) Post(f func()) {
	l.mu.Lock()
	l.queue = append(l.queue, f)
	l.signal()
	l.mu.Unlock()
}

// Call runs f on the loop and waits for it to return. It must not be
// invoked from the loop's own goroutine.
func (l *Loop) Call(f func()) {
	done := make(chan struct{})
	l.Post(func() {
		f()
		close(done)
	})
	<-done
}

// Stop makes Run return after the current handler.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	l.signal()
	l.mu.Unlock()
}

// Run drains handlers and fires due timers until Stop. It blocks the
// calling goroutine, which becomes the loop's thread.
func (l *Loop) Run() {
	for {
		f, wait, stop := l.next()
		if stop {
			return
		}
		if f != nil {
			f()
			continue
		}
		if wait < 0 {
			<-l.nonempty
			continue
		}
		select {
		case <-l.nonempty:
		case <-time.After(wait):
		}
	}
}

// next returns the next ready handler, or the wait until the nearest timer
// deadline (negative when there is none).
func (l *Loop) next() (f func(), wait time.Duration, stop bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return nil, 0, true
	}
	if len(l.queue) > 0 {
		f = l.queue[0]
		l.queue = l.queue[1:]
		if len(l.queue) > 0 {
			l.signal()
		}
		return f, 0, false
	}

	now := time.Now()
	var nearest *Timer
	for _, t := range l.timers {
		if t.paused {
			continue
		}
		if nearest == nil || t.deadline.Before(nearest.deadline) {
			nearest = t
		}
	}
	if nearest == nil {
		return nil, -1, false
	}
	if d := nearest.deadline.Sub(now); d > 0 {
		return nil, d, false
	}
	nearest.deadline = now.Add(nearest.period)
	return nearest.fn, 0, false
}

// PostDelayed schedules f to run once after d. It returns a single-shot
// Timer; pausing it cancels the run.
func (l *Loop) PostDelayed(d time.Duration, f func()) *Timer {
	t := &Timer{loop: l, period: d}
	t.fn = func() {
		t.Pause()
		f()
	}
	l.mu.Lock()
	t.deadline = time.Now().Add(d)
	l.timers = append(l.timers, t)
	l.signal()
	l.mu.Unlock()
	return t
}

// NewTimer returns a periodic timer owned by the loop, initially running.
func (l *Loop) NewTimer(period time.Duration, fn func()) *Timer {
	return l.newTimer(period, fn)
}

func (l *Loop) newTimer(period time.Duration, fn func()) *Timer {
	t := &Timer{loop: l, period: period, fn: fn, deadline: time.Now().Add(period)}
	l.mu.Lock()
	l.timers = append(l.timers, t)
	l.signal()
	l.mu.Unlock()
	return t
}

// Timer is a pausable periodic timer. All methods are safe from any
// goroutine; the callback runs on the loop.
type Timer struct {
	loop     *Loop
	period   time.Duration
	fn       func()
	deadline time.Time
	paused   bool
}

// Pause stops the timer from firing until Resume.
func (t *Timer) Pause() {
	t.loop.mu.Lock()
	t.paused = true
	t.loop.mu.Unlock()
}

// Resume rearms the timer one full period from now.
func (t *Timer) Resume() {
	t.loop.mu.Lock()
	t.paused = false
	t.deadline = time.Now().Add(t.period)
	t.loop.signal()
	t.loop.mu.Unlock()
}

// Reset restarts the current period, offsetting the next fire from now.
func (t *Timer) Reset() {
	t.loop.mu.Lock()
	t.deadline = time.Now().Add(t.period)
	t.loop.signal()
	t.loop.mu.Unlock()
}

// Paused reports whether the timer is paused.
func (t *Timer) Paused() bool {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	return t.paused
}

// Stop removes the timer from its loop.
func (t *Timer) Stop() {
	t.loop.mu.Lock()
	defer t.loop.mu.Unlock()
	t.paused = true
	for i, o := range t.loop.timers {
		if o == t {
			t.loop.timers = append(t.loop.timers[:i], t.loop.timers[i+1:]...)
			return
		}
	}
}
