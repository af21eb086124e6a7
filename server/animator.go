// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"time"

	"go.uber.org/zap"

	"github.com/lightwm/wm/internal/looper"
)

// WindowAnimType selects the animated property.
type WindowAnimType int

const (
	AnimAlpha WindowAnimType = iota + 1
	AnimSlide
)

// AnimStatus is reported to the completion callback.
type AnimStatus int

const (
	AnimStarting AnimStatus = iota + 1
	AnimFinished
)

// AnimSpec describes one transition animation.
type AnimSpec struct {
	Type     WindowAnimType
	Duration time.Duration
	From     int32
	To       int32
}

// AnimEngine runs property animations on the server loop, stepping them at
// the display refresh period.
type AnimEngine struct {
	loop *looper.Loop
	step time.Duration
	log  *zap.Logger
}

// NewAnimEngine returns an engine stepping animations every step.
func NewAnimEngine(loop *looper.Loop, step time.Duration, log *zap.Logger) *AnimEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &AnimEngine{loop: loop, step: step, log: log}
}

// Animation is one running animation. Cancel completes it early; the done
// callback fires exactly once either way.
type Animation struct {
	engine *AnimEngine
	node   *WindowNode
	spec   AnimSpec
	apply  func(v int32)

	timer    *looper.Timer
	started  time.Time
	finished bool
	done     func()
}

// Start begins animating node per spec. apply receives the interpolated
// value on every step; done fires on completion or cancellation, possibly
// synchronously.
func (e *AnimEngine) Start(node *WindowNode, spec AnimSpec, apply func(v int32), done func()) *Animation {
	a := &Animation{
		engine:  e,
		node:    node,
		spec:    spec,
		apply:   apply,
		started: time.Now(),
		done:    done,
	}
	if spec.Duration <= 0 {
		a.finish()
		return a
	}
	a.timer = e.loop.NewTimer(e.step, a.tick)
	return a
}

func (a *Animation) tick() {
	elapsed := time.Since(a.started)
	if elapsed >= a.spec.Duration {
		if a.apply != nil {
			a.apply(a.spec.To)
		}
		a.finish()
		return
	}
	frac := float64(elapsed) / float64(a.spec.Duration)
	v := a.spec.From + int32(float64(a.spec.To-a.spec.From)*frac)
	if a.apply != nil {
		a.apply(v)
	}
}

// Cancel completes the animation early. The done callback runs inline.
func (a *Animation) Cancel() { a.finish() }

// Finished reports whether the animation has completed.
func (a *Animation) Finished() bool { return a.finished }

func (a *Animation) finish() {
	if a.finished {
		return
	}
	a.finished = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.done != nil {
		done := a.done
		a.done = nil
		done()
	}
}

// WindowAnimator drives the show/hide transitions of one window. The
// completion callback may run synchronously when an animation is canceled
// inline; callers must tolerate both orders.
type WindowAnimator struct {
	engine *AnimEngine
	node   *WindowNode

	anim   *Animation
	status AnimStatus
}

// NewWindowAnimator returns an idle animator over node.
func NewWindowAnimator(engine *AnimEngine, node *WindowNode) *WindowAnimator {
	return &WindowAnimator{engine: engine, node: node, status: AnimFinished}
}

// Start begins spec on the animator's node and reports completion through
// cb, exactly once per started animation.
func (a *WindowAnimator) Start(spec AnimSpec, cb func(AnimStatus)) {
	a.status = AnimStarting
	apply := func(v int32) {}
	switch spec.Type {
	case AnimAlpha:
		apply = func(v int32) { a.node.SetAlpha(v) }
	case AnimSlide:
		base := a.node.Rect()
		apply = func(v int32) { a.node.SetRect(base.Offset(v, 0)) }
	}
	a.anim = a.engine.Start(a.node, spec, apply, func() {
		a.anim = nil
		a.status = AnimFinished
		if cb != nil {
			cb(AnimFinished)
		}
	})
}

// Cancel completes the running animation, if any, invoking its completion
// callback inline.
func (a *WindowAnimator) Cancel() {
	if a.anim != nil {
		a.anim.Cancel()
	}
}

// Running reports whether an animation is in flight.
func (a *WindowAnimator) Running() bool { return a.anim != nil }
