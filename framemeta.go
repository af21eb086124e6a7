// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

import (
	"time"

	"go.uber.org/zap"
)

// FrameMetaIndex names one timing slot of a FrameMetaInfo record.
type FrameMetaIndex int

const (
	MetaFlags FrameMetaIndex = iota
	MetaVsyncID
	MetaVsync

	MetaFrameStart
	MetaLayoutStart
	MetaRenderStart
	MetaFrameInterval
	MetaRenderEnd

	MetaSyncQueued
	MetaFrameFinished
	metaNumIndexes
)

// Frame meta flags.
const (
	FrameSurfaceDraw = 1 << 0
	FrameSkipped     = 1 << 1
)

// FrameMetaSkipReason classifies a frame that produced no visible output.
type FrameMetaSkipReason int

const (
	SkipNoTarget FrameMetaSkipReason = iota
	SkipNoSurface
	SkipNothingToDraw
	SkipNoBuffer
)

func (r FrameMetaSkipReason) String() string {
	switch r {
	case SkipNoTarget:
		return "no target"
	case SkipNoSurface:
		return "no surface"
	case SkipNothingToDraw:
		return "nothing to draw"
	case SkipNoBuffer:
		return "no buffer"
	}
	return "unknown"
}

// InvalidVsyncID marks a record not yet bound to a vsync.
const InvalidVsyncID int64 = -1

// now is replaceable by tests.
var now = func() int64 { return time.Now().UnixMilli() }

// FrameMetaInfo is the per-vsync timing record, filled monotonically as the
// frame progresses through layout, render and buffer handoff.
type FrameMetaInfo struct {
	meta       [metaNumIndexes]int64
	skipReason *FrameMetaSkipReason
}

// NewFrameMetaInfo returns an empty record.
func NewFrameMetaInfo() *FrameMetaInfo {
	info := &FrameMetaInfo{}
	info.meta[MetaVsyncID] = InvalidVsyncID
	return info
}

// SetVsync rearms the record for a new frame.
func (f *FrameMetaInfo) SetVsync(vsyncTime, vsyncID, frameIntervalMs int64) {
	f.meta = [metaNumIndexes]int64{}
	f.skipReason = nil
	f.AddFlag(FrameSurfaceDraw)

	f.meta[MetaVsyncID] = vsyncID
	f.meta[MetaVsync] = vsyncTime
	f.meta[MetaFrameStart] = vsyncTime
	f.meta[MetaLayoutStart] = vsyncTime
	f.meta[MetaRenderStart] = vsyncTime
	f.meta[MetaFrameInterval] = frameIntervalMs
}

// Get returns the value of one slot.
func (f *FrameMetaInfo) Get(i FrameMetaIndex) int64 {
	if i < 0 || i >= metaNumIndexes {
		return 0
	}
	return f.meta[i]
}

// Set stores a value into one slot.
func (f *FrameMetaInfo) Set(i FrameMetaIndex, v int64) { f.meta[i] = v }

// AddFlag ORs a frame flag into the record.
func (f *FrameMetaInfo) AddFlag(flag int64) { f.meta[MetaFlags] |= flag }

func (f *FrameMetaInfo) VsyncID() int64       { return f.meta[MetaVsyncID] }
func (f *FrameMetaInfo) FrameInterval() int64 { return f.meta[MetaFrameInterval] }

func (f *FrameMetaInfo) MarkFrameStart()    { f.meta[MetaFrameStart] = now() }
func (f *FrameMetaInfo) MarkLayoutStart()   { f.meta[MetaLayoutStart] = now() }
func (f *FrameMetaInfo) MarkRenderStart()   { f.meta[MetaRenderStart] = now() }
func (f *FrameMetaInfo) MarkRenderEnd()     { f.meta[MetaRenderEnd] = now() }
func (f *FrameMetaInfo) MarkSyncQueued()    { f.meta[MetaSyncQueued] = now() }
func (f *FrameMetaInfo) MarkFrameFinished() { f.meta[MetaFrameFinished] = now() }

// SetSkipReason marks the frame skipped.
func (f *FrameMetaInfo) SetSkipReason(reason FrameMetaSkipReason) {
	f.AddFlag(FrameSkipped)
	r := reason
	f.skipReason = &r
}

// SkipReason returns the skip classification, or nil for a drawn frame.
func (f *FrameMetaInfo) SkipReason() *FrameMetaSkipReason { return f.skipReason }

// Duration returns the time spent between two marks, clamped to zero when
// either mark is unset or out of order.
func (f *FrameMetaInfo) Duration(start, end FrameMetaIndex) int64 {
	startTime, endTime := f.Get(start), f.Get(end)
	if startTime <= 0 {
		return 0
	}
	if gap := endTime - startTime; gap > 0 {
		return gap
	}
	return 0
}

func (f *FrameMetaInfo) TotalDuration() int64  { return f.Duration(MetaVsync, MetaFrameFinished) }
func (f *FrameMetaInfo) DrawnDuration() int64  { return f.Duration(MetaVsync, MetaRenderEnd) }
func (f *FrameMetaInfo) RenderDuration() int64 { return f.Duration(MetaRenderStart, MetaRenderEnd) }
func (f *FrameMetaInfo) LayoutDuration() int64 { return f.Duration(MetaLayoutStart, MetaRenderStart) }

// FrameTimeInfo aggregates FrameMetaInfo records and logs a one-line frame
// statistics summary roughly once per second.
type FrameTimeInfo struct {
	log *zap.Logger

	validFrameSamples     uint16
	timeoutFrameSamples   uint16
	skipFrameSamples      uint16
	skipEmptyFrameSamples uint16

	frameInterval         int64
	lastFrameFinishedTime int64
	lastLogFrameTime      int64
	totalFrameTime        int64
	minFrameTime          int64
	maxFrameTime          int64
}

// NewFrameTimeInfo returns an aggregator logging through log.
func NewFrameTimeInfo(log *zap.Logger) *FrameTimeInfo {
	if log == nil {
		log = zap.NewNop()
	}
	return &FrameTimeInfo{log: log}
}

// Time folds one frame record into the statistics. A nil info flushes the
// pending summary.
func (t *FrameTimeInfo) Time(info *FrameMetaInfo) {
	if info == nil {
		t.logPerSecond(false)
		return
	}

	if reason := info.SkipReason(); reason != nil {
		if *reason == SkipNothingToDraw {
			t.skipEmptyFrameSamples++
		}
		t.skipFrameSamples++
		// Discard runaway skip streaks.
		if t.skipFrameSamples > 255 {
			t.skipEmptyFrameSamples = 0
			t.skipFrameSamples = 0
		}
		t.logPerSecond(true)
		return
	}

	if t.lastFrameFinishedTime == 0 {
		t.skipEmptyFrameSamples = 0
		t.skipFrameSamples = 0
		t.timeoutFrameSamples = 0
		t.totalFrameTime = 0
		t.minFrameTime = 0
		t.maxFrameTime = 0
		t.lastLogFrameTime = info.Get(MetaVsync)
	}

	t.validFrameSamples++
	cur := info.TotalDuration()
	t.totalFrameTime += cur
	if cur > t.maxFrameTime {
		t.maxFrameTime = cur
	}
	if t.minFrameTime == 0 || cur < t.minFrameTime {
		t.minFrameTime = cur
	}

	t.frameInterval = info.FrameInterval()
	if t.frameInterval > 0 && cur > t.frameInterval {
		t.timeoutFrameSamples++
	}
	t.lastFrameFinishedTime = info.Get(MetaFrameFinished)
	t.logPerSecond(true)
}

func (t *FrameTimeInfo) logPerSecond(checkSec bool) {
	if t.lastFrameFinishedTime == 0 {
		return
	}
	nowTime := now()
	if checkSec && nowTime-t.lastLogFrameTime+t.frameInterval < 1000 {
		return
	}

	fps := 0.0
	avg := 0.0
	if t.totalFrameTime > 0 && t.validFrameSamples > 0 {
		fps = 1000 * float64(t.validFrameSamples) / float64(t.totalFrameTime)
		if fps > 60 {
			fps = 60
		}
		avg = float64(t.totalFrameTime) / float64(t.validFrameSamples)
	}
	t.log.Info("frame stats",
		zap.Float64("fps", fps),
		zap.Uint16("frames", t.validFrameSamples),
		zap.Uint16("timeout", t.timeoutFrameSamples),
		zap.Uint16("skipped", t.skipFrameSamples),
		zap.Uint16("skippedEmpty", t.skipEmptyFrameSamples),
		zap.Int64("minMs", t.minFrameTime),
		zap.Int64("maxMs", t.maxFrameTime),
		zap.Float64("avgMs", avg),
		zap.Int64("intervalMs", t.frameInterval),
	)
	t.reset()
}

func (t *FrameTimeInfo) reset() {
	t.validFrameSamples = 0
	t.timeoutFrameSamples = 0
	t.skipFrameSamples = 0
	t.skipEmptyFrameSamples = 0
	t.frameInterval = 0
	t.lastFrameFinishedTime = 0
	t.lastLogFrameTime = 0
	t.totalFrameTime = 0
	t.minFrameTime = 0
	t.maxFrameTime = 0
}
