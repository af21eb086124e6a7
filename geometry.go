// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

import "fmt"

// Rect is a rectangle with inclusive Left/Top and exclusive Right/Bottom
// edges, in pixels.
type Rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

// MakeRect returns the rectangle spanning (l, t) to (r, b).
func MakeRect(l, t, r, b int32) Rect { return Rect{Left: l, Top: t, Right: r, Bottom: b} }

func (r Rect) Width() int32  { return r.Right - r.Left }
func (r Rect) Height() int32 { return r.Bottom - r.Top }

// Empty reports whether the rectangle contains no pixels.
func (r Rect) Empty() bool { return r.Left >= r.Right || r.Top >= r.Bottom }

// Contains reports whether the point (x, y) is inside the rectangle.
func (r Rect) Contains(x, y int32) bool {
	return x >= r.Left && x < r.Right && y >= r.Top && y < r.Bottom
}

// Intersect returns the largest rectangle contained by both r and s. If the
// two rectangles do not overlap, the result is empty.
func (r Rect) Intersect(s Rect) Rect {
	if s.Left > r.Left {
		r.Left = s.Left
	}
	if s.Top > r.Top {
		r.Top = s.Top
	}
	if s.Right < r.Right {
		r.Right = s.Right
	}
	if s.Bottom < r.Bottom {
		r.Bottom = s.Bottom
	}
	return r
}

// Offset returns the rectangle translated by (dx, dy).
func (r Rect) Offset(dx, dy int32) Rect {
	return Rect{r.Left + dx, r.Top + dy, r.Right + dx, r.Bottom + dy}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// WindowFrames carries the window geometry reported to a client on resize.
type WindowFrames struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}
