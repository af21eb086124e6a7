// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLayerStateMerge(t *testing.T) {
	window := NewHandle()
	tests := []struct {
		name string
		base LayerState
		in   LayerState
		want LayerState
	}{
		{
			name: "last buffer wins",
			base: LayerState{Window: window, Flags: LayerBufferChanged, BufferKey: 1},
			in:   LayerState{Window: window, Flags: LayerBufferChanged, BufferKey: 2},
			want: LayerState{Window: window, Flags: LayerBufferChanged, BufferKey: 2},
		},
		{
			name: "flags accumulate",
			base: LayerState{Window: window, Flags: LayerBufferChanged, BufferKey: 3},
			in:   LayerState{Window: window, Flags: LayerPositionChanged, X: 7, Y: 9},
			want: LayerState{
				Window: window, Flags: LayerBufferChanged | LayerPositionChanged,
				BufferKey: 3, X: 7, Y: 9,
			},
		},
		{
			name: "unset fields untouched",
			base: LayerState{Window: window, Flags: LayerAlphaChanged, Alpha: 128},
			in:   LayerState{Window: window, Flags: LayerBufferCropChanged, BufferCrop: MakeRect(0, 0, 8, 8)},
			want: LayerState{
				Window: window, Flags: LayerAlphaChanged | LayerBufferCropChanged,
				Alpha: 128, BufferCrop: MakeRect(0, 0, 8, 8),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := test.base
			got.Merge(&test.in)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("merge mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVsyncNext(t *testing.T) {
	tests := []struct {
		in   VsyncRequest
		want VsyncRequest
	}{
		{VsyncNone, VsyncNone},
		{VsyncSingle, VsyncNone},
		{VsyncPeriodic, VsyncPeriodic},
	}
	for _, test := range tests {
		if got := test.in.Next(); got != test.want {
			t.Errorf("Next(%v) = %v, want %v", test.in, got, test.want)
		}
	}
}
