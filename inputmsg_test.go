// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lightwm/wm/internal/fmq"
)

func newTestRegistry() *fmq.Registry { return fmq.NewRegistry() }

func TestInputMessageWire(t *testing.T) {
	pointer := InputMessage{
		Type:  MessagePointer,
		State: StatePressed,
		Pointer: PointerPayload{
			RawX: 475, RawY: 200, X: 75, Y: 40,
			Gesture: SwipeLeft | TriggerX,
		},
	}
	var rec [InputMessageSize]byte
	pointer.Encode(rec[:])
	var got InputMessage
	got.Decode(rec[:])
	if diff := cmp.Diff(pointer, got); diff != "" {
		t.Errorf("pointer round trip (-want +got):\n%s", diff)
	}

	keypad := InputMessage{
		Type:   MessageKeypad,
		State:  StateReleased,
		Keypad: KeypadPayload{KeyCode: -42},
	}
	keypad.Encode(rec[:])
	got = InputMessage{}
	got.Decode(rec[:])
	if diff := cmp.Diff(keypad, got); diff != "" {
		t.Errorf("keypad round trip (-want +got):\n%s", diff)
	}
}

func TestGestureBits(t *testing.T) {
	if !IsXSwipe(SwipeLeft) || !IsXSwipe(SwipeRight) || IsXSwipe(SwipeUp) {
		t.Error("IsXSwipe misclassifies")
	}
	if !IsYSwipe(SwipeUp) || !IsYSwipe(SwipeDown) || IsYSwipe(SwipeRight) {
		t.Error("IsYSwipe misclassifies")
	}
	if !IsScreenOff(ScreenOff) || IsScreenOff(TriggerX) {
		t.Error("IsScreenOff misclassifies")
	}
}

func TestInputChannelDepth(t *testing.T) {
	reg := newTestRegistry()
	ch, err := CreateInputChannel(reg, "test/input")
	if err != nil {
		t.Fatalf("CreateInputChannel: %v", err)
	}
	defer ch.Release()

	msg := &InputMessage{Type: MessageKeypad, State: StatePressed, Keypad: KeypadPayload{KeyCode: 5}}
	for i := 0; i < MaxMessages; i++ {
		if err := ch.SendMessage(msg); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	// The 51st send fails immediately; nothing blocks, nothing retries.
	if err := ch.SendMessage(msg); err != ErrQueueFull {
		t.Fatalf("send beyond depth = %v, want ErrQueueFull", err)
	}
	if got := ch.Pending(); got != MaxMessages {
		t.Fatalf("pending = %d, want %d", got, MaxMessages)
	}

	var out InputMessage
	ok, err := ch.ReceiveMessage(&out)
	if !ok || err != nil {
		t.Fatalf("receive = %v, %v", ok, err)
	}
	if err := ch.SendMessage(msg); err != nil {
		t.Fatalf("send after drain: %v", err)
	}
}
