// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

import (
	"encoding/binary"
	"fmt"
)

// InputMessageType discriminates the payload of an InputMessage.
type InputMessageType uint8

const (
	MessagePointer InputMessageType = iota
	MessageKeypad
)

// InputMessageState is the press state carried by an InputMessage.
type InputMessageState uint8

const (
	StateReleased InputMessageState = iota
	StatePressed
)

// Gesture bitset, annotated on pointer messages by the server-side
// recognizer.
const (
	SwipeUp    uint8 = 1 << 0
	SwipeDown  uint8 = 1 << 1
	SwipeLeft  uint8 = 1 << 2
	SwipeRight uint8 = 1 << 3
	TriggerX   uint8 = 1 << 4
	TriggerY   uint8 = 1 << 5
	ScreenOff  uint8 = 1 << 6
)

func IsXSwipe(g uint8) bool    { return g&(SwipeLeft|SwipeRight) != 0 }
func IsYSwipe(g uint8) bool    { return g&(SwipeUp|SwipeDown) != 0 }
func IsScreenOff(g uint8) bool { return g&ScreenOff != 0 }

// PointerPayload is the payload of a MessagePointer message. Raw
// coordinates are display coordinates; X and Y are mapped into the target
// window.
type PointerPayload struct {
	RawX    int32
	RawY    int32
	X       int32
	Y       int32
	Gesture uint8
}

// KeypadPayload is the payload of a MessageKeypad message.
type KeypadPayload struct {
	KeyCode int32
}

// InputMessage is one fixed-size event record delivered from the server to
// a client window.
type InputMessage struct {
	Type  InputMessageType
	State InputMessageState

	Pointer PointerPayload
	Keypad  KeypadPayload
}

// InputMessageSize is the wire size of an encoded InputMessage: one byte of
// type, one byte of state, and the pointer payload (the larger variant),
// four 32-bit little-endian integers plus the gesture bitset.
const InputMessageSize = 2 + 4*4 + 1

// Encode writes the message into b, which must hold InputMessageSize bytes.
func (m *InputMessage) Encode(b []byte) {
	_ = b[InputMessageSize-1]
	b[0] = byte(m.Type)
	b[1] = byte(m.State)
	switch m.Type {
	case MessagePointer:
		binary.LittleEndian.PutUint32(b[2:], uint32(m.Pointer.RawX))
		binary.LittleEndian.PutUint32(b[6:], uint32(m.Pointer.RawY))
		binary.LittleEndian.PutUint32(b[10:], uint32(m.Pointer.X))
		binary.LittleEndian.PutUint32(b[14:], uint32(m.Pointer.Y))
		b[18] = m.Pointer.Gesture
	case MessageKeypad:
		binary.LittleEndian.PutUint32(b[2:], uint32(m.Keypad.KeyCode))
	}
}

// Decode reads the message from b, which must hold InputMessageSize bytes.
func (m *InputMessage) Decode(b []byte) {
	_ = b[InputMessageSize-1]
	*m = InputMessage{
		Type:  InputMessageType(b[0]),
		State: InputMessageState(b[1]),
	}
	switch m.Type {
	case MessagePointer:
		m.Pointer.RawX = int32(binary.LittleEndian.Uint32(b[2:]))
		m.Pointer.RawY = int32(binary.LittleEndian.Uint32(b[6:]))
		m.Pointer.X = int32(binary.LittleEndian.Uint32(b[10:]))
		m.Pointer.Y = int32(binary.LittleEndian.Uint32(b[14:]))
		m.Pointer.Gesture = b[18]
	case MessageKeypad:
		m.Keypad.KeyCode = int32(binary.LittleEndian.Uint32(b[2:]))
	}
}

func (m *InputMessage) String() string {
	switch m.Type {
	case MessagePointer:
		return fmt.Sprintf("pointer state=%d raw=(%d,%d) pos=(%d,%d) gesture=%#x",
			m.State, m.Pointer.RawX, m.Pointer.RawY, m.Pointer.X, m.Pointer.Y, m.Pointer.Gesture)
	case MessageKeypad:
		return fmt.Sprintf("keypad state=%d code=%d", m.State, m.Keypad.KeyCode)
	}
	return fmt.Sprintf("unknown type=%d", m.Type)
}
