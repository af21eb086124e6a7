// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

// Visibility is the client-facing visibility of a token or window.
type Visibility int32

const (
	// VisibilityVisible shows the token's windows.
	VisibilityVisible Visibility = 0
	// VisibilityHold freezes the current effective visibility.
	VisibilityHold Visibility = 1
	// VisibilityGone hides the token's windows.
	VisibilityGone Visibility = 2
)

func (v Visibility) String() string {
	switch v {
	case VisibilityVisible:
		return "visible"
	case VisibilityHold:
		return "hold"
	case VisibilityGone:
		return "gone"
	}
	return "unknown"
}

// WindowType places a window on one of the server's layers.
type WindowType int32

const (
	TypeApplication  WindowType = 1
	TypeSystemWindow WindowType = 1000
	TypeToast        WindowType = TypeSystemWindow + 1
	TypeDialog       WindowType = TypeSystemWindow + 2

	InvalidWindowType WindowType = -1
)

// PixelFormat describes the pixel layout of a surface's buffers. The format
// is fixed at surface creation; buffers carry no header.
type PixelFormat int32

const (
	FormatUnknown     PixelFormat = 0
	FormatTransparent PixelFormat = -2
	FormatOpaque      PixelFormat = -1

	FormatRGB565   PixelFormat = 0x12
	FormatRGB565A8 PixelFormat = 0x14
	FormatRGB888   PixelFormat = 0x0F
	FormatARGB8888 PixelFormat = 0x10
	FormatXRGB8888 PixelFormat = 0x11
)

// BytesPerPixel returns the per-pixel byte size of the format. Formats
// without a fixed layout (and the opaque/transparent sentinels) fall back to
// the default 32-bit layout.
func (f PixelFormat) BytesPerPixel() int32 {
	switch f {
	case FormatRGB565:
		return 2
	case FormatRGB565A8:
		// 16-bit color plus a separate 8-bit alpha plane.
		return 3
	case FormatRGB888:
		return 3
	case FormatARGB8888, FormatXRGB8888:
		return 4
	}
	return 4
}

// MatchParent, as a requested width or height, resolves to the display size
// at attach time.
const MatchParent int32 = -1

// InputFeatureNoChannel suppresses input channel creation for a window. The
// window will be incapable of receiving input.
const InputFeatureNoChannel int8 = 1 << 0

// LayoutParams are the window attributes a client hands to AddWindow and
// Relayout.
type LayoutParams struct {
	Width  int32
	Height int32
	X      int32
	Y      int32
	Type   WindowType
	Flags  int32
	Format PixelFormat
	Token  Token

	// InputFeatures controls the input subsystem features exposed to the
	// window.
	InputFeatures int8
}

// NewLayoutParams returns params with the default type, format and
// MatchParent extent.
func NewLayoutParams() LayoutParams {
	return LayoutParams{
		Width:  MatchParent,
		Height: MatchParent,
		Type:   TypeApplication,
		Format: FormatARGB8888,
	}
}

// HasInput reports whether the window wants an input channel.
func (p *LayoutParams) HasInput() bool {
	return p.InputFeatures&InputFeatureNoChannel == 0
}
