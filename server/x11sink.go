// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"image"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"golang.org/x/xerrors"
)

// X11Sink presents the composed framebuffer into an X11 window. It is the
// development stand-in for a hardware framebuffer: the server composes
// exactly as on a device, and the sink pushes the pixels at an X server.
type X11Sink struct {
	conn *xgb.Conn
	win  xproto.Window
	gc   xproto.Gcontext

	width  int
	height int
	depth  byte

	// bgra is the swizzled staging copy; X wants BGRX byte order.
	bgra []byte
}

// NewX11Sink connects to the display and maps a window of the given size.
func NewX11Sink(width, height int32) (*X11Sink, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, xerrors.Errorf("x11 sink: connect: %w", err)
	}
	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return nil, xerrors.Errorf("x11 sink: window id: %w", err)
	}
	xproto.CreateWindow(conn, screen.RootDepth, wid, screen.Root,
		0, 0, uint16(width), uint16(height), 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{screen.BlackPixel, xproto.EventMaskExposure})
	xproto.MapWindow(conn, wid)

	gcid, err := xproto.NewGcontextId(conn)
	if err != nil {
		conn.Close()
		return nil, xerrors.Errorf("x11 sink: gc id: %w", err)
	}
	xproto.CreateGC(conn, gcid, xproto.Drawable(wid), 0, nil)

	return &X11Sink{
		conn:   conn,
		win:    wid,
		gc:     gcid,
		width:  int(width),
		height: int(height),
		depth:  screen.RootDepth,
		bgra:   make([]byte, int(width)*int(height)*4),
	}, nil
}

// Present implements PresentSink.
func (s *X11Sink) Present(fb *image.RGBA) error {
	w, h := s.width, s.height
	if fb.Bounds().Dx() < w {
		w = fb.Bounds().Dx()
	}
	if fb.Bounds().Dy() < h {
		h = fb.Bounds().Dy()
	}

	for y := 0; y < h; y++ {
		src := fb.Pix[y*fb.Stride : y*fb.Stride+w*4]
		dst := s.bgra[y*s.width*4:]
		for x := 0; x < w; x++ {
			dst[4*x+0] = src[4*x+2]
			dst[4*x+1] = src[4*x+1]
			dst[4*x+2] = src[4*x+0]
			dst[4*x+3] = 0xFF
		}
	}

	// Push in row chunks; a whole frame can exceed the X request limit.
	rowBytes := s.width * 4
	chunk := 64
	for y := 0; y < h; y += chunk {
		rows := chunk
		if y+rows > h {
			rows = h - y
		}
		data := s.bgra[y*rowBytes : (y+rows)*rowBytes]
		xproto.PutImage(s.conn, xproto.ImageFormatZPixmap,
			xproto.Drawable(s.win), s.gc,
			uint16(s.width), uint16(rows),
			0, int16(y), 0, s.depth, data)
	}
	return nil
}

// Close implements PresentSink.
func (s *X11Sink) Close() error {
	s.conn.Close()
	return nil
}
