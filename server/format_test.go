// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package server

import (
	"image"
	"testing"

	wm "github.com/lightwm/wm"
	"github.com/lightwm/wm/internal/shm"
)

func TestRGB565Composition(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	if err := s.AddWindowToken(token, wm.TypeApplication, 0); err != nil {
		t.Fatalf("AddWindowToken: %v", err)
	}

	w := newTestWindow()
	attrs := wm.NewLayoutParams()
	attrs.Token = token
	attrs.Width, attrs.Height = 8, 8
	attrs.Format = wm.FormatRGB565
	if _, err := s.AddWindow(w, attrs, wm.VisibilityGone, 0, 1); err != nil {
		t.Fatalf("AddWindow: %v", err)
	}
	s.UpdateWindowTokenVisibility(token, wm.VisibilityVisible)
	sc, err := s.Relayout(w, attrs, attrs.Width, attrs.Height, wm.VisibilityVisible)
	if err != nil {
		t.Fatalf("Relayout: %v", err)
	}

	clientSC := &wm.SurfaceControl{}
	clientSC.CopyFrom(sc)
	ids := make([]wm.BufferID, 0)
	for _, id := range sc.BufferIDs() {
		fd, err := shm.Dup(id.Fd)
		if err != nil {
			t.Fatalf("Dup: %v", err)
		}
		ids = append(ids, wm.BufferID{Name: id.Name, Key: id.Key, Fd: fd})
	}
	clientSC.InitBufferIDs(ids)
	producer, err := wm.NewBufferProducer(clientSC)
	if err != nil {
		t.Fatalf("NewBufferProducer: %v", err)
	}
	defer producer.Clear()

	item, err := producer.Dequeue()
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	// Pure red in RGB565 is 0xF800, little endian on the wire.
	pix := item.Bytes()
	for i := 0; i+1 < 2*8*8; i += 2 {
		pix[i] = 0x00
		pix[i+1] = 0xF8
	}
	producer.Queue(item)
	if err := s.ApplyTransaction([]wm.LayerState{{
		Window: w.handle, Flags: wm.LayerBufferChanged, BufferKey: item.Key,
	}}); err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}

	r, g, b, _ := s.container.Framebuffer().At(3, 3).RGBA()
	if r>>8 != 0xFF || g>>8 != 0 || b>>8 != 0 {
		t.Fatalf("composed pixel = %x %x %x, want red", r>>8, g>>8, b>>8)
	}
}

func TestBlitGlobalAlpha(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 4, 4))
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+0] = 0xFF
		src.Pix[i+3] = 0xFF
	}

	blit(dst, dst.Bounds(), src, src.Bounds(), 128)
	r, _, _, _ := dst.At(1, 1).RGBA()
	got := int(r >> 8)
	if got < 0x70 || got > 0x90 {
		t.Fatalf("half-alpha red = %#x, want about 0x80", got)
	}
}

func TestBlitScales(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 8, 8))
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i+1] = 0xFF
		src.Pix[i+3] = 0xFF
	}

	blit(dst, dst.Bounds(), src, src.Bounds(), 255)
	for _, pt := range []image.Point{{0, 0}, {7, 7}, {3, 4}} {
		_, g, _, _ := dst.At(pt.X, pt.Y).RGBA()
		if g>>8 != 0xFF {
			t.Fatalf("scaled pixel at %v green = %#x", pt, g>>8)
		}
	}
}

func TestCropLimitsSource(t *testing.T) {
	s := newTestService(t, nil)
	token := wm.NewToken()
	w := newTestWindow()
	producer := addVisibleWindow(t, s, w, token)

	item, _ := producer.Dequeue()
	pix := item.Bytes()
	// Left half red, right half green.
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			i := (y*64 + x) * 4
			if x < 32 {
				pix[i+0] = 0xFF
			} else {
				pix[i+1] = 0xFF
			}
			pix[i+3] = 0xFF
		}
	}
	producer.Queue(item)
	if err := s.ApplyTransaction([]wm.LayerState{{
		Window:     w.handle,
		Flags:      wm.LayerBufferChanged | wm.LayerBufferCropChanged,
		BufferKey:  item.Key,
		BufferCrop: wm.MakeRect(32, 0, 64, 64),
	}}); err != nil {
		t.Fatalf("ApplyTransaction: %v", err)
	}

	// The crop selects the green half; scaled over the node it covers
	// the full rect.
	_, g, _, _ := s.container.Framebuffer().At(5, 5).RGBA()
	if g>>8 != 0xFF {
		t.Fatalf("cropped composition green = %#x", g>>8)
	}
}
