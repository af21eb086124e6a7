// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shm

import "testing"

func TestCreateAndMapSharePages(t *testing.T) {
	b, err := Create("test/page", 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer b.Close()

	fd, err := Dup(b.Fd())
	if err != nil {
		t.Fatalf("Dup: %v", err)
	}
	view, err := Map("test/page-view", fd, 4096)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	defer view.Close()

	b.Bytes()[0] = 0xAB
	b.Bytes()[4095] = 0xCD
	if view.Bytes()[0] != 0xAB || view.Bytes()[4095] != 0xCD {
		t.Fatal("second mapping does not see writes")
	}
	if view.Size() != 4096 {
		t.Fatalf("size = %d", view.Size())
	}
}

func TestDoubleCloseIsAnError(t *testing.T) {
	b, err := Create("test/double", 64)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := b.Close(); err == nil {
		t.Fatal("second close succeeded")
	}
}

func TestCreateFd(t *testing.T) {
	fd, err := CreateFd("test/fd", 128)
	if err != nil {
		t.Fatalf("CreateFd: %v", err)
	}
	b, err := Map("test/fd", fd, 128)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	b.Bytes()[127] = 1
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
