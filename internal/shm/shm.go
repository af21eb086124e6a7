// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shm provides the shared-memory pixel buffers backing window
// surfaces. Buffers are anonymous memory-file objects: the server creates
// them, the file descriptors travel across the IPC boundary, and both sides
// map the same pages.
package shm

import (
	"runtime"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// Buffer is a mapped shared-memory object.
type Buffer struct {
	name string
	fd   int
	data []byte

	mu     sync.Mutex
	closed bool
}

// Create allocates a new shared-memory object of the given byte size and
// maps it read-write. The name is for debugging only; the object is
// anonymous to the filesystem.
func Create(name string, size int) (*Buffer, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, xerrors.Errorf("shm: memfd_create %q: %w", name, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, xerrors.Errorf("shm: ftruncate %q to %d: %w", name, size, err)
	}
	return mapFd(name, fd, size)
}

// CreateFd allocates a new shared-memory object and returns its descriptor
// without mapping it. The caller owns the descriptor.
func CreateFd(name string, size int) (int, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return -1, xerrors.Errorf("shm: memfd_create %q: %w", name, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return -1, xerrors.Errorf("shm: ftruncate %q to %d: %w", name, size, err)
	}
	return fd, nil
}

// Map maps an existing shared-memory object received over IPC. The Buffer
// takes ownership of fd.
func Map(name string, fd, size int) (*Buffer, error) {
	return mapFd(name, fd, size)
}

// Close closes a raw descriptor obtained from CreateFd or Dup.
func Close(fd int) error {
	if err := unix.Close(fd); err != nil {
		return xerrors.Errorf("shm: close fd %d: %w", fd, err)
	}
	return nil
}

// Dup duplicates a shared-memory file descriptor for handoff to another
// owner.
func Dup(fd int) (int, error) {
	nfd, err := unix.Dup(fd)
	if err != nil {
		return -1, xerrors.Errorf("shm: dup %d: %w", fd, err)
	}
	return nfd, nil
}

func mapFd(name string, fd, size int) (*Buffer, error) {
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, xerrors.Errorf("shm: mmap %q (%d bytes): %w", name, size, err)
	}
	b := &Buffer{name: name, fd: fd, data: data}
	// The runtime.SetFinalizer documentation gives no guarantee that
	// finalizers run before exit; Close remains the only reliable release
	// path. The finalizer is a backstop for leaked buffers.
	runtime.SetFinalizer(b, (*Buffer).Close)
	return b, nil
}

// Name returns the debug name the buffer was created with.
func (b *Buffer) Name() string { return b.name }

// Fd returns the backing file descriptor.
func (b *Buffer) Fd() int { return b.fd }

// Size returns the mapped byte size.
func (b *Buffer) Size() int { return len(b.data) }

// Bytes returns the mapped pages. The slice is invalid after Close.
func (b *Buffer) Bytes() []byte { return b.data }

// Close unmaps the pages and closes the descriptor. Closing twice is an
// error: buffer clean-up must have exactly one owner.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return xerrors.Errorf("shm: buffer %q closed twice", b.name)
	}
	b.closed = true
	runtime.SetFinalizer(b, nil)

	if err := unix.Munmap(b.data); err != nil {
		return xerrors.Errorf("shm: munmap %q: %w", b.name, err)
	}
	b.data = nil
	if err := unix.Close(b.fd); err != nil {
		return xerrors.Errorf("shm: close %q: %w", b.name, err)
	}
	b.fd = -1
	return nil
}
