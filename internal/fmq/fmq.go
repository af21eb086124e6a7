// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fmq implements named, bounded message queues of fixed-size
// records over shared memory, with an eventfd carrying readiness to the
// reading side. One writer and one reader per queue.
package fmq

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/lightwm/wm/internal/shm"
)

// ErrFull is returned by a Send on a queue that already holds Capacity
// records. Sends never block.
var ErrFull = errors.New("fmq: queue full")

// ErrClosed is returned by operations on a released queue.
var ErrClosed = errors.New("fmq: queue closed")

const headerSize = 16

// Queue is one shared-memory ring of fixed-size records. The ring header
// holds the read and write cursors; cursor loads and stores are atomic so
// the two endpoints may live in different processes.
type Queue struct {
	name       string
	recordSize int
	capacity   int

	mem *shm.Buffer
	efd int

	reg *Registry

	mu     sync.Mutex
	refs   int
	closed bool
}

func (q *Queue) readPos() *uint32 {
	return (*uint32)(unsafe.Pointer(&q.mem.Bytes()[0]))
}

func (q *Queue) writePos() *uint32 {
	return (*uint32)(unsafe.Pointer(&q.mem.Bytes()[4]))
}

func (q *Queue) slot(i uint32) []byte {
	off := headerSize + int(i)*q.recordSize
	return q.mem.Bytes()[off : off+q.recordSize]
}

// Name returns the queue's registry name.
func (q *Queue) Name() string { return q.name }

// Capacity returns the number of records the queue holds before Send fails.
func (q *Queue) Capacity() int { return q.capacity }

// EventFd returns the readiness descriptor. The writer adds one count per
// delivered record; a blocking read consumes one count.
func (q *Queue) EventFd() int { return q.efd }

// Send writes one record without blocking. rec must be exactly the record
// size.
func (q *Queue) Send(rec []byte) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.mu.Unlock()

	if len(rec) != q.recordSize {
		return xerrors.Errorf("fmq: record size %d, queue %q wants %d", len(rec), q.name, q.recordSize)
	}

	// One slot is kept empty to distinguish full from empty.
	slots := uint32(q.capacity + 1)
	w := atomic.LoadUint32(q.writePos())
	r := atomic.LoadUint32(q.readPos())
	next := (w + 1) % slots
	if next == r {
		return ErrFull
	}
	copy(q.slot(w), rec)
	atomic.StoreUint32(q.writePos(), next)

	var one [8]byte
	one[0] = 1
	unix.Write(q.efd, one[:])
	return nil
}

// Receive reads one record into rec without blocking. It reports whether a
// record was available.
func (q *Queue) Receive(rec []byte) (bool, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false, ErrClosed
	}
	q.mu.Unlock()

	if len(rec) != q.recordSize {
		return false, xerrors.Errorf("fmq: record size %d, queue %q wants %d", len(rec), q.name, q.recordSize)
	}

	slots := uint32(q.capacity + 1)
	r := atomic.LoadUint32(q.readPos())
	w := atomic.LoadUint32(q.writePos())
	if r == w {
		return false, nil
	}
	copy(rec, q.slot(r))
	atomic.StoreUint32(q.readPos(), (r+1)%slots)
	return true, nil
}

// Pending returns the number of records waiting to be read.
func (q *Queue) Pending() int {
	slots := uint32(q.capacity + 1)
	r := atomic.LoadUint32(q.readPos())
	w := atomic.LoadUint32(q.writePos())
	return int((w + slots - r) % slots)
}

// OpenRef adds one endpoint reference, as when the queue descriptor is
// duplicated across IPC.
func (q *Queue) OpenRef() {
	q.mu.Lock()
	q.refs++
	q.mu.Unlock()
}

// Close drops one endpoint reference. The shared memory and the eventfd
// are torn down when the last endpoint closes.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.refs--
	last := q.refs <= 0
	if last {
		q.closed = true
	}
	q.mu.Unlock()

	if !last {
		return nil
	}
	if q.reg != nil {
		q.reg.remove(q.name)
	}
	unix.Close(q.efd)
	return q.mem.Close()
}

// Registry resolves queue names, standing in for a kernel message-queue
// namespace. One registry is shared by the processes of one display.
type Registry struct {
	mu     sync.Mutex
	queues map[string]*Queue
}

// NewRegistry returns an empty namespace.
func NewRegistry() *Registry {
	return &Registry{queues: make(map[string]*Queue)}
}

// Create makes a new queue under name. Creating a name that exists fails.
func (r *Registry) Create(name string, recordSize, capacity int) (*Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.queues[name]; ok {
		return nil, xerrors.Errorf("fmq: queue %q exists", name)
	}

	size := headerSize + recordSize*(capacity+1)
	mem, err := shm.Create(name, size)
	if err != nil {
		return nil, err
	}
	efd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_SEMAPHORE)
	if err != nil {
		mem.Close()
		return nil, xerrors.Errorf("fmq: eventfd for %q: %w", name, err)
	}
	q := &Queue{
		name:       name,
		recordSize: recordSize,
		capacity:   capacity,
		mem:        mem,
		efd:        efd,
		reg:        r,
		refs:       1,
	}
	r.queues[name] = q
	return q, nil
}

// Open attaches to an existing queue, adding one endpoint reference.
func (r *Registry) Open(name string) (*Queue, error) {
	r.mu.Lock()
	q, ok := r.queues[name]
	r.mu.Unlock()
	if !ok {
		return nil, xerrors.Errorf("fmq: queue %q not found", name)
	}
	q.OpenRef()
	return q, nil
}

func (r *Registry) remove(name string) {
	r.mu.Lock()
	delete(r.queues, name)
	r.mu.Unlock()
}
