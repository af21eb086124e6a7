// Copyright 2024 The LightWM Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wm

import (
	"sort"

	"golang.org/x/xerrors"

	"github.com/lightwm/wm/internal/shm"
)

// BufferState is the ownership state of one buffer.
//
// The producer face owns FREE and DEQUEUED, the consumer face owns QUEUED
// and ACQUIRED. The only cross-process handoffs are the sync operations,
// which travel over IPC rather than shared memory.
type BufferState int32

const (
	BufferFree BufferState = iota
	BufferDequeued
	BufferQueued
	BufferAcquired
)

func (s BufferState) String() string {
	switch s {
	case BufferFree:
		return "free"
	case BufferDequeued:
		return "dequeued"
	case BufferQueued:
		return "queued"
	case BufferAcquired:
		return "acquired"
	}
	return "unknown"
}

// BufferSlot selects one of the queue's ordered key lists.
type BufferSlot int

const (
	SlotFree BufferSlot = iota
	SlotData
)

// BufferItem is one shared-memory pixel buffer and its queue state. Exactly
// one BufferItem exists per BufferKey. The pixel data is safe to write only
// while DEQUEUED and safe to read only while ACQUIRED.
type BufferItem struct {
	Key   BufferKey
	State BufferState

	mem *shm.Buffer
}

// Bytes returns the mapped pixel data, nil for an unmapped item.
func (it *BufferItem) Bytes() []byte {
	if it.mem == nil {
		return nil
	}
	return it.mem.Bytes()
}

// Size returns the buffer's byte size.
func (it *BufferItem) Size() int {
	if it.mem == nil {
		return 0
	}
	return it.mem.Size()
}

// Fd returns the descriptor of the backing memory object.
func (it *BufferItem) Fd() int {
	if it.mem == nil {
		return -1
	}
	return it.mem.Fd()
}

// BufferQueue is the state machine over a surface's buffer pool. Each side
// of the IPC boundary holds its own BufferQueue over the same buffer set;
// the producer face (client) and consumer face (server) only permit the
// transitions legal from their side.
//
// Invariants, checked by every transition: a key is in the free list iff
// its state is FREE, in the data list iff QUEUED, and in neither while
// DEQUEUED or ACQUIRED. Both lists are FIFO.
type BufferQueue struct {
	sc      *SurfaceControl
	buffers map[BufferKey]*BufferItem

	freeSlot []BufferKey
	dataSlot []BufferKey
}

// newBufferQueue maps the surface's buffers and places them all in FREE.
func newBufferQueue(sc *SurfaceControl) (*BufferQueue, error) {
	q := &BufferQueue{}
	if _, err := q.Update(sc); err != nil {
		return nil, err
	}
	return q, nil
}

// Update rebinds the queue to sc, remapping the buffer set if the surface
// changed. It reports whether a remap happened.
func (q *BufferQueue) Update(sc *SurfaceControl) (bool, error) {
	if SameSurface(sc, q.sc) {
		return false, nil
	}

	if len(q.buffers) != 0 {
		q.Clear()
	}
	q.sc = sc

	size := int(sc.Width() * sc.Height() * sc.Format().BytesPerPixel())

	// Sort for a deterministic initial free order.
	ids := make([]BufferID, 0, len(sc.BufferIDs()))
	for _, id := range sc.BufferIDs() {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Key < ids[j].Key })

	q.buffers = make(map[BufferKey]*BufferItem, len(ids))
	q.freeSlot = q.freeSlot[:0]
	q.dataSlot = q.dataSlot[:0]
	for _, id := range ids {
		if id.Fd < 0 {
			q.Clear()
			return false, xerrors.Errorf("wm: buffer %d of surface %d has no descriptor", id.Key, sc.Handle())
		}
		mem, err := shm.Map(id.Name, id.Fd, size)
		if err != nil {
			q.Clear()
			return false, xerrors.Errorf("wm: mapping buffer %d: %w", id.Key, err)
		}
		q.buffers[id.Key] = &BufferItem{Key: id.Key, State: BufferFree, mem: mem}
		q.freeSlot = append(q.freeSlot, id.Key)
	}
	return true, nil
}

// Clear unmaps and closes every buffer and empties both slot lists.
func (q *BufferQueue) Clear() {
	for _, it := range q.buffers {
		it.mem.Close()
	}
	q.buffers = nil
	q.freeSlot = q.freeSlot[:0]
	q.dataSlot = q.dataSlot[:0]
}

// Buffer returns the item for key, or nil.
func (q *BufferQueue) Buffer(key BufferKey) *BufferItem {
	return q.buffers[key]
}

// Len returns the number of buffers in the pool.
func (q *BufferQueue) Len() int { return len(q.buffers) }

// Head returns the item at the head of the selected slot list, or nil when
// the list is empty.
func (q *BufferQueue) Head(slot BufferSlot) *BufferItem {
	switch slot {
	case SlotFree:
		if len(q.freeSlot) > 0 {
			return q.buffers[q.freeSlot[0]]
		}
	case SlotData:
		if len(q.dataSlot) > 0 {
			return q.buffers[q.dataSlot[0]]
		}
	}
	return nil
}

// CancelBuffer returns a dequeued or acquired buffer to FREE.
func (q *BufferQueue) CancelBuffer(it *BufferItem) error {
	return q.toState(it, BufferFree)
}

// syncState applies a state change announced by the other face: the
// producer's queue becomes QUEUED on the consumer, the consumer's release
// becomes FREE on the producer. A re-queue of a key the local face still
// sees as QUEUED overwrites: the current item is returned unchanged.
func (q *BufferQueue) syncState(key BufferKey, by BufferState) (*BufferItem, error) {
	it := q.buffers[key]
	if it == nil {
		return nil, xerrors.Errorf("wm: sync of unknown buffer %d: %w", key, ErrInvalidState)
	}
	switch {
	case it.State == BufferQueued && by == BufferFree:
		// Consumer released; producer's view catches up.
		if err := q.toState(it, BufferFree); err != nil {
			return nil, err
		}
		return it, nil
	case it.State == BufferFree && by == BufferQueued:
		// Producer queued; consumer's view catches up.
		if err := q.toState(it, BufferQueued); err != nil {
			return nil, err
		}
		return it, nil
	case it.State == BufferQueued && by == BufferQueued:
		// Producer re-queued before this face saw the prior queue; the
		// queued value is overwritten, the item is returned as is.
		return it, nil
	}
	return nil, xerrors.Errorf("wm: sync %v onto %v buffer %d: %w", by, it.State, key, ErrInvalidState)
}

func removeKey(slot []BufferKey, key BufferKey) ([]BufferKey, bool) {
	for i, k := range slot {
		if k == key {
			return append(slot[:i], slot[i+1:]...), true
		}
	}
	return slot, false
}

func containsKey(slot []BufferKey, key BufferKey) bool {
	for _, k := range slot {
		if k == key {
			return true
		}
	}
	return false
}

// toState performs one legal transition of the state machine:
//
//	producer: FREE <-> DEQUEUED -> QUEUED -> FREE
//	consumer: FREE <-> QUEUED -> ACQUIRED -> FREE
//
// Illegal transitions return ErrInvalidState with no side effect.
func (q *BufferQueue) toState(it *BufferItem, state BufferState) error {
	switch it.State {
	case BufferFree:
		switch state {
		case BufferDequeued:
			slot, ok := removeKey(q.freeSlot, it.Key)
			if !ok {
				return ErrInvalidState
			}
			q.freeSlot = slot
			it.State = state
			return nil
		case BufferQueued:
			slot, ok := removeKey(q.freeSlot, it.Key)
			if !ok {
				return ErrInvalidState
			}
			q.freeSlot = slot
			q.dataSlot = append(q.dataSlot, it.Key)
			it.State = state
			return nil
		}

	case BufferDequeued:
		switch state {
		case BufferQueued:
			if containsKey(q.dataSlot, it.Key) {
				return ErrInvalidState
			}
			q.dataSlot = append(q.dataSlot, it.Key)
			it.State = state
			return nil
		case BufferFree:
			if containsKey(q.freeSlot, it.Key) {
				return ErrInvalidState
			}
			q.freeSlot = append(q.freeSlot, it.Key)
			it.State = state
			return nil
		}

	case BufferQueued:
		switch state {
		case BufferAcquired:
			slot, ok := removeKey(q.dataSlot, it.Key)
			if !ok {
				return ErrInvalidState
			}
			q.dataSlot = slot
			it.State = state
			return nil
		case BufferFree:
			slot, ok := removeKey(q.dataSlot, it.Key)
			if !ok {
				return ErrInvalidState
			}
			q.dataSlot = slot
			q.freeSlot = append(q.freeSlot, it.Key)
			it.State = state
			return nil
		}

	case BufferAcquired:
		if state == BufferFree {
			if containsKey(q.freeSlot, it.Key) {
				return ErrInvalidState
			}
			q.freeSlot = append(q.freeSlot, it.Key)
			it.State = state
			return nil
		}
	}
	return ErrInvalidState
}

// BufferProducer is the client face of a buffer queue.
type BufferProducer struct {
	*BufferQueue
}

// NewBufferProducer maps sc's buffers and returns the producer face,
// attaching the queue to sc.
func NewBufferProducer(sc *SurfaceControl) (*BufferProducer, error) {
	q, err := newBufferQueue(sc)
	if err != nil {
		return nil, err
	}
	sc.SetQueue(q)
	return &BufferProducer{q}, nil
}

// ProducerFor returns the producer face of the queue attached to sc, or nil
// when no queue is attached.
func ProducerFor(sc *SurfaceControl) *BufferProducer {
	if sc == nil || sc.Queue() == nil {
		return nil
	}
	return &BufferProducer{sc.Queue()}
}

// Dequeue takes the head of the free list for drawing.
func (p *BufferProducer) Dequeue() (*BufferItem, error) {
	it := p.Head(SlotFree)
	if it == nil {
		return nil, ErrNoBufferAvailable
	}
	if err := p.toState(it, BufferDequeued); err != nil {
		return nil, err
	}
	return it, nil
}

// Queue submits a dequeued buffer to the data list.
func (p *BufferProducer) Queue(it *BufferItem) error {
	if it.State != BufferDequeued {
		return ErrInvalidState
	}
	return p.toState(it, BufferQueued)
}

// SyncFree applies the consumer's release of key to the producer's view.
func (p *BufferProducer) SyncFree(key BufferKey) (*BufferItem, error) {
	return p.syncState(key, BufferFree)
}

// BufferConsumer is the server face of a buffer queue.
type BufferConsumer struct {
	*BufferQueue
}

// NewBufferConsumer maps sc's buffers and returns the consumer face,
// attaching the queue to sc.
func NewBufferConsumer(sc *SurfaceControl) (*BufferConsumer, error) {
	q, err := newBufferQueue(sc)
	if err != nil {
		return nil, err
	}
	sc.SetQueue(q)
	return &BufferConsumer{q}, nil
}

// ConsumerFor returns the consumer face of the queue attached to sc, or nil
// when no queue is attached.
func ConsumerFor(sc *SurfaceControl) *BufferConsumer {
	if sc == nil || sc.Queue() == nil {
		return nil
	}
	return &BufferConsumer{sc.Queue()}
}

// Acquire takes the head of the data list for composition.
func (c *BufferConsumer) Acquire() (*BufferItem, error) {
	it := c.Head(SlotData)
	if it == nil {
		return nil, ErrNoBufferAvailable
	}
	if err := c.toState(it, BufferAcquired); err != nil {
		return nil, err
	}
	return it, nil
}

// Release returns an acquired buffer to the free list.
func (c *BufferConsumer) Release(it *BufferItem) error {
	if it.State != BufferAcquired {
		return ErrInvalidState
	}
	return c.toState(it, BufferFree)
}

// SyncQueued applies the producer's queue of key to the consumer's view.
func (c *BufferConsumer) SyncQueued(key BufferKey) (*BufferItem, error) {
	return c.syncState(key, BufferQueued)
}
