// Package ring provides the bounded byte ring buffer that hands audio
// off between the socket receive goroutine and the capture stream
// callback. The two sides run at unsynchronized cadences; the buffer
// trades the oldest audio for bounded latency and memory when the
// producer outruns the consumer.
package ring

import (
	"errors"
	"sync"
)

// ErrClosed is returned by ReadAvailable once the buffer is closed and
// drained.
var ErrClosed = errors.New("ring: closed")

// DefaultCapacity is the buffer size used by the bridge.
const DefaultCapacity = 102400

// Buffer is a fixed-capacity byte ring with an overwrite-oldest overflow
// policy. Append never blocks; ReadAvailable blocks until data arrives
// or the buffer is closed. Safe for one producer and one consumer on
// different goroutines; the backing storage is allocated once and never
// grows.
type Buffer struct {
	mu   sync.Mutex
	cond *sync.Cond

	data   []byte
	head   int // next write position
	tail   int // next read position
	size   int // bytes currently buffered
	closed bool
}

// New creates a Buffer with the given capacity in bytes.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Buffer{data: make([]byte, capacity)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Append writes all of p into the buffer, overwriting the oldest unread
// bytes if capacity is exceeded, and wakes a blocked reader. Appending
// to a closed buffer is a no-op.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	// Only the last cap(b) bytes of an oversized append can survive.
	if len(p) > len(b.data) {
		p = p[len(p)-len(b.data):]
	}

	n := copy(b.data[b.head:], p)
	if n < len(p) {
		copy(b.data, p[n:])
	}
	b.head = (b.head + len(p)) % len(b.data)

	b.size += len(p)
	if b.size > len(b.data) {
		// Overflow: drop the oldest bytes by advancing the tail.
		b.tail = b.head
		b.size = len(b.data)
	}

	b.cond.Signal()
}

// ReadAvailable blocks until at least one byte is buffered, then copies
// up to min(len(dst), contiguous-run-before-wrap) bytes starting at the
// current tail and advances the tail. It may return fewer bytes than
// dst holds even when more are buffered: only the run up to the wrap
// point is copied per call. Returns ErrClosed once the buffer is closed
// and no data remains.
func (b *Buffer) ReadAvailable(dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for b.size == 0 {
		if b.closed {
			return 0, ErrClosed
		}
		b.cond.Wait()
	}

	run := len(b.data) - b.tail
	if run > b.size {
		run = b.size
	}
	n := copy(dst, b.data[b.tail:b.tail+run])
	b.tail = (b.tail + n) % len(b.data)
	b.size -= n

	return n, nil
}

// Close wakes all blocked readers. Buffered data remains readable;
// once drained, ReadAvailable returns ErrClosed.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.cond.Broadcast()
}
