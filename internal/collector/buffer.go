package collector

import (
	"sync"

	"tickpipe/internal/domain"
	"tickpipe/internal/observability"
)

// tickBuffer is the collector's shared append-only tick sequence.
// All access goes through one mutex; the critical section only copies
// or clears the backing slice, never runs analytics or I/O.
//
// A capacity of 0 means unbounded. With a positive capacity the buffer
// drops the oldest ticks on overflow: a live view cares about recent
// trades, and blocking the producer would stall the websocket read
// loop past its read deadline.
type tickBuffer struct {
	mu       sync.Mutex
	ticks    []*domain.Tick
	capacity int
	dropped  int64
}

func newTickBuffer(capacity int) *tickBuffer {
	return &tickBuffer{capacity: capacity}
}

// append adds one tick, evicting the oldest when at capacity.
func (b *tickBuffer) append(t *domain.Tick) {
	b.mu.Lock()
	b.ticks = append(b.ticks, t)
	if b.capacity > 0 && len(b.ticks) > b.capacity {
		over := len(b.ticks) - b.capacity
		b.ticks = append(b.ticks[:0], b.ticks[over:]...)
		b.dropped += int64(over)
		observability.RecordTicksDropped(over)
	}
	size := len(b.ticks)
	b.mu.Unlock()

	observability.UpdateBufferSize(size)
}

// drain returns the buffered ticks, clearing the buffer in the same
// critical section when clear is true. The returned slice is never
// aliased by the buffer afterwards.
func (b *tickBuffer) drain(clear bool) []*domain.Tick {
	b.mu.Lock()
	out := make([]*domain.Tick, len(b.ticks))
	copy(out, b.ticks)
	if clear {
		b.ticks = nil
	}
	size := len(b.ticks)
	b.mu.Unlock()

	observability.UpdateBufferSize(size)
	observability.RecordTicksDrained(len(out))
	return out
}

// len returns the current buffer size under the same lock drain uses.
func (b *tickBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ticks)
}

// droppedCount returns the total number of ticks evicted on overflow.
func (b *tickBuffer) droppedCount() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
