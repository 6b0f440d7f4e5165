package mem

import (
	"fmt"
	"sync"
)

// arena hands out host-backed buffers for one space and tracks usage.
type arena struct {
	space Space
	limit uint64 // 0 = unlimited

	mu    sync.Mutex
	live  map[uint64]*Buffer
	stats Stats
}

func newArena(space Space, limit uint64) *arena {
	return &arena{
		space: space,
		limit: limit,
		live:  make(map[uint64]*Buffer),
	}
}

func (a *arena) allocate(size int) (*Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("mem: negative allocation size %d", size)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.limit > 0 && a.stats.BytesInUse+uint64(size) > a.limit {
		return nil, fmt.Errorf("%w: %s: %d bytes requested, %d of %d in use",
			ErrOutOfMemory, a.space, size, a.stats.BytesInUse, a.limit)
	}

	buf := NewHostBacked(a.space, make([]byte, size))
	a.live[buf.id] = buf
	a.trackAllocation(uint64(size))
	return buf, nil
}

func (a *arena) free(buf *Buffer) error {
	if buf == nil {
		return nil
	}
	if buf.space != a.space {
		return fmt.Errorf("%w: %s buffer freed by %s allocator", ErrForeignBuffer, buf.space, a.space)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if buf.freed {
		return fmt.Errorf("%w: buffer %d", ErrDoubleFree, buf.id)
	}
	if _, ok := a.live[buf.id]; !ok {
		return fmt.Errorf("%w: buffer %d was not allocated here", ErrForeignBuffer, buf.id)
	}
	delete(a.live, buf.id)
	buf.freed = true
	buf.data = nil
	a.trackRelease(uint64(buf.size))
	return nil
}

// trackAllocation records a buffer allocation (must hold mu).
func (a *arena) trackAllocation(size uint64) {
	a.stats.TotalAllocs++
	a.stats.LiveBuffers++
	a.stats.BytesInUse += size
	if a.stats.BytesInUse > a.stats.PeakBytes {
		a.stats.PeakBytes = a.stats.BytesInUse
	}
}

// trackRelease records a buffer release (must hold mu).
func (a *arena) trackRelease(size uint64) {
	if a.stats.BytesInUse >= size {
		a.stats.BytesInUse -= size
	}
	a.stats.LiveBuffers--
}

func (a *arena) snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// HostAllocator allocates ordinary Go memory for the host space.
type HostAllocator struct {
	a *arena
}

// NewHostAllocator creates a host allocator. A zero limit means unlimited.
func NewHostAllocator(limit uint64) *HostAllocator {
	return &HostAllocator{a: newArena(Host, limit)}
}

// Space returns Host.
func (h *HostAllocator) Space() Space { return Host }

// Allocate returns zeroed host storage.
func (h *HostAllocator) Allocate(size int) (*Buffer, error) { return h.a.allocate(size) }

// Free releases host storage.
func (h *HostAllocator) Free(buf *Buffer) error { return h.a.free(buf) }

// Stats returns host memory usage.
func (h *HostAllocator) Stats() Stats { return h.a.snapshot() }
