package mem

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrOutOfMemory is returned when an allocation would exceed the space limit.
	ErrOutOfMemory = errors.New("mem: out of memory")
	// ErrDoubleFree is returned when a buffer is freed twice.
	ErrDoubleFree = errors.New("mem: buffer already freed")
	// ErrForeignBuffer is returned when a buffer is handed to an allocator of another space.
	ErrForeignBuffer = errors.New("mem: buffer belongs to another memory space")
	// ErrNoHostView is returned when device storage cannot be addressed from the host.
	ErrNoHostView = errors.New("mem: buffer is not host-addressable")
)

var nextBufferID atomic.Uint64

// Buffer is one allocation owned by a memory space.
type Buffer struct {
	id     uint64
	space  Space
	size   int
	data   []byte // host-addressable storage, nil for native device buffers
	native any    // device handle for buffers without a host view
	freed  bool
}

// NewHostBacked wraps host-addressable bytes as a buffer of the given space.
// Allocators use it for storage the host can read and write directly.
func NewHostBacked(space Space, data []byte) *Buffer {
	return &Buffer{
		id:    nextBufferID.Add(1),
		space: space,
		size:  len(data),
		data:  data,
	}
}

// NewNative wraps a device handle of size bytes.
func NewNative(space Space, size int, handle any) *Buffer {
	return &Buffer{
		id:     nextBufferID.Add(1),
		space:  space,
		size:   size,
		native: handle,
	}
}

// ID returns a process-unique buffer id.
func (b *Buffer) ID() uint64 { return b.id }

// Space returns the memory space that owns the buffer.
func (b *Buffer) Space() Space { return b.space }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int { return b.size }

// Native returns the device handle, or nil for host-backed buffers.
func (b *Buffer) Native() any { return b.native }

// Freed reports whether the buffer has been released.
func (b *Buffer) Freed() bool { return b.freed }

// Bytes returns the host view of the buffer storage.
func (b *Buffer) Bytes() ([]byte, error) {
	if b.freed {
		return nil, ErrDoubleFree
	}
	if b.data == nil && b.size > 0 {
		return nil, ErrNoHostView
	}
	return b.data, nil
}

// Allocator provides the storage primitives of one memory space.
type Allocator interface {
	// Space returns the memory space this allocator serves.
	Space() Space
	// Allocate returns zero-filled storage of size bytes.
	Allocate(size int) (*Buffer, error)
	// Free releases storage obtained from Allocate.
	Free(buf *Buffer) error
	// Stats reports current usage.
	Stats() Stats
}

// Device is an accelerator allocator that can also move bytes across spaces.
type Device interface {
	Allocator

	// Name returns a human-readable device name.
	Name() string
	// Upload copies host bytes into device storage (host to device).
	Upload(dst *Buffer, src []byte) error
	// Download copies device storage into host bytes (device to host).
	Download(dst []byte, src *Buffer) error
	// CopyDevice copies size bytes between two device buffers.
	CopyDevice(dst, src *Buffer, size int) error
	// Release frees every resource held by the device.
	Release()
}

// Stats represents memory usage of one space.
type Stats struct {
	// Number of live buffers
	LiveBuffers int64
	// Bytes currently allocated
	BytesInUse uint64
	// Peak bytes allocated at once
	PeakBytes uint64
	// Allocations since creation
	TotalAllocs uint64
}
