package mem

import "fmt"

// SimDevice is a host-backed accelerator. Its buffers live in the
// Accelerator space and follow the same ownership rules as real device
// memory, but host kernels may address them directly.
type SimDevice struct {
	a *arena
}

// NewSimDevice creates a simulated accelerator with an optional byte limit.
func NewSimDevice(limit uint64) *SimDevice {
	return &SimDevice{a: newArena(Accelerator, limit)}
}

// Name returns the device name.
func (d *SimDevice) Name() string { return "sim" }

// Space returns Accelerator.
func (d *SimDevice) Space() Space { return Accelerator }

// Allocate returns zeroed device storage.
func (d *SimDevice) Allocate(size int) (*Buffer, error) { return d.a.allocate(size) }

// Free releases device storage.
func (d *SimDevice) Free(buf *Buffer) error { return d.a.free(buf) }

// Stats returns device memory usage.
func (d *SimDevice) Stats() Stats { return d.a.snapshot() }

// Upload copies host bytes into a device buffer.
func (d *SimDevice) Upload(dst *Buffer, src []byte) error {
	view, err := d.view(dst)
	if err != nil {
		return err
	}
	if len(src) > len(view) {
		return fmt.Errorf("mem: upload of %d bytes into %d-byte buffer", len(src), len(view))
	}
	copy(view, src)
	return nil
}

// Download copies a device buffer into host bytes.
func (d *SimDevice) Download(dst []byte, src *Buffer) error {
	view, err := d.view(src)
	if err != nil {
		return err
	}
	if len(dst) > len(view) {
		return fmt.Errorf("mem: download of %d bytes from %d-byte buffer", len(dst), len(view))
	}
	copy(dst, view)
	return nil
}

// CopyDevice copies size bytes between device buffers.
func (d *SimDevice) CopyDevice(dst, src *Buffer, size int) error {
	to, err := d.view(dst)
	if err != nil {
		return err
	}
	from, err := d.view(src)
	if err != nil {
		return err
	}
	if size > len(to) || size > len(from) {
		return fmt.Errorf("mem: device copy of %d bytes exceeds buffer size", size)
	}
	copy(to[:size], from[:size])
	return nil
}

// Release drops every live buffer.
func (d *SimDevice) Release() {
	d.a.mu.Lock()
	defer d.a.mu.Unlock()
	for id, buf := range d.a.live {
		buf.freed = true
		buf.data = nil
		delete(d.a.live, id)
	}
	d.a.stats.LiveBuffers = 0
	d.a.stats.BytesInUse = 0
}

func (d *SimDevice) view(buf *Buffer) ([]byte, error) {
	if buf.space != Accelerator {
		return nil, fmt.Errorf("%w: expected accelerator buffer, got %s", ErrForeignBuffer, buf.space)
	}
	return buf.Bytes()
}
