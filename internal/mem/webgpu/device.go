//go:build windows

// Package webgpu provides accelerator memory on a real GPU.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
package webgpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/born-ml/oprt/internal/mem"
	"github.com/go-webgpu/webgpu/wgpu"
)

const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// Device implements mem.Device on WebGPU storage buffers.
// Buffers have no host view: host kernels cannot address them.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	adapterInfo *wgpu.AdapterInfo
	limit       uint64

	mu    sync.Mutex
	live  map[uint64]*wgpu.Buffer
	stats mem.Stats
}

// New opens the default high-performance adapter.
// Returns an error if WebGPU is not available or initialization fails.
func New(limit uint64) (dev *Device, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			dev = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance := wgpu.CreateInstance(nil)
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}

	adapterInfo := adapter.GetInfo()

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Device{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		adapterInfo: &adapterInfo,
		limit:       limit,
		live:        make(map[uint64]*wgpu.Buffer),
	}, nil
}

// Name returns the adapter name.
func (d *Device) Name() string {
	if d.adapterInfo != nil {
		return fmt.Sprintf("WebGPU (%s %s)", d.adapterInfo.Name, d.adapterInfo.VendorName)
	}
	return "WebGPU"
}

// Space returns mem.Accelerator.
func (d *Device) Space() mem.Space { return mem.Accelerator }

// Allocate creates a zero-initialized storage buffer.
func (d *Device) Allocate(size int) (*mem.Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("webgpu: negative allocation size %d", size)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.limit > 0 && d.stats.BytesInUse+uint64(size) > d.limit {
		return nil, fmt.Errorf("%w: webgpu: %d bytes requested, %d of %d in use",
			mem.ErrOutOfMemory, size, d.stats.BytesInUse, d.limit)
	}

	// WebGPU zero-initializes new buffers; sizes round up to 4 bytes.
	aligned := (uint64(size) + 3) &^ 3
	buffer := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: storageUsage,
		Size:  aligned,
	})

	buf := mem.NewNative(mem.Accelerator, size, buffer)
	d.live[buf.ID()] = buffer

	d.stats.TotalAllocs++
	d.stats.LiveBuffers++
	d.stats.BytesInUse += uint64(size)
	if d.stats.BytesInUse > d.stats.PeakBytes {
		d.stats.PeakBytes = d.stats.BytesInUse
	}
	return buf, nil
}

// Free releases a storage buffer.
func (d *Device) Free(buf *mem.Buffer) error {
	if buf == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	buffer, ok := d.live[buf.ID()]
	if !ok {
		return fmt.Errorf("%w: webgpu buffer %d", mem.ErrDoubleFree, buf.ID())
	}
	delete(d.live, buf.ID())
	buffer.Release()

	if d.stats.BytesInUse >= uint64(buf.Size()) {
		d.stats.BytesInUse -= uint64(buf.Size())
	}
	d.stats.LiveBuffers--
	return nil
}

// Stats returns device memory usage.
func (d *Device) Stats() mem.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Upload copies host bytes into a device buffer through a mapped staging buffer.
func (d *Device) Upload(dst *mem.Buffer, src []byte) error {
	target, err := d.handle(dst)
	if err != nil {
		return err
	}
	size := (uint64(len(src)) + 3) &^ 3
	if size == 0 {
		return nil
	}

	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc | wgpu.BufferUsageMapWrite,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()

	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*byte)(mappedPtr), size)
	copy(mapped, src)
	staging.Unmap()

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, target, 0, size)
	d.queue.Submit(encoder.Finish(nil))
	return nil
}

// Download reads a device buffer back to host memory.
// Uses a staging buffer since storage buffers can't be mapped directly.
func (d *Device) Download(dst []byte, src *mem.Buffer) error {
	source, err := d.handle(src)
	if err != nil {
		return err
	}
	size := (uint64(len(dst)) + 3) &^ 3
	if size == 0 {
		return nil
	}

	staging := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(source, 0, staging, 0, size)
	d.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(d.device, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}
	mappedPtr := staging.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	mapped := unsafe.Slice((*byte)(mappedPtr), size)
	copy(dst, mapped)
	staging.Unmap()
	return nil
}

// CopyDevice copies size bytes between two storage buffers.
func (d *Device) CopyDevice(dst, src *mem.Buffer, size int) error {
	target, err := d.handle(dst)
	if err != nil {
		return err
	}
	source, err := d.handle(src)
	if err != nil {
		return err
	}
	aligned := (uint64(size) + 3) &^ 3
	encoder := d.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(source, 0, target, 0, aligned)
	d.queue.Submit(encoder.Finish(nil))
	return nil
}

// Release frees all buffers and WebGPU objects.
func (d *Device) Release() {
	d.mu.Lock()
	for id, buffer := range d.live {
		buffer.Release()
		delete(d.live, id)
	}
	d.stats.LiveBuffers = 0
	d.stats.BytesInUse = 0
	d.mu.Unlock()

	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func (d *Device) handle(buf *mem.Buffer) (*wgpu.Buffer, error) {
	buffer, ok := buf.Native().(*wgpu.Buffer)
	if !ok || buffer == nil {
		return nil, fmt.Errorf("%w: not a webgpu buffer", mem.ErrForeignBuffer)
	}
	return buffer, nil
}
