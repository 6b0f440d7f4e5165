//go:build windows

package webgpu

import "github.com/born-ml/oprt/internal/mem"

// Open returns a WebGPU accelerator device.
func Open(limit uint64) (mem.Device, error) {
	d, err := New(limit)
	if err != nil {
		return nil, err
	}
	return d, nil
}
