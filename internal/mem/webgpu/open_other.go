//go:build !windows

// Package webgpu provides accelerator memory on a real GPU.
package webgpu

import (
	"errors"

	"github.com/born-ml/oprt/internal/mem"
)

// ErrUnavailable is returned on platforms without the WebGPU backend.
var ErrUnavailable = errors.New("webgpu: backend is only built on windows")

// Open returns a WebGPU accelerator device.
func Open(_ uint64) (mem.Device, error) {
	return nil, ErrUnavailable
}
