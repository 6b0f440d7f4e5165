//go:build windows

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides accelerator memory on a GPU through WebGPU.
//
// Buffers created here have no host view: host kernels cannot address them,
// and operator kinds that need one report NotImplemented. Data moves with
// the explicit copy primitives of runtime.Spaces.
//
// Example:
//
//	gpu, err := webgpu.New(0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gpu.Release()
//
//	rt := runtime.New(runtime.NewSpaces(gpu))
package webgpu

import (
	"github.com/born-ml/oprt/internal/mem"
	internalwebgpu "github.com/born-ml/oprt/internal/mem/webgpu"
)

// Device is a WebGPU accelerator device.
type Device = internalwebgpu.Device

// Compile-time check that Device implements mem.Device.
var _ mem.Device = (*Device)(nil)

// New opens the default GPU adapter. A limit of 0 means unlimited.
//
// Returns an error if WebGPU initialization fails (e.g., no compatible GPU).
func New(limit uint64) (*Device, error) {
	return internalwebgpu.New(limit)
}

// IsAvailable checks if WebGPU is available on the current system.
//
// It opens and releases a device, so prefer calling New once and keeping
// the result.
func IsAvailable() bool {
	d, err := internalwebgpu.New(0)
	if err != nil {
		return false
	}
	d.Release()
	return true
}
