// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package cpu

import (
	"github.com/born-ml/oprt/internal/mem"
)

// Allocator is the host memory allocator.
type Allocator = mem.HostAllocator

// SimDevice is an accelerator device backed by host memory.
type SimDevice = mem.SimDevice

// Compile-time checks.
var (
	_ mem.Allocator = (*Allocator)(nil)
	_ mem.Device    = (*SimDevice)(nil)
)

// New creates a host allocator. A limit of 0 means unlimited.
//
// Example:
//
//	host := cpu.New(0)
//	x, _ := tensor.FromSlice(host, []float32{1, 2}, tensor.Shape{2})
func New(limit uint64) *Allocator {
	return mem.NewHostAllocator(limit)
}

// NewSim creates a simulated accelerator. A limit of 0 means unlimited.
func NewSim(limit uint64) *SimDevice {
	return mem.NewSimDevice(limit)
}
