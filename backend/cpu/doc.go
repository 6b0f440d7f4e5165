// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides host memory for the operator runtime.
//
// # Overview
//
// This package exposes:
//   - A host allocator with usage tracking and an optional byte limit
//   - A simulated accelerator: a device backed by host memory, used on
//     machines without a GPU and in tests
//
// Both hand out zero-filled, host-addressable storage, so every host kernel
// can run on either space. For a real GPU, see the webgpu package.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/oprt/backend/cpu"
//	    "github.com/born-ml/oprt/runtime"
//	)
//
//	func main() {
//	    spaces := runtime.NewSpaces(cpu.NewSim(64 << 20))
//	    rt := runtime.New(spaces)
//	    _ = rt
//	}
//
// # Thread Safety
//
// Allocators are safe for concurrent use.
package cpu
