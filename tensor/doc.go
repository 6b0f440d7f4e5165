// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the tensor value handled by operator instances.
//
// # Overview
//
// A Tensor has an immutable shape, an element type, the memory space its
// storage lives in and, once materialized, a buffer owned by that space:
//   - Shape, DataType: dimensions and element type
//   - Host and Accelerator memory spaces (see package backend/cpu)
//   - Typed, zero-copy views of host-addressable storage
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/oprt/backend/cpu"
//	    "github.com/born-ml/oprt/tensor"
//	)
//
//	func main() {
//	    host := cpu.New(0)
//	    x, err := tensor.FromSlice(host, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer x.Release(host)
//
//	    data, _ := tensor.View[float32](x)
//	    fmt.Println(x, data)  // float32[2 3]@host [1 2 3 4 5 6]
//	}
//
// Tensors are created unmaterialized by operator prepare phases and receive
// storage when the runtime commits them; see package runtime.
package tensor
