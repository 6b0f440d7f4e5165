// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/tensor"
)

// Type aliases for public API

// DType is a constraint for tensor data types.
// Supported types: float32, float64, int32, int64, uint8, bool.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is a shape, a data type, a memory space and optional storage.
type Tensor = tensor.Tensor

// Space identifies where tensor storage lives.
type Space = mem.Space

// Memory spaces.
const (
	Any         Space = mem.Any
	Host        Space = mem.Host
	Accelerator Space = mem.Accelerator
)

// Allocator provides storage for one memory space.
type Allocator = mem.Allocator

// ErrNotMaterialized is returned when data is requested from a tensor
// without storage.
var ErrNotMaterialized = tensor.ErrNotMaterialized

// New creates a tensor without storage in the given space.
func New(shape Shape, dtype DataType, space Space) (*Tensor, error) {
	return tensor.New(shape, dtype, space)
}

// FromSlice creates a tensor holding a copy of data, with storage from alloc.
func FromSlice[T DType](alloc Allocator, data []T, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(alloc, data, shape)
}

// View returns the storage of t as []T without copying.
func View[T DType](t *Tensor) ([]T, error) {
	return tensor.View[T](t)
}

// ParseDataType converts a type name such as "float32" or "TL_FLOAT" to a
// DataType.
func ParseDataType(name string) (DataType, error) {
	return tensor.ParseDataType(name)
}
