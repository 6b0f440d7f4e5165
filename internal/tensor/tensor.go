package tensor

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/born-ml/oprt/internal/mem"
)

// ErrNotMaterialized is returned when data is requested from a tensor
// that has no storage yet.
var ErrNotMaterialized = errors.New("tensor: storage not materialized")

// Tensor is an immutable-shape, mutable-data handle. A nil buffer means the
// tensor is declared but its storage has not been allocated.
type Tensor struct {
	shape Shape
	dtype DataType
	space mem.Space
	buf   *mem.Buffer
}

// New creates a tensor without storage in the given space.
func New(shape Shape, dtype DataType, space mem.Space) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if space != mem.Host && space != mem.Accelerator {
		return nil, fmt.Errorf("tensor: storage space must be host or accelerator, got %s", space)
	}
	return &Tensor{
		shape: shape.Clone(),
		dtype: dtype,
		space: space,
	}, nil
}

// FromSlice creates a host tensor holding a copy of data. The storage is
// obtained from alloc so it is tracked like any other host allocation.
func FromSlice[T DType](alloc mem.Allocator, data []T, shape Shape) (*Tensor, error) {
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}

	var dummy T
	t, err := New(shape, inferDataType(dummy), alloc.Space())
	if err != nil {
		return nil, err
	}
	if err := t.Materialize(alloc); err != nil {
		return nil, err
	}
	view, err := View[T](t)
	if err != nil {
		return nil, err
	}
	copy(view, data)
	return t, nil
}

// Shape returns a copy of the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape.Clone()
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int {
	return t.shape[i]
}

// DType returns the element type.
func (t *Tensor) DType() DataType {
	return t.dtype
}

// Space returns the memory space the storage lives in.
func (t *Tensor) Space() mem.Space {
	return t.space
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (t *Tensor) ByteSize() int {
	return t.NumElements() * t.dtype.Size()
}

// Buffer returns the storage, or nil if the tensor is not materialized.
func (t *Tensor) Buffer() *mem.Buffer {
	return t.buf
}

// Materialized reports whether the tensor owns storage.
func (t *Tensor) Materialized() bool {
	return t.buf != nil
}

// Materialize allocates zero-filled storage from alloc.
func (t *Tensor) Materialize(alloc mem.Allocator) error {
	if t.buf != nil {
		return fmt.Errorf("tensor: already materialized")
	}
	if alloc.Space() != t.space {
		return fmt.Errorf("tensor: %s tensor cannot be allocated from %s memory", t.space, alloc.Space())
	}
	buf, err := alloc.Allocate(t.ByteSize())
	if err != nil {
		return err
	}
	t.buf = buf
	return nil
}

// Adopt attaches existing storage to the tensor.
func (t *Tensor) Adopt(buf *mem.Buffer) error {
	if t.buf != nil {
		return fmt.Errorf("tensor: already materialized")
	}
	if buf.Space() != t.space {
		return fmt.Errorf("tensor: %s tensor cannot adopt %s buffer", t.space, buf.Space())
	}
	if buf.Size() < t.ByteSize() {
		return fmt.Errorf("tensor: buffer of %d bytes too small for %d", buf.Size(), t.ByteSize())
	}
	t.buf = buf
	return nil
}

// Release frees the storage through alloc and detaches it.
// Releasing an unmaterialized tensor is a no-op.
func (t *Tensor) Release(alloc mem.Allocator) error {
	if t.buf == nil {
		return nil
	}
	buf := t.buf
	t.buf = nil
	return alloc.Free(buf)
}

// Bytes returns the host view of the storage.
func (t *Tensor) Bytes() ([]byte, error) {
	if t.buf == nil {
		return nil, ErrNotMaterialized
	}
	data, err := t.buf.Bytes()
	if err != nil {
		return nil, err
	}
	return data[:t.ByteSize()], nil
}

// View interprets the storage as []T.
func View[T DType](t *Tensor) ([]T, error) {
	var dummy T
	if want := inferDataType(dummy); want != t.dtype {
		return nil, fmt.Errorf("tensor dtype is %s, not %s", t.dtype, want)
	}
	data, err := t.Bytes()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return []T{}, nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), t.NumElements()), nil
}

// ShapeCompatible reports whether a and b have element-wise equal shapes.
func ShapeCompatible(a, b *Tensor) bool {
	return a.shape.Equal(b.shape)
}

// TypeCompatible reports whether a and b share dtype and memory space.
func TypeCompatible(a, b *Tensor) bool {
	return a.dtype == b.dtype && a.space == b.space
}

// String returns a compact description such as "float32[4 6]@host".
func (t *Tensor) String() string {
	return fmt.Sprintf("%s%v@%s", t.dtype, []int(t.shape), t.space)
}
