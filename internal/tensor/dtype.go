// Package tensor provides the tensor value handled by operator instances:
// an immutable shape, an element type, a memory space and optionally the
// storage that holds its data.
package tensor

import "fmt"

// DType is a constraint for supported tensor element types.
// It uses Go generics to give kernels typed views of tensor storage.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8 | ~bool
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Bool
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseDataType converts a type name such as "float32" to a DataType.
func ParseDataType(name string) (DataType, error) {
	switch name {
	case "float32", "TL_FLOAT":
		return Float32, nil
	case "float64", "TL_DOUBLE":
		return Float64, nil
	case "int32", "TL_INT32":
		return Int32, nil
	case "int64", "TL_INT64":
		return Int64, nil
	case "uint8", "TL_UINT8":
		return Uint8, nil
	case "bool", "TL_BOOL":
		return Bool, nil
	default:
		return 0, fmt.Errorf("tensor: unknown data type %q", name)
	}
}

// inferDataType infers DataType from a generic type T.
func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case bool:
		return Bool
	default:
		panic("unsupported type")
	}
}
