// Package ops provides the concrete operator kinds of the runtime.
//
// Every kind validates its own domain constraints in Prepare and returns a
// typed state whose Execute calls into internal/kernels. Kinds declared for
// the accelerator run their kernels on host-addressable device storage and
// report NotImplemented on devices without a host view.
package ops

import (
	"errors"

	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/op"
	"github.com/born-ml/oprt/internal/tensor"
)

// Kind names.
const (
	KindSlice          = "slice"
	KindTranspose      = "transpose"
	KindTransposeAccel = "transpose_accel"
	KindElew           = "elew"
	KindConv2D         = "conv2d"
	KindConv2DAccel    = "conv2d_accel"
	KindReLUAccel      = "relu_accel"
	KindSoftmax        = "softmax"
	KindMaxPool2D      = "maxpool2d"
	KindUpsample       = "upsample"
)

// Kinds returns every operator kind of the package.
func Kinds() []op.Kind {
	return []op.Kind{
		sliceKind{},
		transposeKind{name: KindTranspose, space: mem.Any},
		transposeKind{name: KindTransposeAccel, space: mem.Accelerator},
		elewKind{},
		conv2dKind{name: KindConv2D, space: mem.Host},
		conv2dKind{name: KindConv2DAccel, space: mem.Accelerator},
		reluKind{},
		softmaxKind{},
		stubKind{name: KindMaxPool2D, space: mem.Host},
		stubKind{name: KindUpsample, space: mem.Any},
	}
}

// Register adds every kind to reg.
func Register(reg *op.Registry) error {
	for _, k := range Kinds() {
		if err := reg.Register(k); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding every kind.
func NewRegistry() *op.Registry {
	reg := op.NewRegistry()
	reg.MustRegister(Kinds()...)
	return reg
}

// hostBytes returns the raw storage of x or NotImplemented when the
// storage lives on a device the host cannot address.
func hostBytes(kind string, x *tensor.Tensor) ([]byte, error) {
	data, err := x.Bytes()
	if errors.Is(err, mem.ErrNoHostView) {
		return nil, diag.New(diag.NotImplemented, kind, "", "no %s kernel for %s storage without a host view", kind, x.Space())
	}
	return data, err
}

// hostView is hostBytes with a typed view.
func hostView[T tensor.DType](kind string, x *tensor.Tensor) ([]T, error) {
	if _, err := hostBytes(kind, x); err != nil {
		return nil, err
	}
	return tensor.View[T](x)
}

// split views shape as [outer, dim, inner] around axis.
func split(shape tensor.Shape, axis int) (outer, dim, inner int) {
	outer, inner = 1, 1
	for i, d := range shape {
		switch {
		case i < axis:
			outer *= d
		case i > axis:
			inner *= d
		}
	}
	return outer, shape[axis], inner
}

// requireNumeric rejects element types the arithmetic kernels do not cover.
func requireNumeric(p *op.Prep, arg string, x *tensor.Tensor) error {
	switch x.DType() {
	case tensor.Float32, tensor.Float64, tensor.Int32, tensor.Int64:
		return nil
	}
	return p.Require(diag.CheckTensorType, false, diag.TypeMismatch, arg,
		"%s is not supported, expected float32, float64, int32 or int64", x.DType())
}

// requireFloat rejects non floating point element types.
func requireFloat(p *op.Prep, arg string, x *tensor.Tensor) error {
	return p.Require(diag.CheckTensorType, x.DType() == tensor.Float32 || x.DType() == tensor.Float64,
		diag.TypeMismatch, arg, "%s is not supported, expected float32 or float64", x.DType())
}

// stubKind is a kind whose kernel is declared but not written yet. The
// engine never calls Prepare on it; the stub policy decides its behavior.
type stubKind struct {
	name  string
	space mem.Space
}

func (k stubKind) Descriptor() *op.Descriptor {
	return &op.Descriptor{
		Name:     k.name,
		Inputs:   []string{"src"},
		Outputs:  []string{"dst"},
		InSpace:  k.space,
		OutSpace: k.space,
		Stub:     true,
	}
}

func (k stubKind) Prepare(p *op.Prep) (op.State, error) {
	return nil, p.Checker().Fail(diag.CheckImplemented, diag.NotImplemented, "", "kernel for %s is not implemented", k.name)
}
