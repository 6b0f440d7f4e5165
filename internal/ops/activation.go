package ops

import (
	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/kernels"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/op"
	"github.com/born-ml/oprt/internal/param"
	"github.com/born-ml/oprt/internal/tensor"
)

// reluKind computes max(x, 0) on accelerator tensors.
type reluKind struct{}

func (reluKind) Descriptor() *op.Descriptor {
	return &op.Descriptor{
		Name:     KindReLUAccel,
		Inputs:   []string{"src"},
		Outputs:  []string{"dst"},
		InSpace:  mem.Accelerator,
		OutSpace: mem.Accelerator,
	}
}

func (reluKind) Prepare(p *op.Prep) (op.State, error) {
	src := p.Input("src")
	if err := requireNumeric(p, "src", src); err != nil {
		return nil, err
	}
	dst, err := p.Define("dst", src.Shape(), src.DType())
	if err != nil {
		return nil, err
	}

	switch src.DType() {
	case tensor.Float32:
		return &reluState[float32]{src: src, dst: dst}, nil
	case tensor.Float64:
		return &reluState[float64]{src: src, dst: dst}, nil
	case tensor.Int32:
		return &reluState[int32]{src: src, dst: dst}, nil
	default:
		return &reluState[int64]{src: src, dst: dst}, nil
	}
}

type reluState[T interface {
	kernels.Number
	tensor.DType
}] struct {
	src, dst *tensor.Tensor
}

func (s *reluState[T]) Execute() error {
	src, err := hostView[T](KindReLUAccel, s.src)
	if err != nil {
		return err
	}
	dst, err := hostView[T](KindReLUAccel, s.dst)
	if err != nil {
		return err
	}
	kernels.ReLU(dst, src)
	return nil
}

// softmaxKind normalizes src along one axis; axis -1 selects the last.
type softmaxKind struct{}

func (softmaxKind) Descriptor() *op.Descriptor {
	return &op.Descriptor{
		Name:     KindSoftmax,
		Inputs:   []string{"src"},
		Outputs:  []string{"dst"},
		Params:   []param.Spec{{Name: "axis", Type: param.Number}},
		InSpace:  mem.Host,
		OutSpace: mem.Host,
	}
}

func (softmaxKind) Prepare(p *op.Prep) (op.State, error) {
	src := p.Input("src")
	axis := p.Param("axis").Int()

	if err := p.Require(diag.CheckTensorShape, src.Rank() > 0, diag.ShapeConstraintViolation,
		"src", "softmax needs at least one dimension"); err != nil {
		return nil, err
	}
	if err := p.Require(diag.CheckParamValue, axis == -1 || (axis >= 0 && axis < src.Rank()),
		diag.ShapeConstraintViolation, "axis", "axis %d should be -1 or in [0, %d)", axis, src.Rank()); err != nil {
		return nil, err
	}
	if err := requireFloat(p, "src", src); err != nil {
		return nil, err
	}
	if axis == -1 {
		axis = src.Rank() - 1
	}

	dst, err := p.Define("dst", src.Shape(), src.DType())
	if err != nil {
		return nil, err
	}

	outer, dim, inner := split(src.Shape(), axis)
	if src.DType() == tensor.Float64 {
		return &softmaxState[float64]{src: src, dst: dst, outer: outer, dim: dim, inner: inner}, nil
	}
	return &softmaxState[float32]{src: src, dst: dst, outer: outer, dim: dim, inner: inner}, nil
}

type softmaxState[T interface {
	kernels.Float
	tensor.DType
}] struct {
	src, dst          *tensor.Tensor
	outer, dim, inner int
}

func (s *softmaxState[T]) Execute() error {
	src, err := hostView[T](KindSoftmax, s.src)
	if err != nil {
		return err
	}
	dst, err := hostView[T](KindSoftmax, s.dst)
	if err != nil {
		return err
	}
	kernels.Softmax(dst, src, s.outer, s.dim, s.inner)
	return nil
}
