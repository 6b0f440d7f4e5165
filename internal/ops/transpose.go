package ops

import (
	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/kernels"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/op"
	"github.com/born-ml/oprt/internal/param"
	"github.com/born-ml/oprt/internal/tensor"
)

// transposeKind permutes the axes of src. The gather index lives in an
// int32 workspace: on the host it is staged at prepare, on the accelerator
// it is allocated and filled once at arm.
type transposeKind struct {
	name  string
	space mem.Space
}

func (k transposeKind) Descriptor() *op.Descriptor {
	return &op.Descriptor{
		Name:     k.name,
		Inputs:   []string{"src"},
		Outputs:  []string{"dst"},
		Params:   []param.Spec{{Name: "axes", Type: param.NumberArray}},
		InSpace:  k.space,
		OutSpace: k.space,
	}
}

func (k transposeKind) Prepare(p *op.Prep) (op.State, error) {
	src := p.Input("src")
	axes := p.Param("axes").IntSlice()
	rank := src.Rank()

	if err := p.Require(diag.CheckParamValue, len(axes) == rank, diag.ShapeConstraintViolation,
		"axes", "axes has %d elements, src has rank %d", len(axes), rank); err != nil {
		return nil, err
	}
	seen := make([]bool, rank)
	for _, a := range axes {
		if err := p.Require(diag.CheckParamValue, a >= 0 && a < rank && !seen[a], diag.ShapeConstraintViolation,
			"axes", "axes %v is not a permutation of [0, %d)", axes, rank); err != nil {
			return nil, err
		}
		seen[a] = true
	}

	srcShape := src.Shape()
	dstShape := make(tensor.Shape, rank)
	for i, a := range axes {
		dstShape[i] = srcShape[a]
	}
	dst, err := p.Define("dst", dstShape, src.DType())
	if err != nil {
		return nil, err
	}

	s := &transposeState{
		kind:       k.name,
		src:        src,
		dst:        dst,
		dstShape:   dstShape,
		srcStrides: srcShape.Strides(),
		axes:       axes,
	}
	if k.space == mem.Accelerator {
		return &transposeAccelState{s}, nil
	}
	s.index, err = p.Workspace(mem.Host, tensor.Shape{dstShape.NumElements()}, tensor.Int32)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type transposeState struct {
	kind     string
	src, dst *tensor.Tensor
	index    *tensor.Tensor

	dstShape   tensor.Shape
	srcStrides []int
	axes       []int
}

func (s *transposeState) fillIndex() error {
	idx, err := hostView[int32](s.kind, s.index)
	if err != nil {
		return err
	}
	kernels.TransposeIndex(idx, s.dstShape, s.srcStrides, s.axes)
	return nil
}

func (s *transposeState) gather() error {
	idx, err := hostView[int32](s.kind, s.index)
	if err != nil {
		return err
	}
	from, err := hostBytes(s.kind, s.src)
	if err != nil {
		return err
	}
	to, err := hostBytes(s.kind, s.dst)
	if err != nil {
		return err
	}
	kernels.Gather(to, from, idx, s.src.DType().Size())
	return nil
}

func (s *transposeState) Execute() error {
	if err := s.fillIndex(); err != nil {
		return err
	}
	return s.gather()
}

// transposeAccelState keeps its index on the device for the lifetime of
// the instance.
type transposeAccelState struct {
	*transposeState
}

func (s *transposeAccelState) Arm(a *op.Arm) error {
	index, err := a.Workspace(mem.Accelerator, tensor.Shape{s.dstShape.NumElements()}, tensor.Int32)
	if err != nil {
		return err
	}
	s.index = index
	return s.fillIndex()
}

func (s *transposeAccelState) Execute() error {
	return s.gather()
}
