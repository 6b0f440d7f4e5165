package ops

import (
	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/kernels"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/op"
	"github.com/born-ml/oprt/internal/param"
	"github.com/born-ml/oprt/internal/tensor"
)

// sliceKind extracts len elements starting at start along one axis.
type sliceKind struct{}

func (sliceKind) Descriptor() *op.Descriptor {
	return &op.Descriptor{
		Name:    KindSlice,
		Inputs:  []string{"src"},
		Outputs: []string{"dst"},
		Params: []param.Spec{
			{Name: "axis", Type: param.Number},
			{Name: "start", Type: param.Number},
			{Name: "len", Type: param.Number},
		},
		InSpace:  mem.Any,
		OutSpace: mem.Any,
		// A defined destination is reused when it already has the sliced shape.
		Policy: diag.Policy{diag.CheckOutputUndefined: diag.Warning},
	}
}

func (sliceKind) Prepare(p *op.Prep) (op.State, error) {
	src := p.Input("src")
	axis := p.Param("axis").Int()
	start := p.Param("start").Int()
	length := p.Param("len").Int()

	if err := p.Require(diag.CheckParamValue, axis >= 0 && axis < src.Rank(), diag.ShapeConstraintViolation,
		"axis", "axis %d out of range for rank %d", axis, src.Rank()); err != nil {
		return nil, err
	}
	dim := src.Dim(axis)
	if err := p.Require(diag.CheckParamValue, start >= 0 && start < dim, diag.ShapeConstraintViolation,
		"start", "start %d out of range [0, %d)", start, dim); err != nil {
		return nil, err
	}
	if err := p.Require(diag.CheckParamValue, length > 0 && length <= dim, diag.ShapeConstraintViolation,
		"len", "len %d out of range (0, %d]", length, dim); err != nil {
		return nil, err
	}
	if err := p.Require(diag.CheckParamValue, start+length <= dim, diag.ShapeConstraintViolation,
		"len", "start + len = %d exceeds dimension %d of axis %d", start+length, dim, axis); err != nil {
		return nil, err
	}

	dst, err := p.Define("dst", src.Shape().With(axis, length), src.DType())
	if err != nil {
		return nil, err
	}

	outer, _, inner := split(src.Shape(), axis)
	return &sliceState{
		src:    src,
		dst:    dst,
		outer:  outer,
		dim:    dim,
		inner:  inner * src.DType().Size(),
		start:  start,
		length: length,
	}, nil
}

type sliceState struct {
	src, dst *tensor.Tensor

	outer, dim, inner int // inner is in bytes
	start, length     int
}

func (s *sliceState) Execute() error {
	from, err := hostBytes(KindSlice, s.src)
	if err != nil {
		return err
	}
	to, err := hostBytes(KindSlice, s.dst)
	if err != nil {
		return err
	}
	kernels.Slice(to, from, s.outer, s.dim, s.inner, s.start, s.length)
	return nil
}
