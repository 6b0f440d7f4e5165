package ops

import (
	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/kernels"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/op"
	"github.com/born-ml/oprt/internal/param"
	"github.com/born-ml/oprt/internal/tensor"
)

// elewOps maps elew_op values to kernel operations.
var elewOps = map[string]kernels.ElewOp{
	"TL_MUL": kernels.Mul,
	"TL_DIV": kernels.Div,
	"TL_SUM": kernels.Sum,
	"TL_SUB": kernels.Sub,
	"TL_MAX": kernels.Max,
	"TL_MIN": kernels.Min,
	"TL_POW": kernels.Pow,
}

// elewKind applies a binary operation to two tensors of identical shape
// and type.
type elewKind struct{}

func (elewKind) Descriptor() *op.Descriptor {
	return &op.Descriptor{
		Name:     KindElew,
		Inputs:   []string{"src1", "src2"},
		Outputs:  []string{"dst"},
		Params:   []param.Spec{{Name: "elew_op", Type: param.String}},
		InSpace:  mem.Host,
		OutSpace: mem.Host,
	}
}

func (elewKind) Prepare(p *op.Prep) (op.State, error) {
	a, b := p.Input("src1"), p.Input("src2")

	if err := p.Require(diag.CheckTensorShape, tensor.ShapeCompatible(a, b), diag.ShapeConstraintViolation,
		"src2", "shape %v does not match src1 shape %v", []int(b.Shape()), []int(a.Shape())); err != nil {
		return nil, err
	}
	if err := p.Require(diag.CheckTensorShape, a.DType() == b.DType(), diag.ShapeConstraintViolation,
		"src2", "type %s does not match src1 type %s", b.DType(), a.DType()); err != nil {
		return nil, err
	}
	if err := requireNumeric(p, "src1", a); err != nil {
		return nil, err
	}
	kop, err := param.Enum(p.Checker(), p.Param("elew_op"), elewOps)
	if err != nil {
		return nil, err
	}

	dst, err := p.Define("dst", a.Shape(), a.DType())
	if err != nil {
		return nil, err
	}

	switch a.DType() {
	case tensor.Float32:
		return &elewState[float32]{op: kop, a: a, b: b, dst: dst}, nil
	case tensor.Float64:
		return &elewState[float64]{op: kop, a: a, b: b, dst: dst}, nil
	case tensor.Int32:
		return &elewState[int32]{op: kop, a: a, b: b, dst: dst}, nil
	default:
		return &elewState[int64]{op: kop, a: a, b: b, dst: dst}, nil
	}
}

type elewState[T interface {
	kernels.Number
	tensor.DType
}] struct {
	op        kernels.ElewOp
	a, b, dst *tensor.Tensor
}

func (s *elewState[T]) Execute() error {
	a, err := hostView[T](KindElew, s.a)
	if err != nil {
		return err
	}
	b, err := hostView[T](KindElew, s.b)
	if err != nil {
		return err
	}
	dst, err := hostView[T](KindElew, s.dst)
	if err != nil {
		return err
	}
	kernels.Elew(s.op, dst, a, b)
	return nil
}
