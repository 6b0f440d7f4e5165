package ops

import (
	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/kernels"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/op"
	"github.com/born-ml/oprt/internal/param"
	"github.com/born-ml/oprt/internal/tensor"
)

// conv2dKind is a grouped 2D convolution over NCHW input.
//
//	src:    [N, C, H, W]
//	weight: [group, C_out, C/group, size[0], size[1]]
//	dst:    [N, C_out, H_out, W_out]
//
// Each group convolves its C/group input channels and the group results
// are summed. padding is [top, bottom, left, right]. Dilation spreads the
// kernel taps but does not shrink the output. The accelerator variant defers
// its output allocation to arm.
type conv2dKind struct {
	name  string
	space mem.Space
}

func (k conv2dKind) Descriptor() *op.Descriptor {
	return &op.Descriptor{
		Name:    k.name,
		Inputs:  []string{"src", "weight"},
		Outputs: []string{"dst"},
		Params: []param.Spec{
			{Name: "group", Type: param.Number},
			{Name: "size", Type: param.NumberArray, ArrayLen: 2},
			{Name: "stride", Type: param.NumberArray, ArrayLen: 2},
			{Name: "padding", Type: param.NumberArray, ArrayLen: 4},
			{Name: "dilation", Type: param.NumberArray, ArrayLen: 2},
		},
		InSpace:      k.space,
		OutSpace:     k.space,
		DeferOutputs: k.space == mem.Accelerator,
	}
}

// outputDim is floor((in + pad - size) / stride) + 1.
func outputDim(in, pad, size, stride int) int {
	span := in + pad - size
	if span < 0 {
		return 0
	}
	return span/stride + 1
}

func allPositive(v []int) bool {
	for _, x := range v {
		if x <= 0 {
			return false
		}
	}
	return true
}

func (k conv2dKind) Prepare(p *op.Prep) (op.State, error) {
	src, weight := p.Input("src"), p.Input("weight")

	if err := p.Require(diag.CheckTensorShape, src.Rank() == 4, diag.ShapeConstraintViolation,
		"src", "src should be a 4-dimensional tensor, got rank %d", src.Rank()); err != nil {
		return nil, err
	}
	if err := p.Require(diag.CheckTensorShape, weight.Rank() == 5, diag.ShapeConstraintViolation,
		"weight", "weight should be a 5-dimensional tensor, got rank %d", weight.Rank()); err != nil {
		return nil, err
	}
	if err := requireFloat(p, "src", src); err != nil {
		return nil, err
	}
	if err := p.Require(diag.CheckTensorShape, weight.DType() == src.DType(), diag.ShapeConstraintViolation,
		"weight", "type %s does not match src type %s", weight.DType(), src.DType()); err != nil {
		return nil, err
	}

	group := p.Param("group").Int()
	size := p.Param("size").IntSlice()
	stride := p.Param("stride").IntSlice()
	padding := p.Param("padding").IntSlice()
	dilation := p.Param("dilation").IntSlice()

	checks := []struct {
		ok       bool
		arg, msg string
	}{
		{group > 0 && group == weight.Dim(0), "group", "group should equal the first dimension of weight"},
		{size[0] == weight.Dim(3) && size[1] == weight.Dim(4), "size", "size should match the last two dimensions of weight"},
		{allPositive(size), "size", "size should be positive"},
		{allPositive(stride), "stride", "stride should be positive"},
		{padding[0] >= 0 && padding[1] >= 0 && padding[2] >= 0 && padding[3] >= 0, "padding", "padding should not be negative"},
		{allPositive(dilation), "dilation", "dilation should be positive"},
		{src.Dim(1) == group*weight.Dim(2), "weight", "input channels should equal group times the third dimension of weight"},
	}
	for _, c := range checks {
		if err := p.Require(diag.CheckParamValue, c.ok, diag.ShapeConstraintViolation, c.arg, "%s", c.msg); err != nil {
			return nil, err
		}
	}

	g := kernels.Conv2DGeom{
		N: src.Dim(0), C: src.Dim(1), H: src.Dim(2), W: src.Dim(3),
		Groups: group, COut: weight.Dim(1),
		KH: size[0], KW: size[1],
		StrideH: stride[0], StrideW: stride[1],
		PadTop: padding[0], PadLeft: padding[2],
		DilationH: dilation[0], DilationW: dilation[1],
	}
	g.HOut = outputDim(g.H, padding[0]+padding[1], g.KH, g.StrideH)
	g.WOut = outputDim(g.W, padding[2]+padding[3], g.KW, g.StrideW)
	if err := p.Require(diag.CheckTensorShape, g.HOut > 0 && g.WOut > 0, diag.ShapeConstraintViolation,
		"src", "output would be %dx%d, check size, stride and padding", g.HOut, g.WOut); err != nil {
		return nil, err
	}

	dst, err := p.Define("dst", tensor.Shape{g.N, g.COut, g.HOut, g.WOut}, src.DType())
	if err != nil {
		return nil, err
	}
	col, err := p.Workspace(p.OutputSpace(), tensor.Shape{g.ColSize()}, src.DType())
	if err != nil {
		return nil, err
	}

	if src.DType() == tensor.Float64 {
		return &conv2dState[float64]{kind: k.name, src: src, weight: weight, dst: dst, col: col, geom: g}, nil
	}
	return &conv2dState[float32]{kind: k.name, src: src, weight: weight, dst: dst, col: col, geom: g}, nil
}

type conv2dState[T interface {
	kernels.Float
	tensor.DType
}] struct {
	kind                  string
	src, weight, dst, col *tensor.Tensor
	geom                  kernels.Conv2DGeom
}

func (s *conv2dState[T]) Execute() error {
	src, err := hostView[T](s.kind, s.src)
	if err != nil {
		return err
	}
	weight, err := hostView[T](s.kind, s.weight)
	if err != nil {
		return err
	}
	dst, err := hostView[T](s.kind, s.dst)
	if err != nil {
		return err
	}
	col, err := hostView[T](s.kind, s.col)
	if err != nil {
		return err
	}
	kernels.Conv2D(dst, src, weight, col, s.geom)
	return nil
}
