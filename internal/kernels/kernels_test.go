package kernels

import (
	"math"
	"testing"

	"github.com/born-ml/oprt/internal/parallel"
	"github.com/stretchr/testify/assert"
)

func TestSlice(t *testing.T) {
	// [2, 4] sliced along axis 1 from 1, length 2.
	src := []int32{0, 1, 2, 3, 10, 11, 12, 13}
	dst := make([]int32, 4)
	Slice(dst, src, 2, 4, 1, 1, 2)
	assert.Equal(t, []int32{1, 2, 11, 12}, dst)

	// Same slice along axis 0 of [4, 2].
	dst = make([]int32, 4)
	Slice(dst, src, 1, 4, 2, 2, 2)
	assert.Equal(t, []int32{2, 3, 10, 11}, dst)
}

func TestTransposeIndexAndGather(t *testing.T) {
	// [2, 3] -> [3, 2]
	idx := make([]int32, 6)
	TransposeIndex(idx, []int{3, 2}, []int{3, 1}, []int{1, 0})
	assert.Equal(t, []int32{0, 3, 1, 4, 2, 5}, idx)

	src := []byte{0, 1, 2, 3, 4, 5}
	dst := make([]byte, 6)
	Gather(dst, src, idx, 1)
	assert.Equal(t, []byte{0, 3, 1, 4, 2, 5}, dst)
}

func TestTransposeIndexRank3(t *testing.T) {
	// [2, 3, 4] with axes [2, 0, 1] -> [4, 2, 3]
	idx := make([]int32, 24)
	TransposeIndex(idx, []int{4, 2, 3}, []int{12, 4, 1}, []int{2, 0, 1})
	// dst[k][i][j] = src[i][j][k]
	assert.Equal(t, int32(0), idx[0])
	assert.Equal(t, int32(4), idx[1])  // dst[0][0][1] = src[0][1][0]
	assert.Equal(t, int32(12), idx[3]) // dst[0][1][0] = src[1][0][0]
	assert.Equal(t, int32(1), idx[6])  // dst[1][0][0] = src[0][0][1]
}

func TestElew(t *testing.T) {
	a := []float32{1, 4, 9}
	b := []float32{2, 2, 3}

	tests := []struct {
		op   ElewOp
		want []float32
	}{
		{Mul, []float32{2, 8, 27}},
		{Div, []float32{0.5, 2, 3}},
		{Sum, []float32{3, 6, 12}},
		{Sub, []float32{-1, 2, 6}},
		{Max, []float32{2, 4, 9}},
		{Min, []float32{1, 2, 3}},
		{Pow, []float32{1, 16, 729}},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			dst := make([]float32, 3)
			Elew(tt.op, dst, a, b)
			assert.InDeltaSlice(t, tt.want, dst, 1e-5)
		})
	}
}

func TestElewIntegerDivByZero(t *testing.T) {
	dst := make([]int64, 2)
	Elew(Div, dst, []int64{7, 7}, []int64{2, 0})
	assert.Equal(t, []int64{3, 0}, dst)
}

func TestReLU(t *testing.T) {
	dst := make([]float64, 4)
	ReLU(dst, []float64{-1, 0, 2, -0.5})
	assert.Equal(t, []float64{0, 0, 2, 0}, dst)
}

func TestSoftmax(t *testing.T) {
	// [2, 3] along axis 1
	src := []float32{1, 2, 3, 1000, 1000, 1000}
	dst := make([]float32, 6)
	Softmax(dst, src, 2, 3, 1)

	for row := 0; row < 2; row++ {
		var sum float32
		for _, v := range dst[row*3 : row*3+3] {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
	assert.InDelta(t, 1.0/3, dst[4], 1e-5, "large inputs stay finite")
	assert.Less(t, dst[0], dst[1])

	// Same data along axis 0: columns sum to one.
	Softmax(dst, src, 1, 2, 3)
	for c := 0; c < 3; c++ {
		assert.InDelta(t, 1.0, dst[c]+dst[3+c], 1e-5)
	}
	assert.False(t, math.IsNaN(float64(dst[0])))
}

func TestConv2DBasic(t *testing.T) {
	// Input [1, 1, 3, 3], identity-like 2x2 kernel.
	src := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}
	weight := []float32{1, 0, 0, 1}
	g := Conv2DGeom{
		N: 1, C: 1, H: 3, W: 3,
		Groups: 1, COut: 1, KH: 2, KW: 2,
		HOut: 2, WOut: 2,
		StrideH: 1, StrideW: 1,
		DilationH: 1, DilationW: 1,
	}
	dst := make([]float32, 4)
	col := make([]float32, g.ColSize())
	Conv2D(dst, src, weight, col, g)
	assert.Equal(t, []float32{6, 8, 12, 14}, dst)
}

func TestConv2DPaddingStrideDilation(t *testing.T) {
	src := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}

	// 1x1 kernel of weight 1, padding 1 on every side, stride 2:
	// output positions read (-1,-1) (-1,1) (1,-1) (1,1).
	g := Conv2DGeom{
		N: 1, C: 1, H: 3, W: 3,
		Groups: 1, COut: 1, KH: 1, KW: 1,
		HOut: 2, WOut: 2,
		StrideH: 2, StrideW: 2,
		PadTop: 1, PadLeft: 1,
		DilationH: 1, DilationW: 1,
	}
	dst := make([]float64, 4)
	Conv2D(dst, src, []float64{1}, make([]float64, g.ColSize()), g)
	assert.Equal(t, []float64{0, 0, 0, 5}, dst)

	// 2x2 kernel of ones with dilation 2 covers the four corners.
	g = Conv2DGeom{
		N: 1, C: 1, H: 3, W: 3,
		Groups: 1, COut: 1, KH: 2, KW: 2,
		HOut: 1, WOut: 1,
		StrideH: 1, StrideW: 1,
		DilationH: 2, DilationW: 2,
	}
	dst = make([]float64, 1)
	Conv2D(dst, src, []float64{1, 1, 1, 1}, make([]float64, g.ColSize()), g)
	assert.Equal(t, []float64{1 + 3 + 7 + 9}, dst)
}

func TestConv2DGroups(t *testing.T) {
	// Two channels, two groups, one output channel: group 0 scales
	// channel 0 by 2, group 1 scales channel 1 by 3, and the two sum.
	src := []float32{1, 2, 3, 4, 10, 20, 30, 40}
	weight := []float32{2, 3}
	g := Conv2DGeom{
		N: 1, C: 2, H: 2, W: 2,
		Groups: 2, COut: 1, KH: 1, KW: 1,
		HOut: 2, WOut: 2,
		StrideH: 1, StrideW: 1,
		DilationH: 1, DilationW: 1,
	}
	dst := []float32{-1, -1, -1, -1}
	Conv2D(dst, src, weight, make([]float32, g.ColSize()), g)
	assert.Equal(t, []float32{32, 64, 96, 128}, dst, "stale output is overwritten by the first group")
}

func TestParallelismDoesNotChangeResults(t *testing.T) {
	t.Cleanup(func() { SetParallelism(parallel.DefaultConfig()) })

	g := Conv2DGeom{
		N: 2, C: 4, H: 9, W: 7, Groups: 2, COut: 3, KH: 3, KW: 2,
		StrideH: 1, StrideW: 2, PadTop: 1, PadLeft: 1, DilationH: 2, DilationW: 1,
	}
	g.HOut = (g.H+2*g.PadTop-g.KH)/g.StrideH + 1
	g.WOut = (g.W+2*g.PadLeft-g.KW)/g.StrideW + 1

	src := make([]float64, g.N*g.C*g.H*g.W)
	for i := range src {
		src[i] = float64(i%13) - 6
	}
	weight := make([]float64, g.Groups*g.COut*(g.C/g.Groups)*g.KH*g.KW)
	for i := range weight {
		weight[i] = float64(i%5) * 0.25
	}
	size := g.N * g.COut * g.HOut * g.WOut

	run := func(cfg parallel.Config) ([]float64, []float64) {
		SetParallelism(cfg)
		conv := make([]float64, size)
		Conv2D(conv, src, weight, make([]float64, g.ColSize()), g)
		soft := make([]float64, len(src))
		Softmax(soft, src, g.N, g.C, g.H*g.W)
		return conv, soft
	}

	conv1, soft1 := run(parallel.Workers(1))
	conv4, soft4 := run(parallel.Config{Workers: 4, MinChunk: 1})
	assert.Equal(t, conv1, conv4)
	assert.Equal(t, soft1, soft4)
}
