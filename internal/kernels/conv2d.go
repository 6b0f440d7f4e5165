package kernels

import "github.com/born-ml/oprt/internal/parallel"

// Conv2DGeom describes one grouped, strided, padded and dilated 2D
// convolution over NCHW input.
//
// Weight layout is [Groups, COut, C/Groups, KH, KW]; output layout is
// [N, COut, HOut, WOut]. Each group convolves its slice of input channels
// with its own weight block and the group results are summed.
//
// Dilation spaces the kernel taps only; HOut and WOut are supplied by the
// caller and taps past the input edge read as zero.
type Conv2DGeom struct {
	N, C, H, W           int
	Groups, COut         int
	KH, KW               int
	HOut, WOut           int
	StrideH, StrideW     int
	PadTop, PadLeft      int
	DilationH, DilationW int
}

// ColSize returns the number of elements of the im2col workspace: one
// column matrix for a single group, reused across groups.
func (g Conv2DGeom) ColSize() int {
	return g.N * g.HOut * g.WOut * (g.C / g.Groups) * g.KH * g.KW
}

// Conv2D performs convolution using the im2col algorithm.
//
// For each group:
//  1. Im2col: gather input patches into col [N*HOut*WOut, CG*KH*KW]
//  2. Multiply the group's weights [COut, CG*KH*KW] by col transposed
//  3. Accumulate the [COut, N*HOut*WOut] result into NCHW output
//
// col must hold at least g.ColSize() elements.
func Conv2D[T Float](dst, src, weight, col []T, g Conv2DGeom) {
	cg := g.C / g.Groups
	colWidth := cg * g.KH * g.KW
	colHeight := g.N * g.HOut * g.WOut
	plane := g.HOut * g.WOut
	cfg := parallelism()

	for grp := 0; grp < g.Groups; grp++ {
		im2col(col, src, g, grp*cg, cg)

		wBase := grp * g.COut * colWidth
		first := grp == 0
		// Rows of col are independent output positions.
		parallel.Range(colHeight, cfg, func(lo, hi int) {
			for oc := 0; oc < g.COut; oc++ {
				kernel := weight[wBase+oc*colWidth : wBase+(oc+1)*colWidth]
				for j := lo; j < hi; j++ {
					row := col[j*colWidth : (j+1)*colWidth]
					var sum T
					for k, w := range kernel {
						sum += w * row[k]
					}
					n := j / plane
					pos := j % plane
					at := n*g.COut*plane + oc*plane + pos
					if first {
						dst[at] = sum
					} else {
						dst[at] += sum
					}
				}
			}
		})
	}
}

// im2col fills col with the patches of input channels [c0, c0+cg).
// Positions that fall in the padding read as zero.
func im2col[T Float](col, src []T, g Conv2DGeom, c0, cg int) {
	idx := 0
	for n := 0; n < g.N; n++ {
		for oh := 0; oh < g.HOut; oh++ {
			for ow := 0; ow < g.WOut; ow++ {
				hStart := oh*g.StrideH - g.PadTop
				wStart := ow*g.StrideW - g.PadLeft

				for c := c0; c < c0+cg; c++ {
					for kh := 0; kh < g.KH; kh++ {
						for kw := 0; kw < g.KW; kw++ {
							h := hStart + kh*g.DilationH
							w := wStart + kw*g.DilationW
							if h >= 0 && h < g.H && w >= 0 && w < g.W {
								col[idx] = src[n*g.C*g.H*g.W+c*g.H*g.W+h*g.W+w]
							} else {
								col[idx] = 0
							}
							idx++
						}
					}
				}
			}
		}
	}
}
