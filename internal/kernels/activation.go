package kernels

import (
	"math"

	"github.com/born-ml/oprt/internal/parallel"
)

// ReLU computes dst[i] = max(src[i], 0).
func ReLU[T Number](dst, src []T) {
	for i, v := range src {
		if v > 0 {
			dst[i] = v
		} else {
			dst[i] = 0
		}
	}
}

// Softmax computes softmax along one axis of a tensor viewed as
// [outer, dim, inner]. Softmax(x_i) = exp(x_i - max) / sum(exp(x_j - max)).
func Softmax[T Float](dst, src []T, outer, dim, inner int) {
	parallel.For(outer*inner, parallelism(), func(r int) {
		o, in := r/inner, r%inner
		base := o*dim*inner + in

		// Subtract the max for numerical stability.
		maxVal := math.Inf(-1)
		for k := 0; k < dim; k++ {
			maxVal = math.Max(maxVal, float64(src[base+k*inner]))
		}

		var sum float64
		for k := 0; k < dim; k++ {
			e := math.Exp(float64(src[base+k*inner]) - maxVal)
			dst[base+k*inner] = T(e)
			sum += e
		}
		for k := 0; k < dim; k++ {
			dst[base+k*inner] = T(float64(dst[base+k*inner]) / sum)
		}
	})
}
