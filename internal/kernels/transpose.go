package kernels

// TransposeIndex fills idx so that idx[i] is the flat source offset of the
// i-th destination element of a permutation.
//
// dstShape is the permuted shape, srcStrides the row-major strides of the
// source and axes the permutation (dst axis k reads src axis axes[k]).
func TransposeIndex(idx []int32, dstShape, srcStrides, axes []int) {
	for i := range idx {
		rem := i
		off := 0
		for k := len(dstShape) - 1; k >= 0; k-- {
			c := rem % dstShape[k]
			rem /= dstShape[k]
			off += c * srcStrides[axes[k]]
		}
		idx[i] = int32(off) //nolint:gosec // bounded by the source element count
	}
}

// Gather copies elements of elem bytes from src into dst following idx.
func Gather(dst, src []byte, idx []int32, elem int) {
	for i, j := range idx {
		from := int(j) * elem
		copy(dst[i*elem:(i+1)*elem], src[from:from+elem])
	}
}
