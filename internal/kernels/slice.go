package kernels

// Slice copies src[..., start:start+length, ...] along one axis into dst.
//
// The tensor is viewed as [outer, dim, inner] around the sliced axis, so the
// kernel is type agnostic: callers may pass raw bytes with inner scaled by
// the element size.
func Slice[T any](dst, src []T, outer, dim, inner, start, length int) {
	chunk := length * inner
	for o := 0; o < outer; o++ {
		from := o*dim*inner + start*inner
		copy(dst[o*chunk:(o+1)*chunk], src[from:from+chunk])
	}
}
