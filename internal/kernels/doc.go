// Package kernels holds the host compute kernels behind the operator kinds.
//
// Kernels work on typed views of tensor storage and never allocate: any
// scratch space they need is passed in by the caller, sized at prepare time.
// Shape checking is the caller's job; kernels assume consistent arguments.
package kernels

import (
	"sync/atomic"

	"github.com/born-ml/oprt/internal/parallel"
)

// Float is the set of floating point element types.
type Float interface {
	~float32 | ~float64
}

// Number is the set of element types supported by arithmetic kernels.
type Number interface {
	~float32 | ~float64 | ~int32 | ~int64
}

var workers atomic.Pointer[parallel.Config]

func init() {
	SetParallelism(parallel.DefaultConfig())
}

// SetParallelism sets how kernels split their outer loops across
// goroutines. Outputs are identical for every setting.
func SetParallelism(cfg parallel.Config) {
	workers.Store(&cfg)
}

func parallelism() parallel.Config {
	return *workers.Load()
}
