// Package parallel splits kernel loops across goroutines.
//
// Work is divided into contiguous chunks so each goroutine writes a disjoint
// range of the output; results do not depend on the number of workers.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how a loop is split.
type Config struct {
	Workers  int // Maximum goroutines per loop; 1 runs sequentially.
	MinChunk int // Minimum iterations per goroutine.
}

// DefaultConfig uses one worker per CPU.
func DefaultConfig() Config {
	return Workers(0)
}

// Workers returns a config with n workers. n <= 0 selects runtime.NumCPU.
func Workers(n int) Config {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	return Config{
		Workers:  n,
		MinChunk: 64, // Typical cache line aware chunk.
	}
}

// Sequential reports whether a loop of n iterations runs on the caller's
// goroutine.
func (c Config) Sequential(n int) bool {
	return c.Workers <= 1 || n < 2*max(c.MinChunk, 1)
}

// Range calls f(lo, hi) over contiguous chunks covering [0, n) and waits
// for all of them.
func Range(n int, cfg Config, f func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if cfg.Sequential(n) {
		f(0, n)
		return
	}

	chunk := max((n+cfg.Workers-1)/cfg.Workers, cfg.MinChunk)
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(lo, hi)
		}()
	}
	wg.Wait()
}

// For executes f(i) for i in [0, n).
func For(n int, cfg Config, f func(i int)) {
	Range(n, cfg, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f(i)
		}
	})
}
