// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package runtime is the operator lifecycle runtime.
//
// # Overview
//
// An operator instance binds a registered kind to named tensors in a
// symbol table and to a parameter table, then walks a fixed lifecycle:
//
//	Prepare  validate bindings and parameters, infer outputs, allocate
//	Arm      one-time device setup (no-op for most kinds)
//	Execute  run the kernel; repeatable, never allocates
//	Teardown release everything and restore the symbol table
//
// A failed Prepare leaves the symbol table and every memory space exactly
// as they were. Teardown after a successful Prepare does the same.
//
// # Basic Usage
//
//	rt := runtime.New(nil)
//	tab := runtime.NewTable()
//	host := rt.Spaces().Host
//
//	a, _ := tensor.FromSlice(host, []float32{1, 2, 3}, tensor.Shape{3})
//	_ = tab.Define("a", a)
//
//	inst, _ := rt.NewInstance("elew",
//	    []runtime.Binding{runtime.Bind("src1", "a"), runtime.Bind("src2", "a")},
//	    []runtime.Binding{runtime.Bind("dst", "b")},
//	    runtime.MustParams(runtime.Str("elew_op", "TL_MUL")))
//
//	if err := inst.Prepare(tab); err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Teardown(tab)
//	_ = inst.Arm(tab)
//	_ = inst.Execute(tab)
//
// # Diagnostics
//
// Validation failures are *Diagnostic values whose code can be matched with
// errors.Is:
//
//	if errors.Is(err, runtime.ShapeConstraintViolation) { ... }
package runtime
