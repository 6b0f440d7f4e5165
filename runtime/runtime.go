// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package runtime

import (
	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/op"
	"github.com/born-ml/oprt/internal/ops"
	"github.com/born-ml/oprt/internal/param"
	"github.com/born-ml/oprt/internal/symtab"
)

// Core types.
type (
	// Runtime creates operator instances.
	Runtime = op.Runtime
	// Registry maps kind names to operator kinds.
	Registry = op.Registry
	// Descriptor declares the arguments and checks of a kind.
	Descriptor = op.Descriptor
	// Kind is a registered computation type.
	Kind = op.Kind
	// Instance is one bound use of a kind.
	Instance = op.Instance
	// Binding maps an argument name to a tensor name.
	Binding = op.Binding
	// Stage is the lifecycle position of an instance.
	Stage = op.Stage
	// Option configures a Runtime.
	Option = op.Option
	// Observer receives lifecycle events.
	Observer = op.Observer
	// StubPolicy decides what prepare does for stub kinds.
	StubPolicy = op.StubPolicy

	// Table is the symbol table shared by the instances of one graph.
	Table = symtab.Table
	// Entry is one named tensor in a Table.
	Entry = symtab.Entry

	// Params is an immutable parameter table.
	Params = param.Table
	// Param is one named parameter value.
	Param = param.Entry

	// Spaces holds the allocator of every memory space.
	Spaces = mem.Spaces
	// Device is an accelerator memory device.
	Device = mem.Device

	// Diagnostic is a failed validation check.
	Diagnostic = diag.Diagnostic
	// Code classifies a diagnostic.
	Code = diag.Code
)

// Lifecycle stages.
const (
	Unbound   = op.Unbound
	Ready     = op.Ready
	Armed     = op.Armed
	Executing = op.Executing
	TornDown  = op.TornDown
)

// Stub policies.
const (
	StubFail  = op.StubFail
	StubInert = op.StubInert
)

// Diagnostic codes.
const (
	ArgumentCountMismatch    = diag.ArgumentCountMismatch
	MissingRequiredTensor    = diag.MissingRequiredTensor
	MissingRequiredParameter = diag.MissingRequiredParameter
	TensorStateMismatch      = diag.TensorStateMismatch
	TypeMismatch             = diag.TypeMismatch
	ShapeConstraintViolation = diag.ShapeConstraintViolation
	UnsupportedEnumValue     = diag.UnsupportedEnumValue
	SymbolTableConsistency   = diag.SymbolTableConsistency
	NotImplemented           = diag.NotImplemented
	AllocationFailure        = diag.AllocationFailure
	LifecycleViolation       = diag.LifecycleViolation
)

// New creates a runtime with every built-in kind registered. A nil spaces
// uses host memory and a simulated accelerator.
func New(spaces *Spaces, opts ...Option) *Runtime {
	return op.NewRuntime(ops.NewRegistry(), spaces, opts...)
}

// NewSpaces creates the memory spaces with accel as the accelerator. A nil
// accel uses a simulated device.
func NewSpaces(accel Device) *Spaces {
	return mem.NewSpaces(accel)
}

// Kinds returns the names of the built-in kinds.
func Kinds() []string {
	return ops.NewRegistry().Names()
}

// Bind is shorthand for a Binding.
func Bind(arg, tensorName string) Binding {
	return op.Bind(arg, tensorName)
}

// NewTable creates an empty symbol table.
func NewTable() *Table {
	return symtab.New()
}

// NewParams creates a parameter table. Duplicate names are an error.
func NewParams(entries ...Param) (*Params, error) {
	return param.New(entries...)
}

// MustParams is NewParams that panics on error.
func MustParams(entries ...Param) *Params {
	return param.MustNew(entries...)
}

// Num is a scalar numeric parameter.
func Num(name string, v float64) Param { return param.Num(name, v) }

// Str is a string parameter.
func Str(name, v string) Param { return param.Str(name, v) }

// Nums is a numeric array parameter.
func Nums(name string, v ...float64) Param { return param.Nums(name, v...) }

// Ints is a numeric array parameter built from ints.
func Ints(name string, v ...int) Param { return param.Ints(name, v...) }

// Options.
var (
	WithLogger     = op.WithLogger
	WithObserver   = op.WithObserver
	WithStubPolicy = op.WithStubPolicy
)

// ParseStubPolicy converts "fail" or "inert" to a StubPolicy.
func ParseStubPolicy(s string) (StubPolicy, error) {
	return op.ParseStubPolicy(s)
}
