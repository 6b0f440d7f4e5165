// Package diag implements the validation and diagnostics framework used by
// operator instances.
//
// Every failed check produces a *Diagnostic carrying an error Code, the
// severity it was raised with, the operator kind and the offending argument
// name. Callers match codes with errors.Is:
//
//	if errors.Is(err, diag.ShapeConstraintViolation) { ... }
//
// Severity is decided per named Check by a Policy declared on the operator
// descriptor, so two kinds can treat the same condition differently.
package diag

// Code classifies a diagnostic.
type Code int

// Diagnostic codes.
const (
	ArgumentCountMismatch Code = iota + 1
	MissingRequiredTensor
	MissingRequiredParameter
	TensorStateMismatch
	TypeMismatch
	ShapeConstraintViolation
	UnsupportedEnumValue
	SymbolTableConsistency
	NotImplemented
	AllocationFailure
	LifecycleViolation
)

var codeNames = map[Code]string{
	ArgumentCountMismatch:    "ArgumentCountMismatch",
	MissingRequiredTensor:    "MissingRequiredTensor",
	MissingRequiredParameter: "MissingRequiredParameter",
	TensorStateMismatch:      "TensorStateMismatch",
	TypeMismatch:             "TypeMismatch",
	ShapeConstraintViolation: "ShapeConstraintViolation",
	UnsupportedEnumValue:     "UnsupportedEnumValue",
	SymbolTableConsistency:   "SymbolTableConsistency",
	NotImplemented:           "NotImplemented",
	AllocationFailure:        "AllocationFailure",
	LifecycleViolation:       "LifecycleViolation",
}

// String returns the code name.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Error makes a Code usable as an errors.Is target.
func (c Code) Error() string {
	return c.String()
}

// Internal reports whether the code signals a runtime invariant violation
// rather than a user-facing validation error.
func (c Code) Internal() bool {
	switch c {
	case SymbolTableConsistency, AllocationFailure, LifecycleViolation:
		return true
	default:
		return false
	}
}

// Severity is how a failed check affects the operator instance.
type Severity int

const (
	// Fatal aborts construction of the instance.
	Fatal Severity = iota
	// Warning is recorded and the instance proceeds with best-effort defaults.
	Warning
)

// String returns "fatal" or "warning".
func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "fatal"
}
