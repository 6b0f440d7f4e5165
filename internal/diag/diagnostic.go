package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Diagnostic is the result of a failed check.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Check    Check
	Op       string // operator kind
	Arg      string // argument or parameter name, may be empty
	Msg      string
}

// New creates a fatal diagnostic.
func New(code Code, op, arg, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Code:     code,
		Severity: Fatal,
		Op:       op,
		Arg:      arg,
		Msg:      fmt.Sprintf(format, args...),
	}
}

// Error formats the diagnostic as "op: Code: message (arg "x")".
func (d *Diagnostic) Error() string {
	var b strings.Builder
	if d.Op != "" {
		b.WriteString(d.Op)
		b.WriteString(": ")
	}
	b.WriteString(d.Code.String())
	if d.Msg != "" {
		b.WriteString(": ")
		b.WriteString(d.Msg)
	}
	if d.Arg != "" {
		fmt.Fprintf(&b, " (arg %q)", d.Arg)
	}
	return b.String()
}

// Unwrap exposes the Code so errors.Is can match it.
func (d *Diagnostic) Unwrap() error {
	return d.Code
}

// As extracts a *Diagnostic from an error chain.
func As(err error) (*Diagnostic, bool) {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// CodeOf returns the diagnostic code carried by err, or 0.
func CodeOf(err error) Code {
	if d, ok := As(err); ok {
		return d.Code
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return 0
}
