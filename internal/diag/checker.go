package diag

import (
	"fmt"

	"go.uber.org/zap"
)

// Check names one validation step of an operator's prepare phase.
type Check string

// Checks performed while binding an operator instance.
const (
	CheckInputCount      Check = "input-count"
	CheckOutputCount     Check = "output-count"
	CheckInputBound      Check = "input-bound"
	CheckInputDefined    Check = "input-defined"
	CheckInputSpace      Check = "input-space"
	CheckOutputBound     Check = "output-bound"
	CheckOutputUndefined Check = "output-undefined"
	CheckParamCount      Check = "param-count"
	CheckParamExists     Check = "param-exists"
	CheckParamType       Check = "param-type"
	CheckParamValue      Check = "param-value"
	CheckTensorShape     Check = "tensor-shape"
	CheckTensorType      Check = "tensor-type"
	CheckImplemented     Check = "implemented"
)

// downgradable lists the checks with a safe continuation: an existing output
// can be reused, and surplus parameters can be ignored. Every other check
// leaves the instance without the data it needs and is always fatal.
var downgradable = map[Check]bool{
	CheckOutputUndefined: true,
	CheckParamCount:      true,
}

// Policy maps checks to severities. Checks not listed are Fatal.
type Policy map[Check]Severity

// Severity returns the severity declared for c.
func (p Policy) Severity(c Check) Severity {
	if s, ok := p[c]; ok {
		return s
	}
	return Fatal
}

// Validate rejects policies that downgrade a check with no safe continuation.
func (p Policy) Validate() error {
	for c, s := range p {
		if s == Warning && !downgradable[c] {
			return fmt.Errorf("diag: check %q cannot be declared as a warning", c)
		}
	}
	return nil
}

// Checker evaluates checks for one operator instance under a Policy.
// Fatal failures are returned; warnings are logged and recorded.
type Checker struct {
	op       string
	policy   Policy
	logger   *zap.Logger
	warnings []*Diagnostic
	onWarn   func(*Diagnostic)
}

// NewChecker creates a checker for operator kind op.
func NewChecker(op string, policy Policy, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{op: op, policy: policy, logger: logger}
}

// OnWarning registers a hook called for every recorded warning.
func (c *Checker) OnWarning(fn func(*Diagnostic)) {
	c.onWarn = fn
}

// Op returns the operator kind the checker reports for.
func (c *Checker) Op() string {
	return c.op
}

// Fail reports that check failed. It returns a *Diagnostic when the check is
// fatal under the policy and nil when it was recorded as a warning.
func (c *Checker) Fail(check Check, code Code, arg, format string, args ...any) error {
	d := New(code, c.op, arg, format, args...)
	d.Check = check
	d.Severity = c.policy.Severity(check)
	if d.Severity == Fatal {
		return d
	}

	c.warnings = append(c.warnings, d)
	c.logger.Warn("operator check failed, continuing",
		zap.String("op", c.op),
		zap.String("check", string(check)),
		zap.String("code", code.String()),
		zap.String("arg", arg),
		zap.String("msg", d.Msg))
	if c.onWarn != nil {
		c.onWarn(d)
	}
	return nil
}

// Require is Fail guarded by a condition: nothing happens when ok holds.
func (c *Checker) Require(check Check, ok bool, code Code, arg, format string, args ...any) error {
	if ok {
		return nil
	}
	return c.Fail(check, code, arg, format, args...)
}

// Warnings returns the warnings recorded so far.
func (c *Checker) Warnings() []*Diagnostic {
	return c.warnings
}
