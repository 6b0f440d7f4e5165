package param

import "github.com/born-ml/oprt/internal/diag"

// Spec declares one parameter an operator kind expects.
type Spec struct {
	Name string
	Type Type
	// ArrayLen is the required length of a NumberArray; 0 accepts any length.
	ArrayLen int
}

// Validate checks t against specs in declaration order and stops at the
// first fatal failure: exact count, then for each spec existence, type and
// array length. It returns the resolved entries keyed by name.
func Validate(c *diag.Checker, specs []Spec, t *Table) (map[string]Entry, error) {
	if t.Len() != len(specs) {
		if err := c.Fail(diag.CheckParamCount, diag.ArgumentCountMismatch, "",
			"expected %d parameters, got %d", len(specs), t.Len()); err != nil {
			return nil, err
		}
	}

	resolved := make(map[string]Entry, len(specs))
	for _, s := range specs {
		e, ok := t.Find(s.Name)
		if !ok {
			return nil, c.Fail(diag.CheckParamExists, diag.MissingRequiredParameter, s.Name,
				"required parameter %q not found", s.Name)
		}
		if e.Type != s.Type {
			return nil, c.Fail(diag.CheckParamType, diag.TypeMismatch, s.Name,
				"parameter %q should be of type %s, got %s", s.Name, s.Type, e.Type)
		}
		if s.Type == NumberArray && s.ArrayLen > 0 && e.Len() != s.ArrayLen {
			return nil, c.Fail(diag.CheckParamValue, diag.ShapeConstraintViolation, s.Name,
				"parameter %q should have %d elements, got %d", s.Name, s.ArrayLen, e.Len())
		}
		if !e.Finite() {
			return nil, c.Fail(diag.CheckParamValue, diag.ShapeConstraintViolation, s.Name,
				"parameter %q must be finite", s.Name)
		}
		resolved[s.Name] = e
	}
	return resolved, nil
}

// Enum resolves a string parameter against a closed set of variants by
// exact match. An unmatched string is UnsupportedEnumValue.
func Enum[T any](c *diag.Checker, e Entry, variants map[string]T) (T, error) {
	v, ok := variants[e.Text()]
	if !ok {
		var zero T
		return zero, c.Fail(diag.CheckParamValue, diag.UnsupportedEnumValue, e.Name,
			"%q is not a supported value of parameter %q", e.Text(), e.Name)
	}
	return v, nil
}
