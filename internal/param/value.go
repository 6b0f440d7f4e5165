// Package param implements the parameter table: typed, named configuration
// values bound to one operator instance.
package param

import (
	"fmt"
	"math"
	"strings"
)

// Type tags a parameter value.
type Type int

// Parameter types.
const (
	Number Type = iota + 1
	String
	NumberArray
)

// String returns the type name used in graph descriptions.
func (t Type) String() string {
	switch t {
	case Number:
		return "number"
	case String:
		return "string"
	case NumberArray:
		return "array-number"
	default:
		return "unknown"
	}
}

// Entry is one named parameter.
type Entry struct {
	Name string
	Type Type

	num float64
	str string
	arr []float64
}

// Num creates a number parameter.
func Num(name string, v float64) Entry {
	return Entry{Name: name, Type: Number, num: v}
}

// Str creates a string parameter.
func Str(name, v string) Entry {
	return Entry{Name: name, Type: String, str: v}
}

// Nums creates an array-of-number parameter.
func Nums(name string, v ...float64) Entry {
	return Entry{Name: name, Type: NumberArray, arr: append([]float64(nil), v...)}
}

// Ints creates an array-of-number parameter from integers.
func Ints(name string, v ...int) Entry {
	arr := make([]float64, len(v))
	for i, x := range v {
		arr[i] = float64(x)
	}
	return Entry{Name: name, Type: NumberArray, arr: arr}
}

// Float returns the number value.
func (e Entry) Float() float64 {
	return e.num
}

// Int returns the number value truncated toward zero.
func (e Entry) Int() int {
	return toInt(e.num)
}

// Text returns the string value.
func (e Entry) Text() string {
	return e.str
}

// Floats returns a copy of the array value.
func (e Entry) Floats() []float64 {
	return append([]float64(nil), e.arr...)
}

// IntSlice returns the array value with each element truncated toward zero.
func (e Entry) IntSlice() []int {
	out := make([]int, len(e.arr))
	for i, v := range e.arr {
		out[i] = toInt(v)
	}
	return out
}

// Len returns the array length, or 0 for scalar types.
func (e Entry) Len() int {
	return len(e.arr)
}

// Finite reports whether every numeric component is finite.
func (e Entry) Finite() bool {
	switch e.Type {
	case Number:
		return !math.IsNaN(e.num) && !math.IsInf(e.num, 0)
	case NumberArray:
		for _, v := range e.arr {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// String formats the entry for logs and errors.
func (e Entry) String() string {
	switch e.Type {
	case Number:
		return fmt.Sprintf("%s=%g", e.Name, e.num)
	case String:
		return fmt.Sprintf("%s=%q", e.Name, e.str)
	case NumberArray:
		parts := make([]string, len(e.arr))
		for i, v := range e.arr {
			parts[i] = fmt.Sprintf("%g", v)
		}
		return fmt.Sprintf("%s=[%s]", e.Name, strings.Join(parts, ","))
	default:
		return e.Name + "=?"
	}
}

// toInt truncates toward zero and saturates at the int range.
func toInt(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt:
		return math.MaxInt
	case v <= math.MinInt:
		return math.MinInt
	}
	return int(v)
}
