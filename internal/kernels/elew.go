package kernels

import "math"

// ElewOp selects the binary operation of Elew.
type ElewOp int

// Elementwise operations.
const (
	Mul ElewOp = iota + 1
	Div
	Sum
	Sub
	Max
	Min
	Pow
)

// String returns the operation name.
func (op ElewOp) String() string {
	switch op {
	case Mul:
		return "mul"
	case Div:
		return "div"
	case Sum:
		return "sum"
	case Sub:
		return "sub"
	case Max:
		return "max"
	case Min:
		return "min"
	case Pow:
		return "pow"
	default:
		return "unknown"
	}
}

// Elew computes dst[i] = a[i] op b[i]. Integer division by zero yields 0.
func Elew[T Number](op ElewOp, dst, a, b []T) {
	switch op {
	case Mul:
		for i := range dst {
			dst[i] = a[i] * b[i]
		}
	case Div:
		integer := T(1)/T(2) == 0
		for i := range dst {
			if integer && b[i] == 0 {
				dst[i] = 0
				continue
			}
			dst[i] = a[i] / b[i]
		}
	case Sum:
		for i := range dst {
			dst[i] = a[i] + b[i]
		}
	case Sub:
		for i := range dst {
			dst[i] = a[i] - b[i]
		}
	case Max:
		for i := range dst {
			dst[i] = max(a[i], b[i])
		}
	case Min:
		for i := range dst {
			dst[i] = min(a[i], b[i])
		}
	case Pow:
		for i := range dst {
			dst[i] = T(math.Pow(float64(a[i]), float64(b[i])))
		}
	}
}
