// Package mem models the two address spaces a tensor can live in and the
// primitive operations that allocate, free and copy storage between them.
//
// Operators never move data between spaces on their own. Cross-space copies
// are explicit calls made by the surrounding graph logic through Spaces.Copy.
package mem

import "fmt"

// Space identifies where tensor storage is resident.
type Space int

// Memory spaces. Any is only meaningful as an operator requirement.
const (
	Any Space = iota
	Host
	Accelerator
)

// String returns a human-readable space name.
func (s Space) String() string {
	switch s {
	case Any:
		return "any"
	case Host:
		return "host"
	case Accelerator:
		return "accelerator"
	default:
		return "unknown"
	}
}

// Satisfies reports whether storage in space s meets the requirement req.
func (s Space) Satisfies(req Space) bool {
	return req == Any || s == req
}

// ParseSpace converts a configuration or graph-description string to a Space.
func ParseSpace(name string) (Space, error) {
	switch name {
	case "", "any":
		return Any, nil
	case "host", "cpu":
		return Host, nil
	case "accelerator", "accel", "device":
		return Accelerator, nil
	default:
		return Any, fmt.Errorf("mem: unknown memory space %q", name)
	}
}
