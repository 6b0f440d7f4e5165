package op

import (
	"fmt"
	"maps"

	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/param"
)

// Descriptor declares an operator kind: its argument names, parameters,
// memory-space requirements and per-check severities.
type Descriptor struct {
	Name string

	// Inputs and Outputs are argument names in declaration order.
	Inputs  []string
	Outputs []string
	Params  []param.Spec

	// Required memory space of bound inputs and of produced outputs.
	// Any accepts either space; outputs then follow the first input.
	InSpace  mem.Space
	OutSpace mem.Space

	// Policy overrides the default (fatal) severity of individual checks.
	Policy diag.Policy

	// Stub marks a kind whose kernel is declared but not implemented.
	Stub bool

	// DeferOutputs postpones output allocation from prepare to arm.
	DeferOutputs bool
}

// Arity is the declared argument count of a kind.
type Arity struct {
	Inputs  int
	Outputs int
	Params  int
}

// Arity returns the declared input, output and parameter counts.
func (d *Descriptor) Arity() Arity {
	return Arity{Inputs: len(d.Inputs), Outputs: len(d.Outputs), Params: len(d.Params)}
}

// Validate checks that the descriptor is well formed.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("op: descriptor without name")
	}
	seen := make(map[string]bool)
	for _, arg := range append(append([]string(nil), d.Inputs...), d.Outputs...) {
		if arg == "" || seen[arg] {
			return fmt.Errorf("op: %s: invalid or duplicate argument name %q", d.Name, arg)
		}
		seen[arg] = true
	}
	seenParams := make(map[string]bool)
	for _, s := range d.Params {
		if s.Name == "" || seenParams[s.Name] {
			return fmt.Errorf("op: %s: invalid or duplicate parameter %q", d.Name, s.Name)
		}
		seenParams[s.Name] = true
	}
	if d.OutSpace == mem.Any && d.InSpace == mem.Any && len(d.Inputs) == 0 && len(d.Outputs) > 0 {
		return fmt.Errorf("op: %s: outputs need a memory space when there are no inputs", d.Name)
	}
	if err := d.Policy.Validate(); err != nil {
		return fmt.Errorf("op: %s: %w", d.Name, err)
	}
	return nil
}

// Clone returns a deep copy.
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	c.Inputs = append([]string(nil), d.Inputs...)
	c.Outputs = append([]string(nil), d.Outputs...)
	c.Params = append([]param.Spec(nil), d.Params...)
	c.Policy = maps.Clone(d.Policy)
	return &c
}
