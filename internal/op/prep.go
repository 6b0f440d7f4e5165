package op

import (
	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/param"
	"github.com/born-ml/oprt/internal/symtab"
	"github.com/born-ml/oprt/internal/tensor"
)

// Prep is the prepare-phase view handed to a Kind. It exposes resolved
// inputs and parameters and stages outputs and workspaces; staged items are
// committed by the engine only after the kind's Prepare succeeds.
type Prep struct {
	desc  *Descriptor
	check *diag.Checker

	inputs  map[string]*tensor.Tensor
	params  map[string]param.Entry
	outputs []*output
	scratch []*tensor.Tensor
}

// output tracks one declared output from staging to teardown.
type output struct {
	arg    string
	name   string
	tensor *tensor.Tensor

	existing *symtab.Entry // defined entry reused after a warning
	reserved *symtab.Entry // undefined entry replaced at commit

	inserted bool // entry inserted into the table by this instance
	owns     bool // storage allocated by this instance
}

// bind runs the descriptor-driven checks in declaration order: argument
// counts, each input, each output, then the parameter table.
func (p *Prep) bind(tab *symtab.Table, ins, outs []Binding, params *param.Table) error {
	d := p.desc
	c := p.check

	if err := c.Require(diag.CheckInputCount, len(ins) == len(d.Inputs), diag.ArgumentCountMismatch, "",
		"expected %d input tensors, got %d", len(d.Inputs), len(ins)); err != nil {
		return err
	}
	if err := c.Require(diag.CheckOutputCount, len(outs) == len(d.Outputs), diag.ArgumentCountMismatch, "",
		"expected %d output tensors, got %d", len(d.Outputs), len(outs)); err != nil {
		return err
	}

	p.inputs = make(map[string]*tensor.Tensor, len(d.Inputs))
	for _, arg := range d.Inputs {
		name, ok := lookup(ins, arg)
		if !ok {
			return c.Fail(diag.CheckInputBound, diag.MissingRequiredTensor, arg,
				"input tensor %q not bound", arg)
		}
		e, found := tab.Find(name)
		if !found || !e.Defined {
			return c.Fail(diag.CheckInputDefined, diag.TensorStateMismatch, arg,
				"tensor %q should be defined", name)
		}
		if !e.Tensor.Space().Satisfies(d.InSpace) {
			return c.Fail(diag.CheckInputSpace, diag.TypeMismatch, arg,
				"tensor %q is in %s memory, %s required", name, e.Tensor.Space(), d.InSpace)
		}
		p.inputs[arg] = e.Tensor
	}

	seen := make(map[string]bool, len(d.Outputs))
	for _, arg := range d.Outputs {
		name, ok := lookup(outs, arg)
		if !ok {
			return c.Fail(diag.CheckOutputBound, diag.MissingRequiredTensor, arg,
				"output tensor %q not bound", arg)
		}
		if seen[name] {
			return c.Fail(diag.CheckOutputBound, diag.TensorStateMismatch, arg,
				"tensor %q bound to more than one output", name)
		}
		seen[name] = true

		o := &output{arg: arg, name: name}
		if e, found := tab.Find(name); found {
			if e.Defined {
				if err := c.Fail(diag.CheckOutputUndefined, diag.TensorStateMismatch, arg,
					"tensor %q should not be defined", name); err != nil {
					return err
				}
				o.existing = e
			} else {
				o.reserved = e
			}
		}
		p.outputs = append(p.outputs, o)
	}

	resolved, err := param.Validate(c, d.Params, params)
	if err != nil {
		return err
	}
	p.params = resolved
	return nil
}

// Op returns the operator kind name.
func (p *Prep) Op() string {
	return p.desc.Name
}

// Input returns the resolved tensor bound to arg.
func (p *Prep) Input(arg string) *tensor.Tensor {
	return p.inputs[arg]
}

// Param returns the validated parameter name.
func (p *Prep) Param(name string) param.Entry {
	return p.params[name]
}

// Checker returns the instance's checker.
func (p *Prep) Checker() *diag.Checker {
	return p.check
}

// Require is shorthand for p.Checker().Require.
func (p *Prep) Require(check diag.Check, ok bool, code diag.Code, arg, format string, args ...any) error {
	return p.check.Require(check, ok, code, arg, format, args...)
}

// OutputSpace returns the space outputs are produced in: the declared
// output space, or the space of the first input when that is Any.
func (p *Prep) OutputSpace() mem.Space {
	if p.desc.OutSpace != mem.Any {
		return p.desc.OutSpace
	}
	if len(p.desc.Inputs) > 0 {
		if x := p.inputs[p.desc.Inputs[0]]; x != nil {
			return x.Space()
		}
	}
	return mem.Host
}

// Define stages output arg with the inferred shape and type and returns
// its tensor handle. When the output already exists and the kind declared
// that condition a warning, the existing tensor is reused if it matches.
func (p *Prep) Define(arg string, shape tensor.Shape, dtype tensor.DataType) (*tensor.Tensor, error) {
	var o *output
	for _, candidate := range p.outputs {
		if candidate.arg == arg {
			o = candidate
		}
	}
	if o == nil {
		return nil, diag.New(diag.MissingRequiredTensor, p.desc.Name, arg, "%q is not a declared output", arg)
	}
	space := p.OutputSpace()

	if err := shape.Validate(); err != nil {
		return nil, diag.New(diag.ShapeConstraintViolation, p.desc.Name, arg, "inferred %v", err)
	}

	if o.existing != nil {
		x := o.existing.Tensor
		if !x.Shape().Equal(shape) || x.DType() != dtype || x.Space() != space {
			return nil, diag.New(diag.ShapeConstraintViolation, p.desc.Name, arg,
				"existing tensor %q is %s, inferred %s%v@%s", o.name, x, dtype, []int(shape), space)
		}
		o.tensor = x
		return x, nil
	}

	x, err := tensor.New(shape, dtype, space)
	if err != nil {
		return nil, diag.New(diag.ShapeConstraintViolation, p.desc.Name, arg, "%v", err)
	}
	o.tensor = x
	return x, nil
}

// Workspace stages scratch storage allocated at commit and released at
// teardown.
func (p *Prep) Workspace(space mem.Space, shape tensor.Shape, dtype tensor.DataType) (*tensor.Tensor, error) {
	x, err := tensor.New(shape, dtype, space)
	if err != nil {
		return nil, diag.New(diag.ShapeConstraintViolation, p.desc.Name, "", "workspace: %v", err)
	}
	p.scratch = append(p.scratch, x)
	return x, nil
}

// Arm is the arm-phase view: it allocates device workspaces immediately and
// records them for teardown.
type Arm struct {
	inst *Instance
}

// Workspace allocates zeroed scratch storage owned by the instance.
func (a *Arm) Workspace(space mem.Space, shape tensor.Shape, dtype tensor.DataType) (*tensor.Tensor, error) {
	x, err := tensor.New(shape, dtype, space)
	if err != nil {
		return nil, diag.New(diag.ShapeConstraintViolation, a.inst.desc.Name, "", "workspace: %v", err)
	}
	if err := a.inst.materialize(x); err != nil {
		return nil, err
	}
	a.inst.armScratch = append(a.inst.armScratch, x)
	return x, nil
}

// Output returns the tensor produced for output arg.
func (a *Arm) Output(arg string) *tensor.Tensor {
	for _, o := range a.inst.outputs {
		if o.arg == arg {
			return o.tensor
		}
	}
	return nil
}
