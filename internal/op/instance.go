package op

import (
	"time"

	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/param"
	"github.com/born-ml/oprt/internal/symtab"
	"github.com/born-ml/oprt/internal/tensor"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Stage is the lifecycle position of an instance.
type Stage int

// Lifecycle stages.
const (
	Unbound Stage = iota
	Ready
	Armed
	Executing
	TornDown
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Ready:
		return "ready"
	case Armed:
		return "armed"
	case Executing:
		return "executing"
	case TornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

// Instance is one bound use of an operator kind inside a graph.
type Instance struct {
	id     uuid.UUID
	rt     *Runtime
	kind   Kind
	desc   *Descriptor
	ins    []Binding
	outs   []Binding
	params *param.Table
	logger *zap.Logger

	state Stage
	st    State
	table *symtab.Table

	inputs     map[string]*tensor.Tensor
	outputs    []*output
	scratch    []*tensor.Tensor
	armScratch []*tensor.Tensor
	armed      bool
	warnings   []*diag.Diagnostic
}

// ID returns the instance id used to correlate logs.
func (i *Instance) ID() uuid.UUID { return i.id }

// Kind returns the operator kind name.
func (i *Instance) Kind() string { return i.desc.Name }

// Descriptor returns a copy of the kind's descriptor.
func (i *Instance) Descriptor() *Descriptor { return i.desc.Clone() }

// State returns the current lifecycle stage.
func (i *Instance) State() Stage { return i.state }

// Warnings returns the non-fatal diagnostics recorded during prepare.
func (i *Instance) Warnings() []*diag.Diagnostic { return i.warnings }

// Private returns the kind-specific state created by prepare.
func (i *Instance) Private() State { return i.st }

// Output returns the tensor produced for output arg, or nil.
func (i *Instance) Output(arg string) *tensor.Tensor {
	for _, o := range i.outputs {
		if o.arg == arg {
			return o.tensor
		}
	}
	return nil
}

func (i *Instance) violation(format string, args ...any) error {
	return diag.New(diag.LifecycleViolation, i.desc.Name, "", format, args...)
}

func (i *Instance) observe(phase string, start time.Time, err error) {
	i.rt.observer.ObservePhase(i.desc.Name, phase, time.Since(start), err)
	if err != nil {
		i.logger.Debug("phase failed", zap.String("phase", phase), zap.Error(err))
		return
	}
	i.logger.Debug("phase done", zap.String("phase", phase), zap.Stringer("state", i.state))
}

// Prepare validates the bindings against tab, infers outputs, inserts them
// into tab and allocates their storage. On error tab and every memory
// space are left exactly as they were.
func (i *Instance) Prepare(tab *symtab.Table) (err error) {
	start := time.Now()
	defer func() { i.observe(PhasePrepare, start, err) }()

	if i.state != Unbound {
		return i.violation("prepare called in state %s", i.state)
	}
	unlock, err := tab.Begin()
	if err != nil {
		return err
	}
	defer unlock()

	check := diag.NewChecker(i.desc.Name, i.desc.Policy, i.logger)
	check.OnWarning(func(d *diag.Diagnostic) {
		i.rt.observer.ObserveWarning(i.desc.Name, d.Check)
	})

	if i.desc.Stub {
		if i.rt.stubs == StubInert {
			i.table = tab
			i.st = inert{}
			i.state = Armed
			return nil
		}
		return check.Fail(diag.CheckImplemented, diag.NotImplemented, "",
			"kernel for %s is not implemented", i.desc.Name)
	}

	p := &Prep{desc: i.desc, check: check}
	if err := p.bind(tab, i.ins, i.outs, i.params); err != nil {
		return err
	}
	st, err := i.kind.Prepare(p)
	if err != nil {
		return err
	}
	for _, o := range p.outputs {
		if o.tensor == nil {
			return i.violation("output %q was not defined by prepare", o.arg)
		}
	}

	i.outputs = p.outputs
	i.scratch = p.scratch
	i.inputs = p.inputs
	if err := i.commit(tab); err != nil {
		i.outputs, i.scratch, i.inputs = nil, nil, nil
		return err
	}

	i.table = tab
	i.st = st
	i.warnings = check.Warnings()
	if _, ok := st.(Armer); ok || i.desc.DeferOutputs {
		i.state = Ready
	} else {
		i.state = Armed
	}
	return nil
}

// commit allocates staged storage and then publishes staged outputs in tab.
// A failure unwinds whatever was done so far.
func (i *Instance) commit(tab *symtab.Table) error {
	var err error
	if !i.desc.DeferOutputs {
		for _, o := range i.outputs {
			if o.existing != nil {
				continue
			}
			if err = i.materialize(o.tensor); err != nil {
				break
			}
			o.owns = true
		}
	}
	if err == nil {
		for _, x := range i.scratch {
			if err = i.materialize(x); err != nil {
				break
			}
		}
	}
	if err == nil {
		for _, o := range i.outputs {
			if o.existing != nil {
				continue
			}
			if o.reserved != nil {
				if err = tab.Remove(o.name); err != nil {
					break
				}
			}
			if err = tab.Insert(&symtab.Entry{Name: o.name, Tensor: o.tensor, Defined: true}); err != nil {
				if o.reserved != nil {
					err = multierr.Append(err, tab.Insert(o.reserved))
				}
				break
			}
			o.inserted = true
		}
	}
	if err != nil {
		return multierr.Append(err, i.release(tab))
	}
	return nil
}

// Arm runs the kind's one-time setup and allocates outputs deferred by the
// descriptor. It is a no-op for kinds that need no arming.
func (i *Instance) Arm(tab *symtab.Table) (err error) {
	start := time.Now()
	defer func() { i.observe(PhaseArm, start, err) }()

	switch {
	case i.state == Armed && !i.armed:
		return nil
	case i.state != Ready:
		return i.violation("arm called in state %s", i.state)
	case tab != i.table:
		return i.violation("arm called with a different symbol table")
	}

	var deferred []*output
	if i.desc.DeferOutputs {
		for _, o := range i.outputs {
			if o.existing != nil || o.owns {
				continue
			}
			if err = i.materialize(o.tensor); err != nil {
				break
			}
			o.owns = true
			deferred = append(deferred, o)
		}
	}
	if armer, ok := i.st.(Armer); ok && err == nil {
		err = armer.Arm(&Arm{inst: i})
	}
	if err != nil {
		for _, o := range deferred {
			err = multierr.Append(err, i.free(o.tensor))
			o.owns = false
		}
		for _, x := range i.armScratch {
			err = multierr.Append(err, i.free(x))
		}
		i.armScratch = nil
		return err
	}

	i.armed = true
	i.state = Armed
	return nil
}

// Execute runs the kernel. It never allocates or touches tab and may be
// called any number of times.
func (i *Instance) Execute(tab *symtab.Table) (err error) {
	start := time.Now()
	defer func() { i.observe(PhaseExecute, start, err) }()

	if i.state != Armed && i.state != Executing {
		return i.violation("execute called in state %s", i.state)
	}
	if tab != i.table {
		return i.violation("execute called with a different symbol table")
	}
	for arg, x := range i.inputs {
		if !x.Materialized() {
			return diag.New(diag.TensorStateMismatch, i.desc.Name, arg, "input has no storage")
		}
	}
	for _, o := range i.outputs {
		if !o.tensor.Materialized() {
			return diag.New(diag.TensorStateMismatch, i.desc.Name, o.arg, "output %q has no storage", o.name)
		}
	}

	i.state = Executing
	return i.st.Execute()
}

// Teardown releases every resource acquired by prepare and arm and returns
// tab to the state it had before prepare. All release steps run even when
// one fails; their errors are combined.
func (i *Instance) Teardown(tab *symtab.Table) (err error) {
	start := time.Now()
	defer func() { i.observe(PhaseTeardown, start, err) }()

	if i.state != Ready && i.state != Armed && i.state != Executing {
		return i.violation("teardown called in state %s", i.state)
	}
	if tab != i.table {
		return i.violation("teardown called with a different symbol table")
	}
	unlock, err := tab.Begin()
	if err != nil {
		return err
	}
	defer unlock()

	if closer, ok := i.st.(Closer); ok {
		err = multierr.Append(err, closer.Teardown())
	}
	err = multierr.Append(err, i.release(tab))

	i.state = TornDown
	i.st = nil
	i.table = nil
	if err != nil {
		i.logger.Warn("teardown incomplete", zap.Error(err))
	}
	return err
}

// release frees workspaces and owned outputs, then undoes every table
// change this instance made.
func (i *Instance) release(tab *symtab.Table) error {
	var err error
	for _, x := range i.armScratch {
		err = multierr.Append(err, i.free(x))
	}
	for _, x := range i.scratch {
		err = multierr.Append(err, i.free(x))
	}
	i.armScratch, i.scratch = nil, nil

	for _, o := range i.outputs {
		if o.owns {
			err = multierr.Append(err, i.free(o.tensor))
			o.owns = false
		}
	}
	for _, o := range i.outputs {
		if !o.inserted {
			continue
		}
		o.inserted = false
		e, ok := tab.Find(o.name)
		if !ok || e.Tensor != o.tensor {
			// Consumed or replaced by another instance; no longer ours.
			continue
		}
		if rmErr := tab.Remove(o.name); rmErr != nil {
			err = multierr.Append(err, rmErr)
			continue
		}
		if o.reserved != nil {
			err = multierr.Append(err, tab.Insert(o.reserved))
		}
	}
	return err
}

func (i *Instance) materialize(x *tensor.Tensor) error {
	alloc, err := i.rt.spaces.For(x.Space())
	if err != nil {
		return diag.New(diag.AllocationFailure, i.desc.Name, "", "%v", err)
	}
	if err := x.Materialize(alloc); err != nil {
		return diag.New(diag.AllocationFailure, i.desc.Name, "", "allocating %s: %v", x, err)
	}
	return nil
}

func (i *Instance) free(x *tensor.Tensor) error {
	if !x.Materialized() {
		return nil
	}
	alloc, err := i.rt.spaces.For(x.Space())
	if err != nil {
		return err
	}
	return x.Release(alloc)
}

// inert is the state of a stub kind under StubInert.
type inert struct{}

func (inert) Execute() error { return nil }
