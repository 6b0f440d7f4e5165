package op

import (
	"fmt"
	"time"

	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/param"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StubPolicy decides what prepare does for kinds marked as stubs.
type StubPolicy int

const (
	// StubFail makes prepare of a stub kind fail with NotImplemented.
	StubFail StubPolicy = iota
	// StubInert makes every phase of a stub kind a no-op.
	StubInert
)

// ParseStubPolicy converts "fail" or "inert" to a StubPolicy.
func ParseStubPolicy(s string) (StubPolicy, error) {
	switch s {
	case "", "fail":
		return StubFail, nil
	case "inert":
		return StubInert, nil
	default:
		return StubFail, fmt.Errorf("op: unknown stub policy %q", s)
	}
}

// Phase names used for logs and metrics.
const (
	PhasePrepare  = "prepare"
	PhaseArm      = "arm"
	PhaseExecute  = "execute"
	PhaseTeardown = "teardown"
)

// Observer receives lifecycle events, e.g. for metrics.
type Observer interface {
	ObservePhase(kind, phase string, elapsed time.Duration, err error)
	ObserveWarning(kind string, check diag.Check)
}

type nopObserver struct{}

func (nopObserver) ObservePhase(string, string, time.Duration, error) {}
func (nopObserver) ObserveWarning(string, diag.Check)                 {}

// Runtime creates operator instances bound to a registry and to the memory
// spaces their storage comes from.
type Runtime struct {
	registry *Registry
	spaces   *mem.Spaces
	logger   *zap.Logger
	observer Observer
	stubs    StubPolicy
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver sets the lifecycle observer.
func WithObserver(o Observer) Option {
	return func(r *Runtime) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithStubPolicy sets how stub kinds behave.
func WithStubPolicy(p StubPolicy) Option {
	return func(r *Runtime) { r.stubs = p }
}

// NewRuntime creates a runtime. A nil spaces uses host memory and a
// simulated accelerator.
func NewRuntime(reg *Registry, spaces *mem.Spaces, opts ...Option) *Runtime {
	if spaces == nil {
		spaces = mem.NewSpaces(nil)
	}
	r := &Runtime{
		registry: reg,
		spaces:   spaces,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the kind registry.
func (r *Runtime) Registry() *Registry {
	return r.registry
}

// Spaces returns the memory spaces.
func (r *Runtime) Spaces() *mem.Spaces {
	return r.spaces
}

// NewInstance binds kind to tensor names and parameters. The instance
// starts Unbound; nothing is validated until Prepare.
func (r *Runtime) NewInstance(kind string, inputs, outputs []Binding, params *param.Table) (*Instance, error) {
	k, ok := r.registry.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("op: unknown operator kind %q", kind)
	}
	desc, _ := r.registry.Describe(kind)
	if params == nil {
		params = param.MustNew()
	}

	id := uuid.New()
	return &Instance{
		id:     id,
		rt:     r,
		kind:   k,
		desc:   desc,
		ins:    append([]Binding(nil), inputs...),
		outs:   append([]Binding(nil), outputs...),
		params: params,
		state:  Unbound,
		logger: r.logger.With(zap.String("op", kind), zap.String("instance", id.String())),
	}, nil
}
