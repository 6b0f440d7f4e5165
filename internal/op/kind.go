package op

// Kind is a registered computation type.
type Kind interface {
	// Descriptor declares arity, spaces and check severities.
	Descriptor() *Descriptor
	// Prepare validates kind-specific constraints, infers outputs through
	// p.Define and returns the instance's private state.
	Prepare(p *Prep) (State, error)
}

// State is the typed private context of one operator instance, created by
// Prepare and owned by the instance until teardown.
type State interface {
	// Execute reads bound inputs and writes bound outputs. It must not
	// allocate, free or touch the symbol table, and must produce identical
	// outputs for identical inputs.
	Execute() error
}

// Armer is implemented by states that need one-time setup after prepare,
// such as a device workspace sized from the final output shape.
type Armer interface {
	Arm(a *Arm) error
}

// Closer is implemented by states holding resources the engine does not
// track. It runs first during teardown.
type Closer interface {
	Teardown() error
}

// Binding maps an argument name to a tensor name in the symbol table.
type Binding struct {
	Arg    string
	Tensor string
}

// Bind is shorthand for a Binding.
func Bind(arg, tensorName string) Binding {
	return Binding{Arg: arg, Tensor: tensorName}
}

func lookup(bindings []Binding, arg string) (string, bool) {
	for _, b := range bindings {
		if b.Arg == arg {
			return b.Tensor, true
		}
	}
	return "", false
}
