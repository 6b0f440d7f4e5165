package op

import (
	"fmt"
	"sort"
)

// Registry maps operator kind names to kinds. It is built at startup;
// descriptors are copied on registration and never change afterwards.
type Registry struct {
	kinds map[string]Kind
	descs map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]Kind),
		descs: make(map[string]*Descriptor),
	}
}

// Register adds a kind. Registering a name twice is an error.
func (r *Registry) Register(k Kind) error {
	d := k.Descriptor()
	if d == nil {
		return fmt.Errorf("op: kind without descriptor")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if _, ok := r.kinds[d.Name]; ok {
		return fmt.Errorf("op: kind %q already registered", d.Name)
	}
	r.kinds[d.Name] = k
	r.descs[d.Name] = d.Clone()
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(kinds ...Kind) {
	for _, k := range kinds {
		if err := r.Register(k); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Describe returns a copy of the descriptor of name. Graph builders use it
// to check arity and memory spaces before execution.
func (r *Registry) Describe(name string) (*Descriptor, bool) {
	d, ok := r.descs[name]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// Names returns the registered kind names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
