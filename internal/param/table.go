package param

import "fmt"

// Table holds at most one entry per name. It is read-only once bound to an
// operator instance.
type Table struct {
	entries map[string]Entry
	order   []string
}

// New creates a table from entries, rejecting duplicate names.
func New(entries ...Entry) (*Table, error) {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("param: unnamed parameter")
		}
		if _, ok := t.entries[e.Name]; ok {
			return nil, fmt.Errorf("param: duplicate parameter %q", e.Name)
		}
		t.entries[e.Name] = e
		t.order = append(t.order, e.Name)
	}
	return t, nil
}

// MustNew is New that panics on error. Intended for tests and static tables.
func MustNew(entries ...Entry) *Table {
	t, err := New(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of parameters.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Find returns the entry for name.
func (t *Table) Find(name string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[name]
	return e, ok
}

// Names returns parameter names in insertion order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}
