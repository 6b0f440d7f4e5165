// Package symtab implements the tensor symbol table: the name-keyed registry
// of the tensors that currently exist in one graph.
//
// The table is the only state shared between operator instances. It is not
// safe for concurrent mutation; writers bracket their mutations with Begin
// so an interleaved second writer is detected instead of corrupting entries.
package symtab

import (
	"sort"
	"sync"

	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/tensor"
)

// Entry is one named tensor. Defined is false for a reserved name whose
// shape and type are not known yet.
type Entry struct {
	Name    string
	Tensor  *tensor.Tensor
	Defined bool
}

// Table maps tensor names to entries.
type Table struct {
	entries map[string]*Entry
	writer  sync.Mutex
}

// New creates an empty table.
func New() *Table {
	return &Table{entries: make(map[string]*Entry)}
}

// Find returns the entry for name.
func (t *Table) Find(name string) (*Entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

// IsDefined reports whether name resolves to a defined entry.
func (t *Table) IsDefined(name string) bool {
	e, ok := t.entries[name]
	return ok && e.Defined
}

// Insert adds an entry. Inserting a name that is already present is a
// symbol table corruption signal and is never silently overwritten.
func (t *Table) Insert(e *Entry) error {
	if e == nil || e.Name == "" {
		return diag.New(diag.SymbolTableConsistency, "", "", "insert of unnamed entry")
	}
	if _, ok := t.entries[e.Name]; ok {
		return diag.New(diag.SymbolTableConsistency, "", e.Name, "duplicate insert of tensor %q", e.Name)
	}
	t.entries[e.Name] = e
	return nil
}

// Remove deletes the entry for name. Removing an absent name is a symbol
// table corruption signal.
func (t *Table) Remove(name string) error {
	if _, ok := t.entries[name]; !ok {
		return diag.New(diag.SymbolTableConsistency, "", name, "remove of unknown tensor %q", name)
	}
	delete(t.entries, name)
	return nil
}

// Reserve inserts an undefined entry for name.
func (t *Table) Reserve(name string) error {
	return t.Insert(&Entry{Name: name})
}

// Define inserts a defined entry holding x.
func (t *Table) Define(name string, x *tensor.Tensor) error {
	return t.Insert(&Entry{Name: name, Tensor: x, Defined: true})
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Names returns every entry name in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Begin acquires exclusive write access for one prepare or teardown phase.
// The returned function releases it. A second writer gets an error.
func (t *Table) Begin() (func(), error) {
	if !t.writer.TryLock() {
		return nil, diag.New(diag.SymbolTableConsistency, "", "", "concurrent mutation of symbol table")
	}
	return t.writer.Unlock, nil
}
