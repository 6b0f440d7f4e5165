// Package netdesc reads a small YAML graph description and drives its
// operator instances through the lifecycle in declaration order.
//
//	tensors:
//	  - name: x
//	    dtype: float32
//	    shape: [4, 6]
//	    space: host
//	    data: [0, 1, 2]      # optional, zero-filled when absent
//	  - name: w
//	    file: weights.safetensors  # relative to the graph file
//	    key: conv.weight           # defaults to name
//	ops:
//	  - kind: slice
//	    inputs:  {src: x}
//	    outputs: {dst: y}
//	    params:  {axis: 1, start: 2, len: 3}
//	outputs: [y]
package netdesc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/op"
	"github.com/born-ml/oprt/internal/param"
	"github.com/born-ml/oprt/internal/tensor"
	"gopkg.in/yaml.v3"
)

// Graph is a parsed graph description.
type Graph struct {
	Tensors []TensorDecl `yaml:"tensors"`
	Ops     []OpDecl     `yaml:"ops"`
	Outputs []string     `yaml:"outputs"`

	dir string // directory of the graph file
}

// TensorDecl declares a graph input tensor.
type TensorDecl struct {
	Name  string    `yaml:"name"`
	DType string    `yaml:"dtype"`
	Shape []int     `yaml:"shape"`
	Space string    `yaml:"space"`
	Data  []float64 `yaml:"data"`

	// File names a SafeTensors file holding the data; DType and Shape
	// are then optional and must match the file when given.
	File string `yaml:"file"`
	Key  string `yaml:"key"`
}

// StoredKey returns the name of the tensor inside File.
func (t TensorDecl) StoredKey() string {
	if t.Key != "" {
		return t.Key
	}
	return t.Name
}

// Dir returns the directory relative weight files are resolved against.
func (g *Graph) Dir() string {
	return g.dir
}

// OpDecl declares one operator instance.
type OpDecl struct {
	Name    string            `yaml:"name"`
	Kind    string            `yaml:"kind"`
	Inputs  map[string]string `yaml:"inputs"`
	Outputs map[string]string `yaml:"outputs"`
	Params  map[string]any    `yaml:"params"`
}

// Label returns the op name, or its kind and position when unnamed.
func (d OpDecl) Label(i int) string {
	if d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("%s#%d", d.Kind, i)
}

// Load reads a graph description from path.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, err
	}
	g.dir = filepath.Dir(path)
	return g, nil
}

// Parse decodes a graph description. Unknown fields are rejected.
func Parse(data []byte) (*Graph, error) {
	var g Graph
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}
	return &g, nil
}

// Bindings returns m as bindings sorted by argument name.
func Bindings(m map[string]string) []op.Binding {
	args := make([]string, 0, len(m))
	for arg := range m {
		args = append(args, arg)
	}
	sort.Strings(args)

	out := make([]op.Binding, len(args))
	for i, arg := range args {
		out[i] = op.Bind(arg, m[arg])
	}
	return out
}

// Params converts decoded YAML values to a parameter table: numbers become
// Number, strings String and lists of numbers NumberArray.
func Params(m map[string]any) (*param.Table, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]param.Entry, 0, len(names))
	for _, name := range names {
		e, err := paramEntry(name, m[name])
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return param.New(entries...)
}

func paramEntry(name string, v any) (param.Entry, error) {
	if f, ok := number(v); ok {
		return param.Num(name, f), nil
	}
	switch v := v.(type) {
	case string:
		return param.Str(name, v), nil
	case []any:
		arr := make([]float64, len(v))
		for i, x := range v {
			f, ok := number(x)
			if !ok {
				return param.Entry{}, fmt.Errorf("parameter %q: element %d is not a number", name, i)
			}
			arr[i] = f
		}
		return param.Nums(name, arr...), nil
	default:
		return param.Entry{}, fmt.Errorf("parameter %q: unsupported value %v", name, v)
	}
}

func number(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// Validate checks the graph against the registry before anything is
// allocated: known kinds, declared argument names, parameter count,
// producer order and memory spaces.
func (g *Graph) Validate(reg *op.Registry) error {
	spaces := make(map[string]mem.Space)
	for _, t := range g.Tensors {
		if t.Name == "" {
			return fmt.Errorf("tensor without name")
		}
		if _, dup := spaces[t.Name]; dup {
			return fmt.Errorf("tensor %q declared twice", t.Name)
		}
		if t.File != "" && t.Data != nil {
			return fmt.Errorf("tensor %q: data and file are mutually exclusive", t.Name)
		}
		if t.File == "" && t.Key != "" {
			return fmt.Errorf("tensor %q: key without file", t.Name)
		}
		if _, err := tensor.ParseDataType(t.DType); err != nil && (t.File == "" || t.DType != "") {
			return fmt.Errorf("tensor %q: %w", t.Name, err)
		}
		space, err := declSpace(t.Space)
		if err != nil {
			return fmt.Errorf("tensor %q: %w", t.Name, err)
		}
		if t.Data != nil && len(t.Data) != tensor.Shape(t.Shape).NumElements() {
			return fmt.Errorf("tensor %q: shape %v needs %d values, got %d",
				t.Name, t.Shape, tensor.Shape(t.Shape).NumElements(), len(t.Data))
		}
		spaces[t.Name] = space
	}

	for i, d := range g.Ops {
		label := d.Label(i)
		desc, ok := reg.Describe(d.Kind)
		if !ok {
			return fmt.Errorf("%s: unknown operator kind %q", label, d.Kind)
		}
		if err := sameArgs(desc.Inputs, d.Inputs); err != nil {
			return fmt.Errorf("%s: inputs: %w", label, err)
		}
		if err := sameArgs(desc.Outputs, d.Outputs); err != nil {
			return fmt.Errorf("%s: outputs: %w", label, err)
		}
		if len(d.Params) != desc.Arity().Params {
			return fmt.Errorf("%s: expected %d parameters, got %d", label, desc.Arity().Params, len(d.Params))
		}

		first := mem.Host
		for j, arg := range desc.Inputs {
			name := d.Inputs[arg]
			space, ok := spaces[name]
			if !ok {
				return fmt.Errorf("%s: input %q reads %q before it is produced", label, arg, name)
			}
			if !space.Satisfies(desc.InSpace) {
				return fmt.Errorf("%s: input %q is in %s memory, %s required", label, arg, space, desc.InSpace)
			}
			if j == 0 {
				first = space
			}
		}
		out := desc.OutSpace
		if out == mem.Any {
			out = first
		}
		for _, arg := range desc.Outputs {
			spaces[d.Outputs[arg]] = out
		}
	}

	for _, name := range g.Outputs {
		if _, ok := spaces[name]; !ok {
			return fmt.Errorf("output %q is never produced", name)
		}
	}
	return nil
}

func sameArgs(declared []string, bound map[string]string) error {
	if len(declared) != len(bound) {
		return fmt.Errorf("expected %d tensors, got %d", len(declared), len(bound))
	}
	for _, arg := range declared {
		if bound[arg] == "" {
			return fmt.Errorf("argument %q not bound", arg)
		}
	}
	return nil
}

func declSpace(name string) (mem.Space, error) {
	if name == "" {
		return mem.Host, nil
	}
	space, err := mem.ParseSpace(name)
	if err != nil {
		return 0, err
	}
	if space == mem.Any {
		return 0, fmt.Errorf("tensors must live in host or accelerator memory")
	}
	return space, nil
}
