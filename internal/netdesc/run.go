package netdesc

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/op"
	"github.com/born-ml/oprt/internal/safetensors"
	"github.com/born-ml/oprt/internal/symtab"
	"github.com/born-ml/oprt/internal/tensor"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Output is a graph result copied to host memory.
type Output struct {
	Name   string
	DType  tensor.DataType
	Shape  tensor.Shape
	Values []float64

	// Data is a host copy of the raw storage.
	Data []byte
}

// Runner executes graph descriptions on a runtime, one instance at a time.
type Runner struct {
	rt     *op.Runtime
	logger *zap.Logger
}

// NewRunner creates a runner. A nil logger disables logging.
func NewRunner(rt *op.Runtime, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{rt: rt, logger: logger}
}

// Run validates g, then prepares, arms and executes every op in order and
// returns the declared outputs. Instances are torn down in reverse order and
// graph inputs released before Run returns, on success and on failure.
func (r *Runner) Run(ctx context.Context, g *Graph) (outputs []Output, err error) {
	if err := g.Validate(r.rt.Registry()); err != nil {
		return nil, err
	}

	tab := symtab.New()
	var (
		inputs []*tensor.Tensor
		insts  []*op.Instance
	)
	defer func() {
		for i := len(insts) - 1; i >= 0; i-- {
			err = multierr.Append(err, insts[i].Teardown(tab))
		}
		for i, x := range inputs {
			err = multierr.Append(err, tab.Remove(g.Tensors[i].Name))
			err = multierr.Append(err, r.release(x))
		}
		if err != nil {
			outputs = nil
		}
	}()

	for _, decl := range g.Tensors {
		x, err := r.load(g, decl)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", decl.Name, err)
		}
		if err := tab.Define(decl.Name, x); err != nil {
			return nil, multierr.Append(err, r.release(x))
		}
		inputs = append(inputs, x)
	}

	for i, d := range g.Ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label := d.Label(i)

		params, err := Params(d.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		inst, err := r.rt.NewInstance(d.Kind, Bindings(d.Inputs), Bindings(d.Outputs), params)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		if err := inst.Prepare(tab); err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		insts = append(insts, inst)

		if err := inst.Arm(tab); err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		if err := inst.Execute(tab); err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		r.logger.Debug("op executed",
			zap.String("op", label),
			zap.String("kind", d.Kind),
			zap.Int("warnings", len(inst.Warnings())))
	}

	for _, name := range g.Outputs {
		e, ok := tab.Find(name)
		if !ok || !e.Defined {
			return nil, fmt.Errorf("output %q is not defined", name)
		}
		out, err := r.snapshot(name, e.Tensor)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// load creates a graph input in its declared space.
func (r *Runner) load(g *Graph, decl TensorDecl) (*tensor.Tensor, error) {
	space, err := declSpace(decl.Space)
	if err != nil {
		return nil, err
	}
	spaces := r.rt.Spaces()

	var host *tensor.Tensor
	if decl.File != "" {
		host, err = r.loadFile(g, decl)
		if err != nil {
			return nil, err
		}
	} else {
		dtype, err := tensor.ParseDataType(decl.DType)
		if err != nil {
			return nil, err
		}
		host, err = tensor.New(decl.Shape, dtype, mem.Host)
		if err != nil {
			return nil, err
		}
		if err := host.Materialize(spaces.Host); err != nil {
			return nil, err
		}
		if err := fill(host, decl.Data); err != nil {
			return nil, multierr.Append(err, r.release(host))
		}
	}
	if space == mem.Host {
		return host, nil
	}

	dev, err := tensor.New(host.Shape(), host.DType(), space)
	if err != nil {
		return nil, multierr.Append(err, r.release(host))
	}
	if err := dev.Materialize(spaces.Accel); err != nil {
		return nil, multierr.Append(err, r.release(host))
	}
	err = spaces.Copy(dev.Buffer(), host.Buffer(), host.ByteSize())
	err = multierr.Append(err, r.release(host))
	if err != nil {
		return nil, multierr.Append(err, r.release(dev))
	}
	return dev, nil
}

// loadFile reads decl from its SafeTensors file into host memory and checks
// it against the declared type and shape.
func (r *Runner) loadFile(g *Graph, decl TensorDecl) (x *tensor.Tensor, err error) {
	path := decl.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.Dir(), path)
	}
	st, err := safetensors.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	x, err = st.Load(decl.StoredKey(), r.rt.Spaces().Host)
	if err != nil {
		return nil, err
	}
	if decl.DType != "" {
		if dtype, _ := tensor.ParseDataType(decl.DType); dtype != x.DType() {
			err = fmt.Errorf("declared %s, file holds %s", decl.DType, x.DType())
		}
	}
	if decl.Shape != nil && !x.Shape().Equal(decl.Shape) {
		err = multierr.Append(err, fmt.Errorf("declared shape %v, file holds %v", decl.Shape, []int(x.Shape())))
	}
	if err != nil {
		return nil, multierr.Append(err, r.release(x))
	}
	return x, nil
}

// snapshot copies x to host memory and converts its elements to float64.
func (r *Runner) snapshot(name string, x *tensor.Tensor) (Output, error) {
	out := Output{Name: name, DType: x.DType(), Shape: x.Shape()}
	src := x
	if x.Space() != mem.Host {
		spaces := r.rt.Spaces()
		host, err := tensor.New(x.Shape(), x.DType(), mem.Host)
		if err != nil {
			return out, err
		}
		if err := host.Materialize(spaces.Host); err != nil {
			return out, err
		}
		defer func() { _ = r.release(host) }()
		if err := spaces.Copy(host.Buffer(), x.Buffer(), x.ByteSize()); err != nil {
			return out, err
		}
		src = host
	}

	data, err := src.Bytes()
	if err != nil {
		return out, err
	}
	out.Data = append([]byte(nil), data...)
	out.Values, err = values(src)
	return out, err
}

func (r *Runner) release(x *tensor.Tensor) error {
	alloc, err := r.rt.Spaces().For(x.Space())
	if err != nil {
		return err
	}
	return x.Release(alloc)
}

func fill(x *tensor.Tensor, data []float64) error {
	if data == nil {
		return nil
	}
	switch x.DType() {
	case tensor.Float32:
		return fillAs[float32](x, data)
	case tensor.Float64:
		return fillAs[float64](x, data)
	case tensor.Int32:
		return fillAs[int32](x, data)
	case tensor.Int64:
		return fillAs[int64](x, data)
	case tensor.Uint8:
		return fillAs[uint8](x, data)
	case tensor.Bool:
		v, err := tensor.View[bool](x)
		if err != nil {
			return err
		}
		for i, f := range data {
			v[i] = f != 0
		}
		return nil
	default:
		return fmt.Errorf("unsupported dtype %s", x.DType())
	}
}

func fillAs[T interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8
}](x *tensor.Tensor, data []float64) error {
	v, err := tensor.View[T](x)
	if err != nil {
		return err
	}
	for i, f := range data {
		v[i] = T(f)
	}
	return nil
}

func values(x *tensor.Tensor) ([]float64, error) {
	switch x.DType() {
	case tensor.Float32:
		return valuesAs[float32](x)
	case tensor.Float64:
		return valuesAs[float64](x)
	case tensor.Int32:
		return valuesAs[int32](x)
	case tensor.Int64:
		return valuesAs[int64](x)
	case tensor.Uint8:
		return valuesAs[uint8](x)
	case tensor.Bool:
		v, err := tensor.View[bool](x)
		if err != nil {
			return nil, err
		}
		out := make([]float64, len(v))
		for i, b := range v {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported dtype %s", x.DType())
	}
}

func valuesAs[T interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8
}](x *tensor.Tensor) ([]float64, error) {
	v, err := tensor.View[T](x)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(v))
	for i, e := range v {
		out[i] = float64(e)
	}
	return out, nil
}
