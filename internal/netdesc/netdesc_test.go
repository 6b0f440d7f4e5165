package netdesc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/op"
	"github.com/born-ml/oprt/internal/ops"
	"github.com/born-ml/oprt/internal/param"
	"github.com/born-ml/oprt/internal/safetensors"
	"github.com/born-ml/oprt/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const pipeline = `
tensors:
  - name: x
    dtype: float32
    shape: [2, 3, 4]
    data: [0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23]
  - name: ones
    dtype: float32
    shape: [4, 2, 2]
    space: accelerator
ops:
  - name: permute
    kind: transpose
    inputs: {src: x}
    outputs: {dst: xt}
    params: {axes: [2, 0, 1]}
  - name: cut
    kind: slice
    inputs: {src: xt}
    outputs: {dst: xs}
    params: {axis: 2, start: 1, len: 2}
  - kind: elew
    inputs: {src1: xs, src2: xs}
    outputs: {dst: y}
    params: {elew_op: TL_SUM}
outputs: [xt, y]
`

func newRuntime(spaces *mem.Spaces) *op.Runtime {
	return op.NewRuntime(ops.NewRegistry(), spaces)
}

func TestParse(t *testing.T) {
	g, err := Parse([]byte(pipeline))
	require.NoError(t, err)

	require.Len(t, g.Tensors, 2)
	assert.Equal(t, []int{2, 3, 4}, g.Tensors[0].Shape)
	assert.Equal(t, "accelerator", g.Tensors[1].Space)
	require.Len(t, g.Ops, 3)
	assert.Equal(t, "elew#2", g.Ops[2].Label(2))
	assert.Equal(t, []string{"xt", "y"}, g.Outputs)

	_, err = Parse([]byte("tensors: []\nunknown: 1\n"))
	assert.Error(t, err)
}

func TestParams(t *testing.T) {
	tab, err := Params(map[string]any{"axis": 1, "scale": 0.5, "elew_op": "TL_SUM", "axes": []any{2, 0, 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"axes", "axis", "elew_op", "scale"}, tab.Names())

	e, _ := tab.Find("axes")
	assert.Equal(t, param.NumberArray, e.Type)
	assert.Equal(t, []int{2, 0, 1}, e.IntSlice())
	e, _ = tab.Find("scale")
	assert.Equal(t, 0.5, e.Float())

	_, err = Params(map[string]any{"axes": []any{"a"}})
	assert.Error(t, err)
	_, err = Params(map[string]any{"flag": true})
	assert.Error(t, err)
}

func TestBindingsSorted(t *testing.T) {
	b := Bindings(map[string]string{"src2": "b", "src1": "a"})
	assert.Equal(t, []op.Binding{op.Bind("src1", "a"), op.Bind("src2", "b")}, b)
}

func TestValidate(t *testing.T) {
	reg := ops.NewRegistry()
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown kind", `
tensors: [{name: x, dtype: float32, shape: [2]}]
ops: [{kind: gelu, inputs: {src: x}, outputs: {dst: y}}]`},
		{"missing input binding", `
tensors: [{name: x, dtype: float32, shape: [2]}]
ops: [{kind: elew, inputs: {src1: x}, outputs: {dst: y}, params: {elew_op: TL_SUM}}]`},
		{"read before produced", `
tensors: [{name: x, dtype: float32, shape: [2]}]
ops: [{kind: softmax, inputs: {src: z}, outputs: {dst: y}, params: {axis: 0}}]`},
		{"wrong space", `
tensors: [{name: x, dtype: float32, shape: [2]}]
ops: [{kind: relu_accel, inputs: {src: x}, outputs: {dst: y}}]`},
		{"parameter count", `
tensors: [{name: x, dtype: float32, shape: [2]}]
ops: [{kind: softmax, inputs: {src: x}, outputs: {dst: y}}]`},
		{"data length", `
tensors: [{name: x, dtype: float32, shape: [2], data: [1, 2, 3]}]`},
		{"bad dtype", `
tensors: [{name: x, dtype: complex64, shape: [2]}]`},
		{"data and file", `
tensors: [{name: x, dtype: float32, shape: [2], data: [1, 2], file: x.safetensors}]`},
		{"key without file", `
tensors: [{name: x, dtype: float32, shape: [2], key: w}]`},
		{"duplicate tensor", `
tensors: [{name: x, dtype: float32, shape: [2]}, {name: x, dtype: float32, shape: [2]}]`},
		{"missing output", `
tensors: [{name: x, dtype: float32, shape: [2]}]
outputs: [y]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			assert.Error(t, g.Validate(reg))
		})
	}
}

func TestRun(t *testing.T) {
	spaces := mem.NewSpaces(nil)
	core, logs := observer.New(zap.DebugLevel)
	runner := NewRunner(newRuntime(spaces), zap.New(core))

	g, err := Parse([]byte(pipeline))
	require.NoError(t, err)

	outs, err := runner.Run(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, outs, 2)

	xt := outs[0]
	assert.Equal(t, "xt", xt.Name)
	assert.Equal(t, tensor.Shape{4, 2, 3}, xt.Shape)
	// xt[k][i][j] = x[i][j][k] = 12i + 4j + k
	assert.Equal(t, []float64{0, 4, 8, 12, 16, 20}, xt.Values[:6])

	y := outs[1]
	assert.Equal(t, tensor.Shape{4, 2, 2}, y.Shape)
	assert.Equal(t, tensor.Float32, y.DType)
	// y[k][i][j] = 2 * xt[k][i][j+1]
	assert.Equal(t, []float64{8, 16, 32, 40}, y.Values[:4])

	assert.Equal(t, 3, logs.FilterMessage("op executed").Len())
	assert.Equal(t, int64(0), spaces.Host.Stats().LiveBuffers, "everything released")
	assert.Equal(t, int64(0), spaces.Accel.Stats().LiveBuffers)
}

func TestRunAcceleratorGraph(t *testing.T) {
	spaces := mem.NewSpaces(nil)
	runner := NewRunner(newRuntime(spaces), nil)

	g, err := Parse([]byte(`
tensors:
  - {name: x, dtype: float32, shape: [1, 1, 3, 3], space: accelerator, data: [1, -2, 3, -4, 5, -6, 7, -8, 9]}
  - {name: w, dtype: float32, shape: [1, 1, 1, 2, 2], space: accelerator, data: [1, 1, 1, 1]}
ops:
  - kind: relu_accel
    inputs: {src: x}
    outputs: {dst: r}
  - kind: conv2d_accel
    inputs: {src: r, weight: w}
    outputs: {dst: y}
    params: {group: 1, size: [2, 2], stride: [1, 1], padding: [0, 0, 0, 0], dilation: [1, 1]}
outputs: [y]
`))
	require.NoError(t, err)

	outs, err := runner.Run(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	// relu: [1 0 3; 0 5 0; 7 0 9]
	assert.Equal(t, []float64{6, 8, 12, 14}, outs[0].Values)
	assert.Equal(t, int64(0), spaces.Accel.Stats().LiveBuffers)
}

func TestRunFailureReleasesEverything(t *testing.T) {
	spaces := mem.NewSpaces(nil)
	runner := NewRunner(newRuntime(spaces), nil)

	g, err := Parse([]byte(`
tensors:
  - {name: x, dtype: float32, shape: [4, 6]}
ops:
  - kind: softmax
    inputs: {src: x}
    outputs: {dst: s}
    params: {axis: 1}
  - kind: slice
    inputs: {src: s}
    outputs: {dst: y}
    params: {axis: 1, start: 5, len: 2}
outputs: [y]
`))
	require.NoError(t, err)

	outs, err := runner.Run(context.Background(), g)
	require.Error(t, err)
	assert.Nil(t, outs)
	assert.True(t, errors.Is(err, diag.ShapeConstraintViolation))
	assert.Equal(t, int64(0), spaces.Host.Stats().LiveBuffers)
}

func TestRunCancelled(t *testing.T) {
	runner := NewRunner(newRuntime(nil), nil)
	g, err := Parse([]byte(pipeline))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runner.Run(ctx, g)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pipeline), 0o600))

	g, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, g.Ops, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunLoadsWeightFile(t *testing.T) {
	dir := t.TempDir()
	host := mem.NewHostAllocator(0)
	w, err := tensor.FromSlice(host, []float32{1, 0, 0, 1}, tensor.Shape{1, 1, 1, 2, 2})
	require.NoError(t, err)
	entry, err := safetensors.EntryOf("conv.weight", w)
	require.NoError(t, err)
	require.NoError(t, safetensors.Write(filepath.Join(dir, "weights.safetensors"), []safetensors.Entry{entry}, nil))

	path := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tensors:
  - {name: x, dtype: float32, shape: [1, 1, 3, 3], data: [1, 2, 3, 4, 5, 6, 7, 8, 9]}
  - {name: w, file: weights.safetensors, key: conv.weight}
ops:
  - kind: conv2d
    inputs: {src: x, weight: w}
    outputs: {dst: y}
    params: {group: 1, size: [2, 2], stride: [1, 1], padding: [0, 0, 0, 0], dilation: [1, 1]}
outputs: [y]
`), 0o600))

	g, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, g.Dir())

	spaces := mem.NewSpaces(nil)
	outs, err := NewRunner(newRuntime(spaces), nil).Run(context.Background(), g)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	// Diagonal kernel: x[i][j] + x[i+1][j+1].
	assert.Equal(t, []float64{6, 8, 12, 14}, outs[0].Values)
	assert.Len(t, outs[0].Data, 4*4)
	assert.Equal(t, int64(0), spaces.Host.Stats().LiveBuffers)
}

func TestRunRejectsMismatchedWeightFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, safetensors.Write(filepath.Join(dir, "w.safetensors"), []safetensors.Entry{{
		Name: "w", DType: tensor.Float32, Shape: tensor.Shape{2}, Data: make([]byte, 8),
	}}, nil))

	g, err := Parse([]byte(`
tensors:
  - {name: w, dtype: float32, shape: [3], file: w.safetensors}
outputs: [w]
`))
	require.NoError(t, err)
	g.dir = dir

	spaces := mem.NewSpaces(nil)
	_, err = NewRunner(newRuntime(spaces), nil).Run(context.Background(), g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared shape")
	assert.Equal(t, int64(0), spaces.Host.Stats().LiveBuffers)
}
