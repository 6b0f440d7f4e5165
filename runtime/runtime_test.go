// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package runtime_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/born-ml/oprt/backend/cpu"
	"github.com/born-ml/oprt/runtime"
	"github.com/born-ml/oprt/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElewThroughPublicAPI(t *testing.T) {
	rt := runtime.New(nil)
	tab := runtime.NewTable()
	host := rt.Spaces().Host

	a, err := tensor.FromSlice(host, []float32{1, 2, 3}, tensor.Shape{3})
	require.NoError(t, err)
	require.NoError(t, tab.Define("a", a))

	inst, err := rt.NewInstance("elew",
		[]runtime.Binding{runtime.Bind("src1", "a"), runtime.Bind("src2", "a")},
		[]runtime.Binding{runtime.Bind("dst", "b")},
		runtime.MustParams(runtime.Str("elew_op", "TL_MUL")))
	require.NoError(t, err)

	require.NoError(t, inst.Prepare(tab))
	require.NoError(t, inst.Arm(tab))
	require.NoError(t, inst.Execute(tab))
	assert.Equal(t, runtime.Executing, inst.State())

	got, err := tensor.View[float32](inst.Output("dst"))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 4, 9}, got)

	require.NoError(t, inst.Teardown(tab))
	assert.Equal(t, []string{"a"}, tab.Names())
	assert.Equal(t, int64(1), host.Stats().LiveBuffers)
}

func TestDiagnosticCodes(t *testing.T) {
	rt := runtime.New(runtime.NewSpaces(cpu.NewSim(0)))
	tab := runtime.NewTable()

	inst, err := rt.NewInstance("slice",
		[]runtime.Binding{runtime.Bind("src", "missing")},
		[]runtime.Binding{runtime.Bind("dst", "out")},
		runtime.MustParams(runtime.Num("axis", 0), runtime.Num("start", 0), runtime.Num("len", 1)))
	require.NoError(t, err)

	err = inst.Prepare(tab)
	require.Error(t, err)
	assert.ErrorIs(t, err, runtime.TensorStateMismatch)

	var d *runtime.Diagnostic
	require.True(t, errors.As(err, &d))
	assert.Equal(t, "src", d.Arg)
	assert.Equal(t, runtime.Unbound, inst.State())
	assert.Zero(t, tab.Len())
}

func TestStubPolicyOption(t *testing.T) {
	policy, err := runtime.ParseStubPolicy("inert")
	require.NoError(t, err)

	rt := runtime.New(nil, runtime.WithStubPolicy(policy))
	inst, err := rt.NewInstance("maxpool2d", nil, nil, nil)
	require.NoError(t, err)

	tab := runtime.NewTable()
	require.NoError(t, inst.Prepare(tab))
	require.NoError(t, inst.Execute(tab))
	require.NoError(t, inst.Teardown(tab))
	assert.Equal(t, runtime.TornDown, inst.State())
}

func TestKinds(t *testing.T) {
	assert.Contains(t, runtime.Kinds(), "conv2d")
	assert.Contains(t, runtime.Kinds(), "softmax")
}

func ExampleRuntime_NewInstance() {
	rt := runtime.New(nil)
	tab := runtime.NewTable()

	x, _ := tensor.FromSlice(rt.Spaces().Host, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	_ = tab.Define("x", x)

	inst, _ := rt.NewInstance("transpose",
		[]runtime.Binding{runtime.Bind("src", "x")},
		[]runtime.Binding{runtime.Bind("dst", "xt")},
		runtime.MustParams(runtime.Ints("axes", 1, 0)))
	if err := inst.Prepare(tab); err != nil {
		fmt.Println(err)
		return
	}
	defer inst.Teardown(tab)

	_ = inst.Arm(tab)
	_ = inst.Execute(tab)

	out := inst.Output("dst")
	data, _ := tensor.View[float32](out)
	fmt.Println(out, data)
	// Output: float32[3 2]@host [1 4 2 5 3 6]
}
