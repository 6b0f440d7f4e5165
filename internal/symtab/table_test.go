package symtab

import (
	"errors"
	"testing"

	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTensor(t *testing.T, shape ...int) *tensor.Tensor {
	t.Helper()
	x, err := tensor.New(tensor.Shape(shape), tensor.Float32, mem.Host)
	require.NoError(t, err)
	return x
}

func TestInsertFindRemove(t *testing.T) {
	tab := New()
	x := newTensor(t, 2, 2)

	require.NoError(t, tab.Define("x", x))
	e, ok := tab.Find("x")
	require.True(t, ok)
	assert.Same(t, x, e.Tensor)
	assert.True(t, tab.IsDefined("x"))
	assert.Equal(t, 1, tab.Len())

	require.NoError(t, tab.Remove("x"))
	_, ok = tab.Find("x")
	assert.False(t, ok)
	assert.False(t, tab.IsDefined("x"))
}

func TestDuplicateInsertIsConsistencyError(t *testing.T) {
	tab := New()
	require.NoError(t, tab.Define("x", newTensor(t, 1)))

	err := tab.Define("x", newTensor(t, 3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, diag.SymbolTableConsistency))

	e, _ := tab.Find("x")
	assert.Equal(t, tensor.Shape{1}, e.Tensor.Shape(), "original entry must survive")
}

func TestRemoveMissingIsConsistencyError(t *testing.T) {
	err := New().Remove("ghost")
	assert.True(t, errors.Is(err, diag.SymbolTableConsistency))
}

func TestReserve(t *testing.T) {
	tab := New()
	require.NoError(t, tab.Reserve("y"))

	e, ok := tab.Find("y")
	require.True(t, ok)
	assert.False(t, e.Defined)
	assert.False(t, tab.IsDefined("y"))
}

func TestInsertUnnamed(t *testing.T) {
	assert.Error(t, New().Insert(&Entry{}))
	assert.Error(t, New().Insert(nil))
}

func TestNamesSorted(t *testing.T) {
	tab := New()
	for _, n := range []string{"c", "a", "b"} {
		require.NoError(t, tab.Reserve(n))
	}
	assert.Equal(t, []string{"a", "b", "c"}, tab.Names())
}

func TestBeginSingleWriter(t *testing.T) {
	tab := New()

	done, err := tab.Begin()
	require.NoError(t, err)

	_, err = tab.Begin()
	assert.True(t, errors.Is(err, diag.SymbolTableConsistency))

	done()
	done2, err := tab.Begin()
	require.NoError(t, err)
	done2()
}
