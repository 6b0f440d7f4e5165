package safetensors

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLoad(t *testing.T) {
	host := mem.NewHostAllocator(0)
	w, err := tensor.FromSlice(host, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)
	b, err := tensor.FromSlice(host, []int64{-7, 9}, tensor.Shape{2})
	require.NoError(t, err)

	we, err := EntryOf("conv.weight", w)
	require.NoError(t, err)
	be, err := EntryOf("conv.bias", b)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "weights.safetensors")
	require.NoError(t, Write(path, []Entry{we, be}, map[string]string{"format": "pt"}))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"conv.bias", "conv.weight"}, r.Names())
	assert.Equal(t, "pt", r.Metadata()["format"])

	info, err := r.Info("conv.weight")
	require.NoError(t, err)
	assert.Equal(t, "F32", info.DType)
	assert.Equal(t, []int{2, 3}, info.Shape)
	// Sorted by name: the bias comes first.
	assert.Equal(t, [2]int64{16, 40}, info.DataOffsets)

	dt, err := r.DataType("conv.bias")
	require.NoError(t, err)
	assert.Equal(t, tensor.Int64, dt)

	x, err := r.Load("conv.weight", host)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, x.Shape())
	got, err := tensor.View[float32](x)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, got)

	require.NoError(t, x.Release(host))
	require.NoError(t, w.Release(host))
	require.NoError(t, b.Release(host))
	assert.Zero(t, host.Stats().LiveBuffers)
}

func TestReadIntoChecksSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.safetensors")
	require.NoError(t, Write(path, []Entry{{
		Name: "x", DType: tensor.Uint8, Shape: tensor.Shape{3}, Data: []byte{1, 2, 3},
	}}, nil))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Error(t, r.ReadInto("x", make([]byte, 2)))
	assert.Error(t, r.ReadInto("missing", nil))

	dst := make([]byte, 3)
	require.NoError(t, r.ReadInto("x", dst))
	assert.Equal(t, []byte{1, 2, 3}, dst)
}

func TestWriteRejects(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"short data", []Entry{{Name: "x", DType: tensor.Float32, Shape: tensor.Shape{2}, Data: make([]byte, 4)}}},
		{"duplicate", []Entry{
			{Name: "x", DType: tensor.Uint8, Shape: tensor.Shape{1}, Data: []byte{1}},
			{Name: "x", DType: tensor.Uint8, Shape: tensor.Shape{1}, Data: []byte{2}},
		}},
		{"dtype", []Entry{{Name: "x", DType: tensor.DataType(42), Shape: tensor.Shape{1}, Data: []byte{1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			assert.Error(t, encode(&buf, tt.entries, nil))
		})
	}
}

func TestOpenRejectsBadHeader(t *testing.T) {
	dir := t.TempDir()

	huge := filepath.Join(dir, "huge.safetensors")
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(maxHeaderSize+1)))
	require.NoError(t, os.WriteFile(huge, buf.Bytes(), 0o600))
	_, err := Open(huge)
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.safetensors")
	buf.Reset()
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint64(4)))
	buf.WriteString("nope")
	require.NoError(t, os.WriteFile(garbage, buf.Bytes(), 0o600))
	_, err = Open(garbage)
	assert.Error(t, err)

	_, err = Open(filepath.Join(dir, "missing.safetensors"))
	assert.Error(t, err)
}

func TestDTypeNames(t *testing.T) {
	for _, dt := range []tensor.DataType{tensor.Float32, tensor.Float64, tensor.Int32, tensor.Int64, tensor.Uint8, tensor.Bool} {
		s, err := FormatDType(dt)
		require.NoError(t, err)
		back, err := ParseDType(s)
		require.NoError(t, err)
		assert.Equal(t, dt, back)
	}
	_, err := ParseDType("BF16")
	assert.Error(t, err)
}
