package mem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpaceSatisfies(t *testing.T) {
	tests := []struct {
		space, req Space
		want       bool
	}{
		{Host, Any, true},
		{Accelerator, Any, true},
		{Host, Host, true},
		{Host, Accelerator, false},
		{Accelerator, Host, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.space.Satisfies(tt.req), "%s satisfies %s", tt.space, tt.req)
	}
}

func TestParseSpace(t *testing.T) {
	s, err := ParseSpace("accel")
	require.NoError(t, err)
	assert.Equal(t, Accelerator, s)

	_, err = ParseSpace("tpu")
	assert.Error(t, err)
}

func TestHostAllocatorZeroedAndTracked(t *testing.T) {
	h := NewHostAllocator(0)

	buf, err := h.Allocate(16)
	require.NoError(t, err)
	data, err := buf.Bytes()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 16), data)

	stats := h.Stats()
	assert.Equal(t, int64(1), stats.LiveBuffers)
	assert.Equal(t, uint64(16), stats.BytesInUse)

	require.NoError(t, h.Free(buf))
	assert.True(t, buf.Freed())
	assert.Equal(t, uint64(0), h.Stats().BytesInUse)
	assert.Equal(t, uint64(16), h.Stats().PeakBytes)

	err = h.Free(buf)
	assert.True(t, errors.Is(err, ErrDoubleFree))
}

func TestAllocatorLimit(t *testing.T) {
	d := NewSimDevice(32)

	_, err := d.Allocate(24)
	require.NoError(t, err)

	_, err = d.Allocate(16)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
}

func TestFreeForeignBuffer(t *testing.T) {
	h := NewHostAllocator(0)
	d := NewSimDevice(0)

	buf, err := d.Allocate(4)
	require.NoError(t, err)

	err = h.Free(buf)
	assert.True(t, errors.Is(err, ErrForeignBuffer))
}

func TestSpacesCopyRoundTrip(t *testing.T) {
	s := NewSpaces(nil)

	src, err := s.Host.Allocate(4)
	require.NoError(t, err)
	hostBytes, _ := src.Bytes()
	copy(hostBytes, []byte{1, 2, 3, 4})

	dev, err := s.Accel.Allocate(4)
	require.NoError(t, err)
	dev2, err := s.Accel.Allocate(4)
	require.NoError(t, err)
	back, err := s.Host.Allocate(4)
	require.NoError(t, err)

	require.NoError(t, s.Copy(dev, src, 4))
	require.NoError(t, s.Copy(dev2, dev, 4))
	require.NoError(t, s.Copy(back, dev2, 4))

	out, _ := back.Bytes()
	assert.Equal(t, []byte{1, 2, 3, 4}, out)
}

func TestSpacesCopyTooLarge(t *testing.T) {
	s := NewSpaces(nil)
	a, _ := s.Host.Allocate(2)
	b, _ := s.Host.Allocate(4)
	assert.Error(t, s.Copy(a, b, 4))
}

func TestSpacesFor(t *testing.T) {
	s := NewSpaces(nil)

	a, err := s.For(Host)
	require.NoError(t, err)
	assert.Equal(t, Host, a.Space())

	a, err = s.For(Accelerator)
	require.NoError(t, err)
	assert.Equal(t, Accelerator, a.Space())

	_, err = s.For(Any)
	assert.Error(t, err)
}

func TestNativeBufferHasNoHostView(t *testing.T) {
	buf := NewNative(Accelerator, 8, struct{}{})
	_, err := buf.Bytes()
	assert.True(t, errors.Is(err, ErrNoHostView))
}

func TestSimDeviceRelease(t *testing.T) {
	d := NewSimDevice(0)
	buf, err := d.Allocate(8)
	require.NoError(t, err)

	d.Release()
	assert.True(t, buf.Freed())
	assert.Equal(t, int64(0), d.Stats().LiveBuffers)
}
