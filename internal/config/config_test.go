package config

import (
	"testing"

	"github.com/born-ml/oprt/internal/op"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, op.StubFail, cfg.Stubs())
	assert.Equal(t, "sim", cfg.Memory.Accelerator)
	assert.Zero(t, cfg.Memory.AccelLimit)
	assert.Zero(t, cfg.KernelWorkers)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OPRT_LOG_LEVEL", "debug")
	t.Setenv("OPRT_STUB_POLICY", "inert")
	t.Setenv("OPRT_ACCEL_MEMORY_LIMIT", "1048576")
	t.Setenv("OPRT_METRICS_ADDR", ":9100")
	t.Setenv("OPRT_KERNEL_WORKERS", "2")
	t.Setenv("OPRT_HOST_MEMORY_LIMIT", "4096")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, op.StubInert, cfg.Stubs())
	assert.Equal(t, uint64(1<<20), cfg.Memory.AccelLimit)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, 2, cfg.KernelWorkers)
	assert.Equal(t, uint64(4096), cfg.Memory.HostLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"log level", "OPRT_LOG_LEVEL", "verbose"},
		{"stub policy", "OPRT_STUB_POLICY", "skip"},
		{"accelerator", "OPRT_ACCELERATOR", "cuda"},
		{"limit", "OPRT_ACCEL_MEMORY_LIMIT", "lots"},
		{"kernel workers", "OPRT_KERNEL_WORKERS", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
