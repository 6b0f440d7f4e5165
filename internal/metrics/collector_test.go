package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorPhases(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObservePhase("slice", "prepare", time.Millisecond, nil)
	c.ObservePhase("slice", "prepare", time.Millisecond, diag.New(diag.ShapeConstraintViolation, "slice", "len", "too long"))
	c.ObservePhase("slice", "execute", time.Microsecond, errors.New("plain"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.phases.WithLabelValues("slice", "prepare")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.phaseFailures.WithLabelValues("slice", "prepare", "ShapeConstraintViolation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.phaseFailures.WithLabelValues("slice", "execute", "other")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.phaseDuration))
}

func TestCollectorWarnings(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveWarning("slice", diag.CheckOutputUndefined)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.warnings.WithLabelValues("slice", "output-undefined")))
}

func TestRegisterSpaces(t *testing.T) {
	reg := prometheus.NewRegistry()
	spaces := mem.NewSpaces(nil)
	RegisterSpaces(reg, spaces)

	buf, err := spaces.Accel.Allocate(64)
	require.NoError(t, err)

	assert.Equal(t, 64.0, gaugeValue(t, reg, "oprt_memory_bytes_in_use", "accelerator"))
	assert.Equal(t, 1.0, gaugeValue(t, reg, "oprt_memory_live_buffers", "accelerator"))
	assert.Equal(t, 0.0, gaugeValue(t, reg, "oprt_memory_bytes_in_use", "host"))

	require.NoError(t, spaces.Accel.Free(buf))
	assert.Equal(t, 0.0, gaugeValue(t, reg, "oprt_memory_bytes_in_use", "accelerator"))
	assert.Equal(t, 64.0, gaugeValue(t, reg, "oprt_memory_peak_bytes", "accelerator"))
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name, space string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "space" && l.GetValue() == space {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{space=%q} not found", name, space)
	return 0
}
