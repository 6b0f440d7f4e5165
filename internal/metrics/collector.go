// Package metrics exports operator lifecycle metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/born-ml/oprt/internal/diag"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements op.Observer using Prometheus.
type Collector struct {
	phases        *prometheus.CounterVec
	phaseFailures *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	warnings      *prometheus.CounterVec
}

// NewCollector registers the lifecycle metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		phases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oprt_phases_total",
				Help: "Total number of lifecycle phases run",
			},
			[]string{"kind", "phase"},
		),
		phaseFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oprt_phase_failures_total",
				Help: "Total number of failed lifecycle phases by diagnostic code",
			},
			[]string{"kind", "phase", "code"},
		),
		phaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oprt_phase_duration_seconds",
				Help:    "Lifecycle phase duration in seconds",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
			},
			[]string{"kind", "phase"},
		),
		warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oprt_check_warnings_total",
				Help: "Total number of checks that failed with warning severity",
			},
			[]string{"kind", "check"},
		),
	}
}

// ObservePhase records one lifecycle phase.
func (c *Collector) ObservePhase(kind, phase string, elapsed time.Duration, err error) {
	c.phases.WithLabelValues(kind, phase).Inc()
	c.phaseDuration.WithLabelValues(kind, phase).Observe(elapsed.Seconds())
	if err != nil {
		c.phaseFailures.WithLabelValues(kind, phase, codeLabel(err)).Inc()
	}
}

// ObserveWarning records a check that failed as a warning.
func (c *Collector) ObserveWarning(kind string, check diag.Check) {
	c.warnings.WithLabelValues(kind, string(check)).Inc()
}

func codeLabel(err error) string {
	if code := diag.CodeOf(err); code != 0 {
		return code.String()
	}
	return "other"
}

// RegisterSpaces exports live buffer and byte gauges for every memory space.
func RegisterSpaces(reg prometheus.Registerer, spaces *mem.Spaces) {
	factory := promauto.With(reg)
	for _, a := range []mem.Allocator{spaces.Host, spaces.Accel} {
		alloc := a
		labels := prometheus.Labels{"space": alloc.Space().String()}
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "oprt_memory_live_buffers",
			Help:        "Number of live buffers",
			ConstLabels: labels,
		}, func() float64 { return float64(alloc.Stats().LiveBuffers) })
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "oprt_memory_bytes_in_use",
			Help:        "Bytes currently allocated",
			ConstLabels: labels,
		}, func() float64 { return float64(alloc.Stats().BytesInUse) })
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "oprt_memory_peak_bytes",
			Help:        "Peak bytes allocated at once",
			ConstLabels: labels,
		}, func() float64 { return float64(alloc.Stats().PeakBytes) })
	}
}
