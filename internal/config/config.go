// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/born-ml/oprt/internal/op"
	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the operator runtime.
type Config struct {
	LogLevel string `env:"OPRT_LOG_LEVEL" envDefault:"info"`

	// StubPolicy is "fail" or "inert".
	StubPolicy string `env:"OPRT_STUB_POLICY" envDefault:"fail"`

	// KernelWorkers bounds the goroutines a kernel uses; 0 means one per CPU.
	KernelWorkers int `env:"OPRT_KERNEL_WORKERS" envDefault:"0"`

	Memory MemoryConfig

	// MetricsAddr enables the Prometheus endpoint when set, e.g. ":9090".
	MetricsAddr string `env:"OPRT_METRICS_ADDR"`
}

// MemoryConfig selects the accelerator and the per-space limits.
type MemoryConfig struct {
	// Accelerator is "sim" or "webgpu".
	Accelerator string `env:"OPRT_ACCELERATOR" envDefault:"sim"`
	// Limits in bytes; 0 means unlimited.
	HostLimit  uint64 `env:"OPRT_HOST_MEMORY_LIMIT" envDefault:"0"`
	AccelLimit uint64 `env:"OPRT_ACCEL_MEMORY_LIMIT" envDefault:"0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	if _, err := op.ParseStubPolicy(c.StubPolicy); err != nil {
		return err
	}

	if c.KernelWorkers < 0 {
		return fmt.Errorf("invalid kernel workers: %d", c.KernelWorkers)
	}

	switch c.Memory.Accelerator {
	case "sim", "webgpu":
	default:
		return fmt.Errorf("unsupported accelerator: %s (must be sim or webgpu)", c.Memory.Accelerator)
	}

	return nil
}

// Stubs returns the parsed stub policy.
func (c *Config) Stubs() op.StubPolicy {
	p, _ := op.ParseStubPolicy(c.StubPolicy)
	return p
}
