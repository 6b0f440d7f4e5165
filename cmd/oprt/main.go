// Package main provides the oprt CLI: it lists the registered operator
// kinds and runs graph descriptions.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/born-ml/oprt/internal/config"
	"github.com/born-ml/oprt/internal/kernels"
	"github.com/born-ml/oprt/internal/mem"
	"github.com/born-ml/oprt/internal/mem/webgpu"
	"github.com/born-ml/oprt/internal/metrics"
	"github.com/born-ml/oprt/internal/netdesc"
	"github.com/born-ml/oprt/internal/op"
	"github.com/born-ml/oprt/internal/ops"
	"github.com/born-ml/oprt/internal/parallel"
	"github.com/born-ml/oprt/internal/safetensors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set during build
	Version = "v0.1.0-dev"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("oprt %s\n", Version)
	case "ops":
		listOps()
	case "run":
		if len(os.Args) < 3 || len(os.Args) > 4 {
			fmt.Fprintln(os.Stderr, "usage: oprt run <graph.yaml> [outputs.safetensors]")
			os.Exit(2)
		}
		var save string
		if len(os.Args) == 4 {
			save = os.Args[3]
		}
		if err := run(os.Args[2], save); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("oprt - operator lifecycle runtime")
	fmt.Printf("Version: %s\n\n", Version)
	fmt.Println("Commands:")
	fmt.Println("  version           Show version")
	fmt.Println("  ops               List operator kinds")
	fmt.Println("  run <graph.yaml> [outputs.safetensors]")
	fmt.Println("                    Run a graph description, print its outputs and")
	fmt.Println("                    optionally save them")
}

func listOps() {
	reg := ops.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tINPUTS\tOUTPUTS\tIN\tOUT\tPARAMS\tSTUB")
	for _, name := range reg.Names() {
		d, _ := reg.Describe(name)
		params := make([]string, 0, len(d.Params))
		for _, p := range d.Params {
			params = append(params, p.Name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%v\n", d.Name,
			strings.Join(d.Inputs, ","), strings.Join(d.Outputs, ","),
			d.InSpace, d.OutSpace, strings.Join(params, ","), d.Stub)
	}
	w.Flush()
}

func run(path, save string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	kernels.SetParallelism(parallel.Workers(cfg.KernelWorkers))

	accel, err := openAccelerator(cfg.Memory)
	if err != nil {
		return err
	}
	defer accel.Release()
	logger.Info("accelerator ready", zap.String("device", accel.Name()))

	spaces := &mem.Spaces{
		Host:  mem.NewHostAllocator(cfg.Memory.HostLimit),
		Accel: accel,
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	metrics.RegisterSpaces(reg, spaces)

	rt := op.NewRuntime(ops.NewRegistry(), spaces,
		op.WithLogger(logger),
		op.WithObserver(collector),
		op.WithStubPolicy(cfg.Stubs()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("metrics server shutdown", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
	}

	g, err := netdesc.Load(path)
	if err != nil {
		return err
	}

	start := time.Now()
	outputs, err := netdesc.NewRunner(rt, logger).Run(ctx, g)
	if err != nil {
		return err
	}
	logger.Info("graph executed",
		zap.String("graph", path),
		zap.Int("ops", len(g.Ops)),
		zap.Duration("elapsed", time.Since(start)))

	for _, out := range outputs {
		fmt.Printf("%s %s%v = %v\n", out.Name, out.DType, []int(out.Shape), out.Values)
	}
	if save == "" {
		return nil
	}

	entries := make([]safetensors.Entry, len(outputs))
	for i, out := range outputs {
		entries[i] = safetensors.Entry{Name: out.Name, DType: out.DType, Shape: out.Shape, Data: out.Data}
	}
	if err := safetensors.Write(save, entries, map[string]string{"graph": path}); err != nil {
		return err
	}
	logger.Info("outputs saved", zap.String("file", save), zap.Int("tensors", len(entries)))
	return nil
}

func openAccelerator(cfg config.MemoryConfig) (mem.Device, error) {
	if cfg.Accelerator == "webgpu" {
		return webgpu.Open(cfg.AccelLimit)
	}
	return mem.NewSimDevice(cfg.AccelLimit), nil
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
