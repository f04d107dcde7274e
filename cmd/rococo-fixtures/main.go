// Command rococo-fixtures prepares and cleans the rococo service databases
// used by end-to-end test runs.
//
// Usage:
//
//	rococo-fixtures [-config file] [-metrics] [-trace] bootstrap|clear|seed-user|photos
//
// Connection settings come from ROCOCO_* environment variables layered over
// the optional YAML file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"rococodb/internal/config"
	"rococodb/internal/fixtures"
	"rococodb/internal/observability"
)

var exitFunc = os.Exit

type command func(ctx context.Context, h *fixtures.Harness, stdout io.Writer) error

var commands = map[string]command{
	"bootstrap": func(ctx context.Context, h *fixtures.Harness, stdout io.Writer) error {
		if err := h.Bootstrap(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "schema applied")
		return nil
	},
	"clear": func(ctx context.Context, h *fixtures.Harness, stdout io.Writer) error {
		if err := h.ClearAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "fixture data cleared")
		return nil
	},
	"seed-user": func(ctx context.Context, h *fixtures.Harness, stdout io.Writer) error {
		u, err := h.EnsureTestUser(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s %s\n", u.Auth.Username, u.Profile.ID)
		return nil
	},
	"photos": func(ctx context.Context, h *fixtures.Harness, stdout io.Writer) error {
		names, err := h.PhotoNames(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func cli(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("rococo-fixtures", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("ROCOCO_CONFIG_FILE"), "path to a YAML config file")
	dumpMetrics := fs.Bool("metrics", false, "print Prometheus metrics after the command")
	trace := fs.Bool("trace", false, "write one JSON line per unit of work to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: rococo-fixtures [flags] bootstrap|clear|seed-user|photos")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	run, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	cfg, err := config.LoadFrom(*configPath, os.LookupEnv)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger := observability.NewSlogLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	reg := prometheus.NewRegistry()
	prom, err := observability.NewPrometheusMetrics(reg, "rococo")
	if err != nil {
		fmt.Fprintf(stderr, "metrics: %v\n", err)
		return 1
	}
	metrics := observability.MultiMetrics(prom, observability.NewExpvarMetricsRecorder(""))

	opts := []fixtures.Option{fixtures.WithLogger(logger), fixtures.WithMetricsRecorder(metrics)}
	if *trace {
		opts = append(opts, fixtures.WithTracer(observability.NewJSONTracer(stderr)))
	}
	h, err := fixtures.Open(ctx, cfg, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "open: %v\n", err)
		return 1
	}
	code := 0
	if err := run(ctx, h, stdout); err != nil {
		logger.Error("command failed", "command", fs.Arg(0), "error", err)
		code = 1
	}
	if err := h.Close(); err != nil {
		logger.Error("close failed", "error", err)
		code = 1
	}
	if *dumpMetrics {
		if err := writeMetrics(stdout, reg); err != nil {
			fmt.Fprintf(stderr, "metrics: %v\n", err)
			code = 1
		}
	}
	return code
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
