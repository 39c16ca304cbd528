package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/splatgo"
	splatprom "github.com/hupe1980/splatgo/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

const (
	metaLogger  = "logger"
	metaMetrics = "metrics"
	metaServer  = "server"
)

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "splatgo",
		Usage:     "convert 3D Gaussian-splat PLY captures to glTF",
		Writer:    stdout,
		ErrWriter: stderr,
		Metadata:  map[string]any{},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"SPLATGO_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "log-format",
				Value: "text",
				Usage: "text or json",
			},
			&cli.StringFlag{
				Name:    "metrics-addr",
				Usage:   "serve Prometheus metrics on this address while running",
				EnvVars: []string{"SPLATGO_METRICS_ADDR"},
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			convertCommand(),
			batchCommand(),
			inspectCommand(),
		},
	}
}

func setup(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return fmt.Errorf("bad value for --log-level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(c.String("log-format")) {
	case "text":
		handler = slog.NewTextHandler(c.App.ErrWriter, opts)
	case "json":
		handler = slog.NewJSONHandler(c.App.ErrWriter, opts)
	default:
		return fmt.Errorf("bad value for --log-format %q: must be text or json", c.String("log-format"))
	}
	logger := splatgo.NewLogger(handler)
	c.App.Metadata[metaLogger] = logger

	addr := c.String("metrics-addr")
	if addr == "" {
		return nil
	}

	reg := prometheus.NewRegistry()
	collector, err := splatprom.NewCollector(reg, "splatgo")
	if err != nil {
		return err
	}
	c.App.Metadata[metaMetrics] = collector

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", splatprom.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	c.App.Metadata[metaServer] = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}

func teardown(c *cli.Context) error {
	srv, ok := c.App.Metadata[metaServer].(*http.Server)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func loggerFrom(c *cli.Context) *splatgo.Logger {
	if l, ok := c.App.Metadata[metaLogger].(*splatgo.Logger); ok {
		return l
	}
	return splatgo.NoopLogger()
}

func metricsFrom(c *cli.Context) splatgo.MetricsCollector {
	if m, ok := c.App.Metadata[metaMetrics].(splatgo.MetricsCollector); ok {
		return m
	}
	return nil
}
