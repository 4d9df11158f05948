package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/liveroute/internal/devserver"
	"github.com/vango-dev/liveroute/internal/scenario"
	"github.com/vango-dev/liveroute/pkg/metrics"
	"github.com/vango-dev/liveroute/pkg/router"
)

func (c *cli) serveCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve [scenario.yaml]",
		Short: "Serve a scenario's route tree over WebSocket",
		Long: `Serve compiles a scenario's route tree and exposes it to WebSocket
clients. Every connection gets its own history and router run.

Endpoints:
  /ws?path=/start   navigation session
  /routes           compiled route table as JSON
  /healthz          liveness probe
  /metrics          Prometheus metrics (when enabled)

Examples:
  liveroute serve scenarios/shop.yaml
  liveroute serve --port 8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return c.runServe(cmd, path, host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host to bind (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides config)")

	return cmd
}

func (c *cli) runServe(cmd *cobra.Command, path, host string, port int) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if host != "" {
		cfg.Serve.Host = host
	}
	if port != 0 {
		cfg.Serve.Port = port
	}

	f, err := c.loadScenario(cfg, path)
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)

	m, err := f.Matcher(&scenario.Journal{})
	if err != nil {
		return err
	}

	opts := append(cfg.RouterOptions(), router.WithLogger(logger))
	srvOpts := devserver.Options{Logger: logger, MetricsPath: cfg.Metrics.Path}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, router.WithObserver(metrics.New(
			metrics.WithNamespace(cfg.Metrics.Namespace),
			metrics.WithRegistry(reg),
			metrics.WithConstLabels(prometheus.Labels{"scenario": f.Name}),
		)))
		srvOpts.Gatherer = reg
	}

	r, err := router.New(m, opts...)
	if err != nil {
		return err
	}
	dev := devserver.New(r, srvOpts)
	defer dev.Close()

	httpServer := &http.Server{
		Addr:              cfg.ServeAddress(),
		Handler:           dev,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	c.success("Serving %s on http://%s", f.Name, cfg.ServeAddress())
	c.info("WebSocket: ws://%s/ws", cfg.ServeAddress())
	if cfg.Metrics.Enabled {
		c.info("Metrics:   http://%s%s", cfg.ServeAddress(), cfg.Metrics.Path)
	}

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	c.info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
