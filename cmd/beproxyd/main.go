//go:build linux

// Command beproxyd runs the backend-facing event threads standalone: it
// registers a fixed set of backends on a pool of threads, exposes a
// Prometheus /metrics endpoint, and blocks until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"beproxy/backend"
	"beproxy/client"
)

var (
	flagConfig = ""
	flagEngine = "epoll"
)

func main() {
	root := &cobra.Command{
		Use:   "beproxyd",
		Short: "runs the backend-facing event threads for the proxy",
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to beproxyd.yaml (default: search ./ and /etc/beproxyd)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "start the event threads and metrics server",
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&flagEngine, "engine", "epoll", "event engine: epoll or uring")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("beproxyd (dev build)")
		},
	}

	root.AddCommand(runCmd, versionCmd)
	if err := root.Execute(); err != nil {
		slog.Error("beproxyd exited", "err", err)
		os.Exit(1)
	}
}

func newDriver(engine string) (backend.Driver, error) {
	switch engine {
	case "epoll":
		return backend.NewEpollDriver()
	case "uring":
		return backend.NewUringDriver(256)
	default:
		return nil, fmt.Errorf("unknown engine %q (want epoll or uring)", engine)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	if len(cfg.Servers) == 0 {
		return errors.New("no servers configured")
	}

	stats := backend.NewStats()

	pool, err := client.NewThreadPool(client.ThreadPoolConfig{
		Size:     cfg.Threads,
		NewDriver: func() (backend.Driver, error) { return newDriver(flagEngine) },
		Tunables: cfg.Tunables,
		Stats:    stats,
	})
	if err != nil {
		return fmt.Errorf("starting thread pool: %w", err)
	}
	defer pool.Close()

	newBreaker := client.NewGobreakerConfig(3, 0, cfg.Tunables.RetryInterval)

	for _, s := range cfg.Servers {
		if _, err := client.NewServerPool(s.Addr, pool, nil, newBreaker); err != nil {
			return fmt.Errorf("registering backend %s: %w", s.Addr, err)
		}
		slog.Info("backend registered", "addr", s.Addr)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(stats)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	go func() {
		slog.Info("metrics server listening", "addr", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return nil
}
