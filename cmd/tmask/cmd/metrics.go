package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tinymask/internal/handlers"
	"github.com/abdul-hamid-achik/tinymask/internal/metrics"
)

var metricsAddr string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Serve Prometheus metrics and health checks",
	Long: `Serve /metrics, /health and /ready over HTTP. Mapping counts per value type
are refreshed from the store every metrics.interval.

Examples:
  tmask metrics
  tmask metrics --addr 127.0.0.1:9464`,
	Args: cobra.NoArgs,
	RunE: runMetrics,
}

func init() {
	metricsCmd.Flags().StringVar(&metricsAddr, "addr", "", "listen address (default from metrics.addr)")
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, s, err := openSession(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	addr := s.cfg.Metrics.Addr
	if metricsAddr != "" {
		addr = metricsAddr
	}

	server := &http.Server{
		Addr: addr,
		Handler: handlers.NewRouter(&handlers.Dependencies{
			Store:          s.store,
			Backend:        s.cfg.Store.Backend,
			Logger:         s.logger,
			RequestTimeout: s.cfg.Store.Timeout,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go metrics.StartCollector(ctx, s.store, s.cfg.Metrics.Interval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down metrics server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown failed: %w", err)
	}
	return nil
}
