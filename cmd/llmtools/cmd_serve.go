package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"llmtools/internal/logging"
	"llmtools/internal/metrics"
	"llmtools/internal/tools/database"
	"llmtools/internal/transport"
)

var (
	serveNATSURL     string
	serveMetricsAddr string
)

// serveCmd runs the NATS transport
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve postgres_db over NATS request/reply",
	Long: `Queue-subscribes to the configured subject (default llmtools.tag.0x77) and
answers every request with the tool's JSON result. Optionally exposes
Prometheus metrics and records every operation in the audit trail.

Stops on SIGINT/SIGTERM after in-flight requests have been answered.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveNATSURL != "" {
		cfg.NATS.URL = serveNATSURL
	}
	if serveMetricsAddr != "" {
		cfg.Metrics.Addr = serveMetricsAddr
		cfg.Metrics.Enabled = true
	}
	if cfg.NATS.URL == "" {
		return fmt.Errorf("serve requires a NATS URL (--nats-url, nats.url or NATS_URL)")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	tool := rt.registry.ByDataTag(database.DataTag)
	if tool == nil {
		return fmt.Errorf("no tool bound to data tag 0x%x", database.DataTag)
	}

	var metricsServer *metrics.Server
	if rt.metrics != nil {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, rt.metrics)
		if err := metricsServer.Start(); err != nil {
			return err
		}
	}

	srv := transport.NewServer(transport.OptionsFromConfig(cfg.NATS, tool.Name), rt.registry)
	if err := srv.Start(ctx); err != nil {
		if metricsServer != nil {
			_ = metricsServer.Stop(context.Background())
		}
		return err
	}

	logger.Info("serving",
		zap.String("tool", tool.Name),
		zap.String("subject", srv.Subject()),
		zap.Bool("database_configured", rt.pools.Configured()),
		zap.Bool("audit", rt.audit != nil),
		zap.Bool("metrics", metricsServer != nil),
	)

	<-ctx.Done()
	logging.Boot("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.NATS.GetDrainTimeout())
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
