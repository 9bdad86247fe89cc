package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/guided-traffic/body-ingest/internal/config"
	"github.com/guided-traffic/body-ingest/internal/monitoring"
	"github.com/guided-traffic/body-ingest/internal/server"
	"github.com/guided-traffic/body-ingest/internal/server/handlers/health"
)

var (
	// Build information injected at build time
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "body-ingest",
		Short: "Body Ingest parses HTTP request bodies ahead of your handlers",
		Long: `Body Ingest streams HTTP request bodies, enforces a configurable size limit
while the bytes arrive, and exposes the result to downstream handlers:

- application/json bodies are decoded into an object or array
- multipart/form-data file parts are registered by field name
- application/x-www-form-urlencoded fields are extracted
- any other content type is buffered as raw bytes

Oversized bodies are answered with 413, non-container JSON with 400 and malformed
JSON with 400 carrying the byte offset of the syntax error.

All configuration is done through YAML configuration files or BODYINGEST_*
environment variables. Use --config to specify a configuration file.`,
		RunE: runServer,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file (YAML format)")
}

func initConfig() {
	config.InitConfig(cfgFile)
}

func setupLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"version":   version,
		"commit":    commit,
		"buildTime": buildTime,
	}).Info("Body Ingest build information")

	if !cfg.IsBodyLimitEnabled() {
		logrus.Warn("Body size limit is disabled, request bodies are accepted without bound")
	}

	monitoring.SetServerInfo(version, commit, buildTime)

	apiServer := server.NewServer(cfg, health.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return apiServer.Start(ctx)
	})

	if cfg.Monitoring.Enabled {
		metricsServer := monitoring.NewServer(&monitoring.Config{
			BindAddress: cfg.Monitoring.BindAddress,
			MetricsPath: cfg.Monitoring.MetricsPath,
		})
		g.Go(func() error {
			return metricsServer.Start(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("Shutdown initiated, stopping servers")
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logrus.Info("Server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
