// Package main is the entry point for the log-packet distributor.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mihika12345b/log-distributor/internal/config"
	"github.com/mihika12345b/log-distributor/internal/dispatcher"
	"github.com/mihika12345b/log-distributor/internal/engine"
	"github.com/mihika12345b/log-distributor/internal/healthmonitor"
	"github.com/mihika12345b/log-distributor/internal/httpapi"
	"github.com/mihika12345b/log-distributor/internal/registry"
	"github.com/mihika12345b/log-distributor/internal/transport"
	"github.com/mihika12345b/log-distributor/pkg/logger"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	configPath  string
	targetsPath string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "distributor",
		Short:   "Log-packet distributor: ingest and forward log packets to weighted analyzer targets",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&targetsPath, "targets-file", "", "path to a standalone YAML file overriding the target list")

	root.AddCommand(serveCmd())
	root.AddCommand(validateConfigCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the distributor's intake HTTP surface and dispatch engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func validateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate the configuration without starting the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEffectiveConfig()
			if err != nil {
				return err
			}
			fmt.Printf("config OK: %d target(s), %d worker(s), capacity %d\n",
				len(cfg.Targets), cfg.Workers, cfg.Capacity)
			return nil
		},
	}
}

// loadEffectiveConfig loads the base config, then, if --targets-file
// was given, overrides its target list with that file's contents
// before re-validating. This lets operators manage targets as a
// separately-rotated file without touching the rest of the engine
// config.
func loadEffectiveConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if targetsPath != "" {
		targets, err := config.LoadTargetsFile(targetsPath)
		if err != nil {
			return nil, fmt.Errorf("load targets file: %w", err)
		}
		cfg.Targets = targets
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

func runServe(ctx context.Context) error {
	cfg, err := loadEffectiveConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		Filename:   cfg.Log.Filename,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	log.Info("starting log-packet distributor", "version", version, "targets", len(cfg.Targets))

	targets := make([]registry.TargetConfig, 0, len(cfg.Targets))
	for _, t := range cfg.Targets {
		targets = append(targets, registry.TargetConfig{Name: t.Name, URL: t.URL, Weight: t.Weight})
	}

	promReg := prometheus.NewRegistry()
	adapter := transport.NewHTTPAdapter(0, 0)

	eng, err := engine.New(engine.Config{
		Targets:  targets,
		Workers:  cfg.Workers,
		Capacity: cfg.Capacity,
		Dispatcher: dispatcher.Config{
			MaxAttempts: cfg.MaxAttempts(),
			BaseDelay:   cfg.BaseDelay,
			SendTimeout: cfg.SendTimeout,
		},
		Health: healthmonitor.Config{
			Interval:     cfg.HealthInterval,
			ProbeTimeout: cfg.ProbeTimeout,
		},
	}, adapter, promReg, log)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	eng.Start(runCtx)

	router := httpapi.NewRouter(eng, promReg, log)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("ingestion surface listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
		}
	}()

	<-quit
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", "error", err)
	}

	cancel()
	if !eng.Shutdown(cfg.Server.GracefulShutdownTimeout) {
		log.Warn("worker pool did not drain before timeout")
	}

	log.Info("distributor stopped")
	return nil
}
