package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/solatis/dialkeeper/internal/core/api"
	"github.com/solatis/dialkeeper/internal/core/auth"
	"github.com/solatis/dialkeeper/internal/core/config"
	"github.com/solatis/dialkeeper/internal/core/db"
	"github.com/solatis/dialkeeper/internal/core/metrics"
	"github.com/solatis/dialkeeper/internal/core/server"
	"github.com/solatis/dialkeeper/internal/core/watch"
	"github.com/solatis/dialkeeper/internal/rules"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC rewrite service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50061, "gRPC server port")
	serveCmd.Flags().String("rules-file", "", "global rule file to load and watch")
	serveCmd.Flags().String("metrics-addr", "", "metrics listen address (empty disables)")
}

// applyServeFlags overrides config values with flags the user set.
func applyServeFlags(cmd *cobra.Command, cfg *config.ServiceConfig) {
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("rules-file") {
		cfg.RulesFile, _ = cmd.Flags().GetString("rules-file")
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, database, queries, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close()
	applyServeFlags(cmd, cfg)

	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no HMAC secrets configured (set DK_HMAC_SECRET environment variable)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	engine := rules.NewEngine()
	store := db.NewRuleStore(queries)
	n, err := installStoredRuleSets(ctx, store, engine, m, logger)
	if err != nil {
		return fmt.Errorf("failed to load stored rule sets: %w", err)
	}
	logger.Info("stored rule sets installed", "count", n)

	// The rule file is installed last so it wins over a stored global set.
	if cfg.RulesFile != "" {
		watcher, err := watch.NewRuleFileWatcher(cfg.RulesFile, engine, cfg.WatchDebounce, m, logger)
		if err != nil {
			return fmt.Errorf("failed to create rule file watcher: %w", err)
		}
		defer watcher.Stop()

		if _, err := watcher.Reload(); err != nil {
			return fmt.Errorf("failed to load rule file: %w", err)
		}
		if cfg.WatchRules {
			if err := watcher.Start(ctx); err != nil {
				return err
			}
		}
	}

	service, err := api.NewRewriteService(engine, store, cfg, m, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	authenticator := auth.NewAuthenticator(secrets, queries)

	grpcServer, err := server.NewGRPCServer(cfg, service, authenticator, m, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errChan := make(chan error, 2)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg, logger); err != nil {
				errChan <- fmt.Errorf("metrics endpoint: %w", err)
			}
		}()
	}

	logger.Info("starting DialKeeper rewrite service", "version", Version, "addr", grpcServer.Addr())
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		return grpcServer.Shutdown(context.Background())
	}
}
