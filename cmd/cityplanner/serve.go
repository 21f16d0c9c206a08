// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/cityplanner/cityplanner/internal/api"
	"github.com/cityplanner/cityplanner/internal/auth"
	authpg "github.com/cityplanner/cityplanner/internal/auth/postgres"
	"github.com/cityplanner/cityplanner/internal/config"
	"github.com/cityplanner/cityplanner/internal/logging"
	"github.com/cityplanner/cityplanner/internal/observability"
	"github.com/cityplanner/cityplanner/internal/planning"
	planningpg "github.com/cityplanner/cityplanner/internal/planning/postgres"
	"github.com/cityplanner/cityplanner/internal/store"
	"github.com/cityplanner/cityplanner/pkg/errutil"
)

const (
	serviceName      = "cityplanner"
	readinessTimeout = 2 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server. Configuration is validated before any
listener is bound; an invalid configuration aborts startup.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	}
	deps.setDefaults()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return oops.Code(config.CodeInvalid).Wrap(err)
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, level)
	logger.Info("starting cityplanner",
		"version", version,
		"http_addr", cfg.HTTP.Addr,
		"database", cfg.Database,
		"auth", cfg.Auth,
	)

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(deps, cfg.Database.URL); err != nil {
			return err
		}
	}

	poolCfg := store.DefaultPoolConfig()
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.ConnectRetries = cfg.Database.ConnectRetries
	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, poolCfg)
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr == "" {
		// Nothing scrapes them, but handlers still record.
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	} else {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, observability.PingReadiness(db, readinessTimeout))
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVER_START_FAILED").With("server", "observability").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	authService, err := newAuthService(cfg, db, logger, metrics)
	if err != nil {
		stopObservability(obsServer, cfg.HTTP.ShutdownTimeout)
		return err
	}
	planningService, err := newPlanningService(db, logger)
	if err != nil {
		stopObservability(obsServer, cfg.HTTP.ShutdownTimeout)
		return err
	}

	apiServer, err := deps.APIServerFactory(api.Config{
		Addr:           cfg.HTTP.Addr,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, api.Deps{
		Auth:     authService,
		Planning: planningService,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		stopObservability(obsServer, cfg.HTTP.ShutdownTimeout)
		return err
	}
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer, cfg.HTTP.ShutdownTimeout)
		return oops.Code("SERVER_START_FAILED").With("server", "api").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("CityPlanner API started")
	logger.Info("api server ready", "addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		errutil.LogError(logger, "error stopping api server", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			errutil.LogError(logger, "error stopping observability server", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func autoMigrate(deps *ServeDeps, databaseURL string) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	slog.Info("applying pending migrations")
	if err := migrator.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	return nil
}

// newAuthService wires the account service onto db.
func newAuthService(cfg *config.Config, db Database, logger *slog.Logger, recorder auth.AttemptRecorder) (*auth.Service, error) {
	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Auth.Argon2.HashParams())
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		return nil, err
	}
	return auth.NewService(
		authpg.NewUserRepository(db),
		hasher,
		tokens,
		cfg.Auth.TokenTTL,
		auth.WithLogger(logger),
		auth.WithAttemptRecorder(recorder),
	)
}

// newPlanningService wires the planning repositories and template catalog onto db.
func newPlanningService(db Database, logger *slog.Logger) (*planning.Service, error) {
	catalog, err := planning.LoadCatalog()
	if err != nil {
		return nil, oops.Code(config.CodeInvalid).With("operation", "load templates").Wrap(err)
	}
	return planning.NewService(planning.ServiceConfig{
		Projects:   planningpg.NewProjectRepository(db),
		Locations:  planningpg.NewLocationRepository(db),
		Roads:      planningpg.NewRoadRepository(db),
		Transactor: planningpg.NewTransactor(db),
		Templates:  catalog,
		Logger:     logger,
	})
}

func stopObservability(s ObservabilityServer, timeout time.Duration) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
