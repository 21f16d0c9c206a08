// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package main

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cityplanner/cityplanner/internal/api"
	"github.com/cityplanner/cityplanner/internal/observability"
	"github.com/cityplanner/cityplanner/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the connection pool.
	// Default: store.Open
	DatabaseFactory func(ctx context.Context, url string, cfg store.PoolConfig) (Database, error)

	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (AutoMigrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// APIServerFactory creates the public API server.
	// Default: api.NewServer
	APIServerFactory func(cfg api.Config, deps api.Deps) (APIServer, error)
}

// Database is the part of *pgxpool.Pool the commands use.
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// AutoMigrator applies pending migrations on startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// APIServer interface wraps the methods used from api.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

func (d *ServeDeps) setDefaults() {
	if d.DatabaseFactory == nil {
		d.DatabaseFactory = openDatabase
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(url string) (AutoMigrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if d.APIServerFactory == nil {
		d.APIServerFactory = func(cfg api.Config, deps api.Deps) (APIServer, error) {
			s, err := api.NewServer(cfg, deps)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}
}

// openDatabase avoids handing back a typed nil pool on error.
func openDatabase(ctx context.Context, url string, cfg store.PoolConfig) (Database, error) {
	pool, err := store.Open(ctx, url, cfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}
