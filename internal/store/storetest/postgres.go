// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

//go:build integration

// Package storetest starts migrated PostgreSQL containers for integration tests.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cityplanner/cityplanner/internal/store"
)

// Postgres is a throwaway database with every migration applied.
type Postgres struct {
	URL  string
	Pool *pgxpool.Pool

	container *postgres.PostgresContainer
}

// StartPostgres runs a postgres:16-alpine container, migrates it and opens a pool.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("cityplanner_test"),
		postgres.WithUsername("cityplanner"),
		postgres.WithPassword("cityplanner"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, oops.With("operation", "start postgres container").Wrap(err)
	}

	pg := &Postgres{container: container}
	pg.URL, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pg.Close(ctx)
		return nil, oops.With("operation", "get connection string").Wrap(err)
	}

	migrator, err := store.NewMigrator(pg.URL)
	if err != nil {
		pg.Close(ctx)
		return nil, err
	}
	err = migrator.Up()
	_ = migrator.Close()
	if err != nil {
		pg.Close(ctx)
		return nil, err
	}

	pg.Pool, err = store.Open(ctx, pg.URL, store.DefaultPoolConfig())
	if err != nil {
		pg.Close(ctx)
		return nil, err
	}
	return pg, nil
}

// Truncate empties every application table.
func (p *Postgres) Truncate(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `TRUNCATE roads, locations, projects, users`)
	if err != nil {
		return oops.With("operation", "truncate tables").Wrap(err)
	}
	return nil
}

// Close closes the pool and terminates the container.
func (p *Postgres) Close(ctx context.Context) {
	if p.Pool != nil {
		p.Pool.Close()
	}
	if p.container != nil {
		_ = p.container.Terminate(ctx)
	}
}
