// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/cityplanner/cityplanner/internal/config"
	"github.com/cityplanner/cityplanner/internal/store"
)

// UserDeps contains injectable dependencies for the user command.
type UserDeps struct {
	// DatabaseFactory opens the connection pool.
	// Default: store.Open
	DatabaseFactory func(ctx context.Context, url string, cfg store.PoolConfig) (Database, error)
}

// NewUserCmd creates the user subcommand.
func NewUserCmd() *cobra.Command {
	return newUserCmdWithDeps(nil)
}

func newUserCmdWithDeps(deps *UserDeps) *cobra.Command {
	if deps == nil {
		deps = &UserDeps{}
	}
	if deps.DatabaseFactory == nil {
		deps.DatabaseFactory = openDatabase
	}

	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer user accounts",
		Long: `Administer user accounts. Deactivated users keep their data but
can neither log in nor use previously issued tokens.`,
	}
	config.RegisterFlags(cmd.PersistentFlags())

	setActive := func(active bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return runSetActive(cmd, deps, args[0], active)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "activate <email>",
		Short: "Allow a user to log in",
		Args:  cobra.ExactArgs(1),
		RunE:  setActive(true),
	}, &cobra.Command{
		Use:   "deactivate <email>",
		Short: "Block a user from logging in",
		Args:  cobra.ExactArgs(1),
		RunE:  setActive(false),
	})
	return cmd
}

func runSetActive(cmd *cobra.Command, deps *UserDeps, email string, active bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	poolCfg := store.DefaultPoolConfig()
	poolCfg.MaxConns = 1
	poolCfg.ConnectRetries = cfg.Database.ConnectRetries
	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, poolCfg)
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	svc, err := newAuthService(cfg, db, slog.Default(), nil)
	if err != nil {
		return err
	}
	if err := svc.SetActive(ctx, email, active); err != nil {
		return err
	}

	state := "deactivated"
	if active {
		state = "activated"
	}
	cmd.Printf("User %s %s\n", email, state)
	return nil
}
