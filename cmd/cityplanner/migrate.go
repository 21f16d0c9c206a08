// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/cityplanner/cityplanner/internal/config"
	"github.com/cityplanner/cityplanner/internal/store"
)

// SchemaMigrator wraps the methods used from store.Migrator.
type SchemaMigrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory creates a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (SchemaMigrator, error)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmdWithDeps(nil)
}

func newMigrateCmdWithDeps(deps *MigrateDeps) *cobra.Command {
	if deps == nil {
		deps = &MigrateDeps{}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (SchemaMigrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		Long: `Apply, roll back or inspect the embedded PostgreSQL schema migrations.
The database URL comes from --database-url, the config file,
CITYPLANNER_DATABASE__URL or DATABASE_URL.`,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL URL (default: $DATABASE_URL)")

	withMigrator := func(fn func(cmd *cobra.Command, m SchemaMigrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL(cmd)
			if err != nil {
				return err
			}
			m, err := deps.MigratorFactory(url)
			if err != nil {
				return oops.With("operation", "create migrator").Wrap(err)
			}
			defer func() {
				if closeErr := m.Close(); closeErr != nil {
					slog.Warn("failed to close migrator", "error", closeErr)
				}
			}()
			return fn(cmd, m, args)
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m SchemaMigrator, _ []string) error {
			cmd.Println("Running migrations...")
			if err := m.Up(); err != nil {
				return oops.With("operation", "migrate up").Wrap(err)
			}
			cmd.Println("Migrations completed successfully")
			return nil
		}),
	}

	var steps int
	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (one step by default)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m SchemaMigrator, _ []string) error {
			if all {
				if err := m.Down(); err != nil {
					return oops.With("operation", "migrate down").Wrap(err)
				}
				cmd.Println("All migrations rolled back")
				return nil
			}
			if steps < 1 {
				return oops.Code("INVALID_STEPS").With("steps", steps).Errorf("--steps must be at least 1")
			}
			if err := m.Steps(-steps); err != nil {
				return oops.With("operation", "migrate down").With("steps", steps).Wrap(err)
			}
			cmd.Printf("Rolled back %d migration(s)\n", steps)
			return nil
		}),
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE:  withMigrator(printStatus),
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m SchemaMigrator, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			cmd.Println(formatVersion(v, dirty))
			return nil
		}),
	}

	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Long: `Set the recorded schema version and clear the dirty flag without
running any migration. Use after fixing a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(func(cmd *cobra.Command, m SchemaMigrator, _ []string) error {
				if err := m.Force(v); err != nil {
					return err
				}
				cmd.Printf("Schema version forced to %d\n", v)
				return nil
			})(cmd, args)
		},
	}

	cmd.AddCommand(up, down, status, versionCmd, force)
	return cmd
}

func printStatus(cmd *cobra.Command, m SchemaMigrator, _ []string) error {
	st, err := m.Status()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tNAME\tSTATE")
	row := func(v uint, state string) {
		name, nameErr := store.MigrationName(v)
		if nameErr != nil {
			name = "?"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", v, name, state)
	}
	for _, v := range st.Applied {
		state := "applied"
		if v == st.Version && st.Dirty {
			state = "dirty"
		}
		row(v, state)
	}
	for _, v := range st.Pending {
		row(v, "pending")
	}
	if err := w.Flush(); err != nil {
		return oops.With("operation", "write status").Wrap(err)
	}

	cmd.Printf("\nCurrent version: %s, %d pending\n", formatVersion(st.Version, st.Dirty), len(st.Pending))
	return nil
}

// parseForceVersion reads a leading integer from s. Trailing text is ignored.
func parseForceVersion(s string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, oops.Code("INVALID_VERSION").
			With("input", s).
			Wrapf(err, "version must be an integer")
	}
	return v, nil
}

// databaseURL resolves the database URL without requiring the rest of the
// server configuration.
func databaseURL(cmd *cobra.Command) (string, error) {
	cfg, err := config.Load(config.Discover(configFile), cmd.Flags())
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", oops.Code(config.CodeInvalid).
			With("key", "database.url").
			Errorf("database.url is required (or set DATABASE_URL)")
	}
	return cfg.Database.URL, nil
}

// formatVersion renders a schema version, marking a dirty one.
func formatVersion(v uint, dirty bool) string {
	s := strconv.FormatUint(uint64(v), 10)
	if dirty {
		s += " (dirty)"
	}
	return s
}
