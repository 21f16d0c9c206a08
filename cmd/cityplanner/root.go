// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/cityplanner/cityplanner/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the CityPlanner CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cityplanner",
		Short: "CityPlanner - planning backend for 3D city and campus models",
		Long: `CityPlanner serves the account and planning API behind the 3D
city and campus modelling frontend: projects seeded from templates,
locations, and the roads between them, stored in PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/cityplanner/config.yaml if present)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewUserCmd())

	return cmd
}

// loadConfig reads and validates configuration for cmd. Flags registered
// with config.RegisterFlags on cmd override the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Discover(configFile), cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
