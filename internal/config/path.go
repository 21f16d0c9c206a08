// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package config

import (
	"os"
	"path/filepath"
)

const (
	appName  = "cityplanner"
	fileName = "config.yaml"
)

// Dir returns the CityPlanner config directory.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// Discover returns path when it is set. Otherwise it returns config.yaml in
// Dir if that file exists, or "" so Load skips the file layer.
func Discover(path string) string {
	if path != "" {
		return path
	}
	candidate := filepath.Join(Dir(), fileName)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return ""
}
