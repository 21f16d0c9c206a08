// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

// Package config loads CityPlanner settings from defaults, a YAML file,
// CITYPLANNER_ environment variables and command flags.
package config

import (
	"log/slog"
	"net/url"
	"time"

	"github.com/cityplanner/cityplanner/internal/auth"
)

// Config is the complete server configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Log      LogConfig      `koanf:"log"`
	CORS     CORSConfig     `koanf:"cors"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig configures the PostgreSQL pool.
type DatabaseConfig struct {
	URL            string `koanf:"url"`
	MaxConns       int32  `koanf:"max_conns"`
	ConnectRetries uint64 `koanf:"connect_retries"`
	AutoMigrate    bool   `koanf:"auto_migrate"`
}

// LogValue hides the password in the database URL.
func (d DatabaseConfig) LogValue() slog.Value {
	shown := d.URL
	if u, err := url.Parse(d.URL); err == nil {
		shown = u.Redacted()
	}
	return slog.GroupValue(
		slog.String("url", shown),
		slog.Int("max_conns", int(d.MaxConns)),
		slog.Bool("auto_migrate", d.AutoMigrate),
	)
}

// AuthConfig configures token signing and password hashing.
type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	Issuer    string        `koanf:"issuer"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	Argon2    Argon2Config  `koanf:"argon2"`
}

// LogValue never includes the signing secret.
func (a AuthConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("issuer", a.Issuer),
		slog.Duration("token_ttl", a.TokenTTL),
		slog.Bool("jwt_secret_set", a.JWTSecret != ""),
	)
}

// Argon2Config holds argon2id cost parameters for new digests.
type Argon2Config struct {
	Time      uint32 `koanf:"time"`
	MemoryKiB uint32 `koanf:"memory_kib"`
	Threads   uint8  `koanf:"threads"`
	KeyLen    uint32 `koanf:"key_len"`
}

// HashParams converts to the hasher's parameter type.
func (a Argon2Config) HashParams() auth.HashParams {
	return auth.HashParams{
		Time:      a.Time,
		MemoryKiB: a.MemoryKiB,
		Threads:   a.Threads,
		KeyLen:    a.KeyLen,
	}
}

// LogConfig selects the log format and minimum level.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// CORSConfig lists allowed browser origins as glob patterns.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Default values.
const (
	DefaultHTTPAddr     = ":8000"
	DefaultMetricsAddr  = "127.0.0.1:9100"
	DefaultTokenTTL     = 30 * time.Minute
	DefaultIssuer       = "cityplanner"
	DefaultMaxBodyBytes = 1 << 20
)

// Default returns the configuration used when no source overrides a key.
func Default() *Config {
	params := auth.DefaultHashParams()
	return &Config{
		HTTP: HTTPConfig{
			Addr:            DefaultHTTPAddr,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
		Metrics: MetricsConfig{Addr: DefaultMetricsAddr},
		Database: DatabaseConfig{
			MaxConns:       10,
			ConnectRetries: 5,
			AutoMigrate:    true,
		},
		Auth: AuthConfig{
			Issuer:   DefaultIssuer,
			TokenTTL: DefaultTokenTTL,
			Argon2: Argon2Config{
				Time:      params.Time,
				MemoryKiB: params.MemoryKiB,
				Threads:   params.Threads,
				KeyLen:    params.KeyLen,
			},
		},
		Log:  LogConfig{Format: "json", Level: "info"},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
	}
}
