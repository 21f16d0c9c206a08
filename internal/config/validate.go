// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package config

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/cityplanner/cityplanner/internal/auth"
	"github.com/cityplanner/cityplanner/internal/logging"
)

// CodeInvalid marks configuration errors. They abort startup.
const CodeInvalid = auth.CodeConfigInvalid

// Validate checks that the configuration can start a server.
// The first problem found is returned with the offending key.
func (c *Config) Validate() error {
	switch {
	case c.HTTP.Addr == "":
		return invalid("http.addr", "is required")
	case c.HTTP.MaxBodyBytes <= 0:
		return invalid("http.max_body_bytes", "must be positive")
	case c.HTTP.ShutdownTimeout <= 0:
		return invalid("http.shutdown_timeout", "must be positive")
	case c.Database.URL == "":
		return invalid("database.url", "is required (or set DATABASE_URL)")
	case c.Database.MaxConns < 1:
		return invalid("database.max_conns", "must be at least 1")
	case c.Auth.JWTSecret == "":
		return invalid("auth.jwt_secret", "is required")
	case len(c.Auth.JWTSecret) < auth.MinSecretLength:
		return oops.Code(CodeInvalid).
			With("key", "auth.jwt_secret").
			With("min_length", auth.MinSecretLength).
			Errorf("auth.jwt_secret must be at least %d bytes", auth.MinSecretLength)
	case c.Auth.TokenTTL <= 0:
		return invalid("auth.token_ttl", "must be positive")
	case c.Log.Format != "json" && c.Log.Format != "text":
		return oops.Code(CodeInvalid).With("key", "log.format").Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}

	if err := c.Auth.Argon2.HashParams().Validate(); err != nil {
		return oops.Code(CodeInvalid).With("key", "auth.argon2").Wrap(err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code(CodeInvalid).With("key", "log.level").Errorf("log.level %q is not debug, info, warn or error", c.Log.Level)
	}
	for _, pattern := range c.CORS.AllowedOrigins {
		if _, err := glob.Compile(pattern); err != nil {
			return oops.Code(CodeInvalid).With("key", "cors.allowed_origins").With("pattern", pattern).Wrap(err)
		}
	}
	return nil
}

func invalid(key, msg string) error {
	return oops.Code(CodeInvalid).With("key", key).Errorf("%s %s", key, msg)
}
