// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityplanner/cityplanner/internal/api"
	"github.com/cityplanner/cityplanner/internal/config"
	"github.com/cityplanner/cityplanner/internal/observability"
	"github.com/cityplanner/cityplanner/pkg/errutil"
)

type serveHarness struct {
	db        *mockDB
	dbCalled  atomic.Bool
	migrator  *mockMigrator
	obs       *mockObservabilityServer
	apiServer *mockAPIServer
	deps      *ServeDeps
}

func newServeHarness(t *testing.T) *serveHarness {
	t.Helper()
	h := &serveHarness{
		db:        newMockDB(t),
		migrator:  &mockMigrator{},
		obs:       &mockObservabilityServer{},
		apiServer: newMockAPIServer(),
	}
	h.deps = &ServeDeps{
		DatabaseFactory: dbFactory(h.db, &h.dbCalled),
		MigratorFactory: func(string) (AutoMigrator, error) {
			return h.migrator, nil
		},
		ObservabilityServerFactory: func(_ string, readiness observability.ReadinessChecker) ObservabilityServer {
			h.obs.readiness = readiness
			return h.obs
		},
		APIServerFactory: h.apiServer.factory,
	}
	return h
}

func newServeTestCmd(t *testing.T, args ...string) (*bytes.Buffer, func(ctx context.Context, deps *ServeDeps) error) {
	t.Helper()
	cmd := NewServeCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	require.NoError(t, cmd.ParseFlags(args))
	return buf, func(ctx context.Context, deps *ServeDeps) error {
		return runServeWithDeps(ctx, cmd, deps)
	}
}

func TestServe_InvalidConfigAbortsBeforeStartup(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T)
		args  []string
	}{
		{
			name: "short jwt secret",
			setup: func(t *testing.T) {
				t.Setenv("CITYPLANNER_AUTH__JWT_SECRET", "too-short")
			},
		},
		{
			name: "missing database url",
			setup: func(t *testing.T) {
				t.Setenv("DATABASE_URL", "")
			},
		},
		{
			name: "bad log format flag",
			args: []string{"--log-format", "xml"},
		},
		{
			name: "bad argon2 parameters",
			setup: func(t *testing.T) {
				t.Setenv("CITYPLANNER_AUTH__ARGON2__THREADS", "0")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setServeEnv(t)
			if tt.setup != nil {
				tt.setup(t)
			}
			h := newServeHarness(t)
			_, run := newServeTestCmd(t, tt.args...)

			err := run(context.Background(), h.deps)

			require.Error(t, err)
			errutil.AssertErrorCode(t, err, config.CodeInvalid)
			assert.False(t, h.migrator.upCalled, "migrations must not run")
			assert.False(t, h.dbCalled.Load(), "database must not be opened")
			assert.False(t, h.obs.started.Load(), "no listener may be bound")
		})
	}
}

func TestServe_StartsAndShutsDownOnCancel(t *testing.T) {
	setServeEnv(t)
	h := newServeHarness(t)
	buf, run := newServeTestCmd(t, "--http-addr", "127.0.0.1:8088")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, h.deps) }()

	select {
	case <-h.apiServer.started:
	case err := <-done:
		t.Fatalf("serve returned before starting: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("api server was not started")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down")
	}

	assert.True(t, h.migrator.upCalled)
	assert.True(t, h.migrator.closeCalled)
	assert.True(t, h.obs.started.Load())
	assert.True(t, h.obs.stopped.Load())
	assert.True(t, h.apiServer.stopped.Load())
	assert.True(t, h.db.closed.Load())
	assert.Contains(t, buf.String(), "CityPlanner API started")

	assert.Equal(t, "127.0.0.1:8088", h.apiServer.cfg.Addr)
	assert.Equal(t, int64(config.DefaultMaxBodyBytes), h.apiServer.cfg.MaxBodyBytes)
	assert.NotNil(t, h.apiServer.deps.Auth)
	assert.NotNil(t, h.apiServer.deps.Planning)
	assert.Same(t, h.obs.Metrics(), h.apiServer.deps.Metrics)
}

func TestServe_ReadinessPingsDatabase(t *testing.T) {
	setServeEnv(t)
	h := newServeHarness(t)
	_, run := newServeTestCmd(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- run(ctx, h.deps) }()
	<-h.apiServer.started

	h.db.ExpectPing()
	require.NoError(t, h.obs.readiness(context.Background()))

	h.db.ExpectPing().WillReturnError(errors.New("connection refused"))
	err := h.obs.readiness(context.Background())
	errutil.AssertErrorCode(t, err, "NOT_READY")

	cancel()
	require.NoError(t, <-done)
	assert.NoError(t, h.db.ExpectationsWereMet())
}

func TestServe_AutoMigrateDisabled(t *testing.T) {
	setServeEnv(t)
	h := newServeHarness(t)
	_, run := newServeTestCmd(t, "--auto-migrate=false", "--metrics-addr", "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, h.deps) }()
	<-h.apiServer.started
	cancel()
	require.NoError(t, <-done)

	assert.False(t, h.migrator.upCalled)
	assert.False(t, h.obs.started.Load(), "metrics listener is disabled")
	assert.NotNil(t, h.apiServer.deps.Metrics)
}

func TestServe_AutoMigrateFailureAborts(t *testing.T) {
	setServeEnv(t)
	h := newServeHarness(t)
	h.migrator.upError = errors.New("dirty database")
	_, run := newServeTestCmd(t)

	err := run(context.Background(), h.deps)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dirty database")
	assert.True(t, h.migrator.closeCalled)
	assert.False(t, h.dbCalled.Load())
}

func TestServe_APIStartFailureStopsObservability(t *testing.T) {
	setServeEnv(t)
	h := newServeHarness(t)
	h.apiServer.startErr = errors.New("address already in use")
	_, run := newServeTestCmd(t)

	err := run(context.Background(), h.deps)

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "SERVER_START_FAILED")
	assert.True(t, h.obs.stopped.Load())
	assert.True(t, h.db.closed.Load())
}

func TestServe_ServerErrorTriggersShutdown(t *testing.T) {
	setServeEnv(t)
	h := newServeHarness(t)
	_, run := newServeTestCmd(t)

	done := make(chan error, 1)
	go func() { done <- run(context.Background(), h.deps) }()
	<-h.apiServer.started

	h.apiServer.errCh <- errors.New("listener died")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server error did not trigger shutdown")
	}
	assert.True(t, h.apiServer.stopped.Load())
}

func TestServeDeps_DefaultAPIServerRequiresServices(t *testing.T) {
	deps := &ServeDeps{}
	deps.setDefaults()
	srv, err := deps.APIServerFactory(api.Config{}, api.Deps{})
	require.Error(t, err)
	assert.Nil(t, srv)
	errutil.AssertErrorCode(t, err, config.CodeInvalid)
}

func TestMonitorServerErrors(t *testing.T) {
	t.Run("error cancels context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error, 1)
		errCh <- errors.New("boom")

		monitorServerErrors(ctx, cancel, errCh, "test")
		assert.Error(t, ctx.Err())
	})

	t.Run("closed channel leaves context alone", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		errCh := make(chan error)
		close(errCh)

		monitorServerErrors(ctx, cancel, errCh, "test")
		assert.NoError(t, ctx.Err())
	})

	t.Run("returns when context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		monitorServerErrors(ctx, cancel, make(chan error), "test")
	})
}
