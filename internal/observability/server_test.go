// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func ready(context.Context) error { return nil }

func startServer(t *testing.T, checker ReadinessChecker) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", checker)
	_, err := server.Start()
	require.NoError(t, err, "failed to start server")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
		http.DefaultClient.CloseIdleConnections()
	})
	require.NotEmpty(t, server.Addr(), "server address is empty")
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + server.Addr() + path)
	require.NoError(t, err, "failed to GET %s", path)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	return resp.StatusCode, string(body)
}

func TestServer_Metrics(t *testing.T) {
	server := startServer(t, ready)

	status, body := get(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "# TYPE")
	assert.Contains(t, body, "go_")
	assert.Contains(t, body, "process_")

	metrics := server.Metrics()
	metrics.ObserveHTTPRequest(http.MethodGet, "GET /api/projects", http.StatusOK, 12*time.Millisecond)
	metrics.RecordAuthAttempt("login", "success")

	_, body = get(t, server, "/metrics")
	assert.Contains(t, body, "cityplanner_http_requests_total")
	assert.Contains(t, body, "cityplanner_http_request_duration_seconds")
	assert.Contains(t, body, "cityplanner_auth_attempts_total")
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAuthAttempt("login", "invalid_credentials")
	m.RecordAuthAttempt("login", "invalid_credentials")
	m.ObserveHTTPRequest(http.MethodPost, "POST /api/auth/token", http.StatusUnauthorized, time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.AuthAttemptsTotal.WithLabelValues("login", "invalid_credentials")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "POST /api/auth/token", "401")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestServer_LivenessReturns200(t *testing.T) {
	server := startServer(t, nil)

	status, body := get(t, server, "/healthz/liveness")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", strings.TrimSpace(body))
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checker    ReadinessChecker
		wantStatus int
		wantBody   string
	}{
		{name: "ready", checker: ready, wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "nil checker", checker: nil, wantStatus: http.StatusOK, wantBody: "ok"},
		{
			name:       "not ready",
			checker:    func(context.Context) error { return errors.New("database down") },
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "not ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, tt.checker)
			status, body := get(t, server, "/healthz/readiness")
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantBody, strings.TrimSpace(body))
		})
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error {
	if p.err != nil {
		return p.err
	}
	return ctx.Err()
}

func TestPingReadiness(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, PingReadiness(stubPinger{}, time.Second)(ctx))

	err := PingReadiness(stubPinger{err: errors.New("refused")}, time.Second)(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestServer_DoubleStartFails(t *testing.T) {
	server := startServer(t, nil)

	_, err := server.Start()
	assert.Error(t, err, "expected error on double start")
}

func TestServer_StopIdempotent(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Stop(ctx), "stop without start should not error")
}

func TestServer_ErrorChannelReportsServeErrors(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	errCh, err := server.Start()
	require.NoError(t, err)
	require.NotEmpty(t, server.Addr())

	// Closing the listener underneath Serve makes it fail.
	require.NotNil(t, server.listener)
	_ = server.listener.Close()

	select {
	case serveErr := <-errCh:
		assert.Error(t, serveErr)
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for error on error channel")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Stop(ctx)
}

func TestServer_ErrorChannelClosesOnNormalShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)

	errCh, err := server.Start()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	select {
	case err, ok := <-errCh:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for error channel to close")
	}
}
