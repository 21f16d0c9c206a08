// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

// Package api serves the CityPlanner JSON API over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/cityplanner/cityplanner/internal/auth"
	"github.com/cityplanner/cityplanner/internal/planning"
)

// RequestObserver records one served request. Satisfied by
// *observability.Metrics.
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveHTTPRequest(string, string, int, time.Duration) {}

// Config holds listener and request settings.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// Deps holds the services the handlers call.
type Deps struct {
	Auth     *auth.Service
	Planning *planning.Service
	Metrics  RequestObserver
	Logger   *slog.Logger
}

// Server is the public API listener.
type Server struct {
	cfg      Config
	auth     *auth.Service
	planning *planning.Service
	metrics  RequestObserver
	logger   *slog.Logger
	origins  []glob.Glob
	handler  http.Handler

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer builds the API server. Auth and Planning are required.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Auth == nil {
		return nil, oops.Code(auth.CodeConfigInvalid).Errorf("auth service is required")
	}
	if deps.Planning == nil {
		return nil, oops.Code(auth.CodeConfigInvalid).Errorf("planning service is required")
	}

	origins := make([]glob.Glob, 0, len(cfg.AllowedOrigins))
	for _, pattern := range cfg.AllowedOrigins {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, oops.Code(auth.CodeConfigInvalid).With("pattern", pattern).Wrapf(err, "invalid CORS origin pattern")
		}
		origins = append(origins, g)
	}

	s := &Server{
		cfg:      cfg,
		auth:     deps.Auth,
		planning: deps.Planning,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		origins:  origins,
	}
	if s.metrics == nil {
		s.metrics = noopObserver{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the fully wrapped API handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving the API.
// The returned channel receives a serve error, if any, and is closed when
// the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server, waiting for in-flight requests
// until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
