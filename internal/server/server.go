// Package server wires the router, handlers and middleware into an HTTP
// server and owns its lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/conneroisu/waha/internal/config"
	"github.com/conneroisu/waha/internal/diagnostic"
	apperrors "github.com/conneroisu/waha/internal/errors"
	"github.com/conneroisu/waha/internal/logging"
	"github.com/conneroisu/waha/internal/middleware"
	"github.com/conneroisu/waha/internal/renderer"
	"github.com/conneroisu/waha/internal/todo"
	"github.com/conneroisu/waha/internal/websocket"
)

// Dependencies are the collaborators a Server is built from. Hub is only
// required when development.hot_reload is enabled. ErrorLog receives
// net/http's own errors; nil leaves them on the standard logger.
type Dependencies struct {
	Config   *config.Config
	Store    *todo.Store
	Renderer renderer.Renderer
	Brancher *diagnostic.Brancher
	Logger   logging.Logger
	Tracer   trace.Tracer
	Hub      *websocket.Hub
	ErrorLog *log.Logger
}

// Server serves the pages, the api group and static assets.
type Server struct {
	config   *config.Config
	store    *todo.Store
	renderer renderer.Renderer
	brancher *diagnostic.Brancher
	logger   logging.Logger
	tracer   trace.Tracer
	hub      *websocket.Hub
	errorLog *log.Logger

	httpServer   *http.Server
	listener     net.Listener
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// New creates a server. It fails if a required dependency is missing.
func New(deps Dependencies) (*Server, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("server: config is required")
	case deps.Store == nil:
		return nil, errors.New("server: todo store is required")
	case deps.Renderer == nil:
		return nil, errors.New("server: renderer is required")
	case deps.Brancher == nil:
		return nil, errors.New("server: diagnostic brancher is required")
	case deps.Logger == nil:
		return nil, errors.New("server: logger is required")
	case deps.Tracer == nil:
		return nil, errors.New("server: tracer is required")
	case deps.Config.Development.HotReload && deps.Hub == nil:
		return nil, errors.New("server: hot reload requires a websocket hub")
	}

	return &Server{
		config:   deps.Config,
		store:    deps.Store,
		renderer: deps.Renderer,
		brancher: deps.Brancher,
		logger:   deps.Logger.WithComponent("server"),
		tracer:   deps.Tracer,
		hub:      deps.Hub,
		errorLog: deps.ErrorLog,
	}, nil
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() (http.Handler, error) {
	mux, err := s.routes()
	if err != nil {
		return nil, err
	}

	chain := middleware.NewMiddlewareChain(middleware.Dependencies{
		Tracer: s.tracer,
		Logger: s.logger,
	})

	return chain.Apply(mux), nil
}

// Start listens on the configured address and serves until ctx is cancelled
// or Shutdown is called. Cancelling ctx drains in-flight requests within
// server.shutdown_timeout.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info(ctx, "initializing router")

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return apperrors.NewInternalError(apperrors.ErrCodeServerStart,
			fmt.Sprintf("listen on %s", s.config.Server.Addr()), err)
	}

	s.serverMutex.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          s.errorLog,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, fmt.Sprintf("router initialized, listening on port %d", ln.Addr().(*net.TCPAddr).Port),
		"addr", ln.Addr().String(),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		<-errCh
		return nil
	}
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down server")

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}
