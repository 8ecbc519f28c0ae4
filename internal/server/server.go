// Package server assembles the reference sync server: REST record
// collections, the realtime WebSocket endpoint and the middleware chain.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/gophsync/internal/server/handlers"
	"github.com/iudanet/gophsync/internal/server/middleware"
	"github.com/iudanet/gophsync/internal/server/realtime"
	"github.com/iudanet/gophsync/internal/server/storage"
)

// Defaults of Config.
const (
	DefaultAddr            = ":8080"
	DefaultRateLimit       = 600
	DefaultRateWindow      = time.Minute
	DefaultShutdownTimeout = 10 * time.Second
	HealthPath             = "/api/v1/health"
	WebSocketPath          = "/ws"
)

// Store is the persistence the server needs.
type Store interface {
	storage.RecordStorage
	handlers.Pinger
}

// Config configures Server.
type Config struct {
	Addr            string
	Version         string
	AllowedOrigins  []string
	JWT             handlers.JWTConfig
	MaxLimit        int
	RateLimit       int
	RateWindow      time.Duration
	PingInterval    time.Duration
	ShutdownTimeout time.Duration
}

func (c *Config) withDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateWindow <= 0 {
		c.RateWindow = DefaultRateWindow
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Server is the sync server.
type Server struct {
	logger  *slog.Logger
	hub     *realtime.Hub
	limiter *middleware.RateLimiter
	handler http.Handler
	cfg     Config
}

// New wires handlers, hub and middleware around store.
func New(cfg Config, store Store, logger *slog.Logger) *Server {
	cfg.withDefaults()

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		limiter: middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, logger),
	}

	records := handlers.NewRecordsHandler(logger, store, handlers.NotifierFunc(func(ctx context.Context, change handlers.Change) {
		s.hub.Notify(ctx, change)
	}), cfg.MaxLimit)

	// запросы через WebSocket проходят те же обработчики, владелец уже в контексте
	dispatch := chi.NewRouter()
	dispatch.Use(middleware.RecoveryMiddleware(logger))
	dispatch.Route("/api/v1", records.Routes)

	hubOpts := []realtime.Option{realtime.WithPingInterval(cfg.PingInterval)}
	if len(cfg.AllowedOrigins) > 0 {
		hubOpts = append(hubOpts, realtime.WithOriginPatterns(cfg.AllowedOrigins...))
	}
	s.hub = realtime.NewHub(dispatch, logger, hubOpts...)

	health := handlers.NewHealthHandler(logger, store, cfg.Version)

	r := chi.NewRouter()
	r.Use(middleware.CorrelationMiddleware)
	r.Use(middleware.LoggingWithSkip(logger, []string{HealthPath}))
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Get(HealthPath, health.Health)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(logger, cfg.JWT))
		r.Use(middleware.RateLimitMiddleware(s.limiter))

		r.Route("/api/v1", records.Routes)
		r.Handle(WebSocketPath, s.hub)
	})

	s.handler = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close releases the hub and the rate limiter when the server is used through Handler only.
func (s *Server) Close() {
	s.hub.Close()
	s.limiter.Stop()
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Server listening", "addr", ln.Addr().String(), "auth", s.cfg.JWT.Enabled())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down server")

		// WebSocket соединения hijacked, Shutdown их не ждет
		s.hub.Close()
		s.limiter.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
