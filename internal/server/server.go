package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/pageindex/internal/api"
	"github.com/jackzampolin/pageindex/internal/config"
	"github.com/jackzampolin/pageindex/internal/home"
	"github.com/jackzampolin/pageindex/internal/jobs"
	"github.com/jackzampolin/pageindex/internal/pageindex"
	"github.com/jackzampolin/pageindex/internal/server/endpoints"
	"github.com/jackzampolin/pageindex/internal/svcctx"
)

// writeGrace is added to the extraction timeout to leave room for the upload
// and the response.
const writeGrace = 30 * time.Second

// Server is the PageIndex HTTP server.
// It owns the extraction worker pool, starting it on server start
// and stopping it after the HTTP server has drained.
type Server struct {
	httpServer *http.Server
	pool       *jobs.CPUWorkerPool
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds the long-lived services; each request gets a copy
	// carrying its own logger and the current options.
	services *svcctx.Services
	options  atomic.Pointer[pageindex.Options]

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 0.0.0.0)
	Host string
	// Port is the port to listen on (default: 8000)
	Port string
	// Run configures the /run endpoint: upload limit, timeout, staging dir.
	Run endpoints.RunEndpoint
	// Extractor builds the table of contents (default: an Engine without an LLM)
	Extractor pageindex.Extractor
	// Options are the extraction options shared by all requests (default: pageindex.DefaultOptions)
	Options *pageindex.Options
	// Workers is the number of concurrent extractions (default: one per CPU)
	Workers int
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// LevelVar, when set, is updated when log.level changes in the config file
	LevelVar *slog.LevelVar
	// Home is the pageindex home directory
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Options == nil {
		cfg.Options = pageindex.DefaultOptions()
	}
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	if cfg.Extractor == nil {
		cfg.Extractor = pageindex.NewEngine(pageindex.EngineConfig{Logger: cfg.Logger})
	}

	pool := jobs.NewCPUWorkerPool(jobs.CPUWorkerPoolConfig{
		Name:        "pageindex",
		Logger:      cfg.Logger,
		WorkerCount: cfg.Workers,
	})

	s := &Server{
		pool:      pool,
		configMgr: cfg.ConfigManager,
		logger:    cfg.Logger,
		services: &svcctx.Services{
			Extractor: cfg.Extractor,
			Pool:      pool,
			Logger:    cfg.Logger,
			Home:      cfg.Home,
		},
	}
	s.options.Store(cfg.Options)

	// Options and log level follow the config file; server settings need a restart.
	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			s.reload(c, cfg.LevelVar)
		})
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{Run: cfg.Run}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	var writeTimeout time.Duration
	if cfg.Run.Timeout > 0 {
		writeTimeout = cfg.Run.Timeout + writeGrace
	}

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           s.withServices(mux),
		ReadHeaderTimeout: 30 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// reload applies a changed config file.
func (s *Server) reload(c *config.Config, levelVar *slog.LevelVar) {
	opts, err := c.PageIndex.ToOptions()
	if err != nil {
		s.logger.Warn("ignoring invalid pageindex options", "error", err)
	} else {
		s.options.Store(opts)
	}

	if levelVar != nil {
		if level, err := c.Log.SlogLevel(); err == nil {
			levelVar.Set(level)
		}
	}
	s.logger.Info("configuration reloaded", "mode", s.options.Load().Mode, "log_level", c.Log.Level)
}

// Start starts the worker pool and the HTTP server.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	// The pool outlives ctx until in-flight requests have drained.
	poolCtx, stopPool := context.WithCancel(context.Background())
	poolDone := make(chan struct{})
	go func() {
		s.pool.Start(poolCtx)
		close(poolDone)
	}()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			serveErr = err
		}
	}

	s.shutdown(stopPool, poolDone)
	if serveErr != nil {
		return fmt.Errorf("HTTP server error: %w", serveErr)
	}
	return nil
}

// shutdown drains the HTTP server, then stops the worker pool.
func (s *Server) shutdown(stopPool context.CancelFunc, poolDone <-chan struct{}) {
	s.logger.Info("shutting down server")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		// Cancels the contexts of requests still extracting.
		_ = s.httpServer.Close()
	}

	s.logger.Info("stopping worker pool")
	stopPool()
	<-poolDone

	s.setNotRunning()
	s.logger.Info("server stopped")
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the server's HTTP handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Pool returns the extraction worker pool.
func (s *Server) Pool() *jobs.CPUWorkerPool {
	return s.pool
}

// Options returns the extraction options currently in effect.
func (s *Server) Options() *pageindex.Options {
	return s.options.Load()
}

// Registry returns the endpoint registry.
func (s *Server) Registry() *api.Registry {
	return s.endpointRegistry
}
