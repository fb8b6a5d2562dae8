package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unlearnai/dagster/config"
	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/manifest"
	"github.com/unlearnai/dagster/observability"
	"github.com/unlearnai/dagster/runconfig"
	"github.com/unlearnai/dagster/server/middleware"
)

// Options wires a Server to the jobs it serves.
type Options struct {
	Service string
	Version string
	Config  config.ServerConfig
	Catalog *manifest.Catalog
	Cache   *runconfig.Cache
	// Logger defaults to the global logger.
	Logger *logger.Logger
	// Metrics is optional.
	Metrics *observability.Metrics
}

// Server is the introspection HTTP API: gin routes wrapped in the
// net/http middleware stack.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	handler    http.Handler
	catalog    *manifest.Catalog
	cache      *runconfig.Cache
	service    string
	version    string
	log        *logger.Logger
	// bound is the listener address once Start succeeded.
	bound atomic.Pointer[string]
}

// New creates a server and registers its routes.
func New(opts Options) *Server {
	if opts.Config.Mode != "" {
		gin.SetMode(opts.Config.Mode)
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("server")

	s := &Server{
		engine:  gin.New(),
		catalog: opts.Catalog,
		cache:   opts.Cache,
		service: opts.Service,
		version: opts.Version,
		log:     log,
	}
	s.routes()

	s.handler = middleware.Chain(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.RequestLogger(log, opts.Metrics, opts.Service),
		middleware.BodySizeLimit(opts.Config.MaxBodyBytes),
	)(s.engine)

	s.httpServer = &http.Server{
		Addr:              opts.Config.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.health)
	jobs := s.engine.Group("/jobs")
	jobs.GET("", s.listJobs)
	jobs.GET("/:job/schema", s.getSchema)
	jobs.GET("/:job/types", s.getTypes)
	jobs.GET("/:job/scaffold", s.getScaffold)
	jobs.POST("/:job/validate", s.validate)
}

// Handler returns the full handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Name implements component.Component.
func (s *Server) Name() string { return "http" }

// Start binds the port and begins serving. It returns once the listener is
// bound so the caller knows the port is ready; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	addr := listener.Addr().String()
	s.bound.Store(&addr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", logger.Fields(logger.FieldError, err.Error()))
		}
		s.bound.Store(nil)
	}()

	s.log.WithContext(ctx).Info("HTTP server started", logger.Fields(
		"addr", addr,
		"jobs", s.catalog.Len(),
	))
	return nil
}

// Stop drains in-flight requests until ctx ends, then closes the
// remaining connections.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	defer s.bound.Store(nil)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("Server shutdown error", logger.Fields(logger.FieldError, err.Error()))
		_ = s.httpServer.Close()
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// CheckHealth reports the server down unless it is listening.
func (s *Server) CheckHealth(context.Context) observability.Health {
	h := observability.Health{Name: s.Name(), Status: observability.HealthStatusUp}
	if addr := s.bound.Load(); addr != nil {
		h.Details = map[string]string{"addr": *addr}
	} else {
		h.Status = observability.HealthStatusDown
		h.Message = "not listening"
	}
	return h
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	if addr := s.bound.Load(); addr != nil {
		return *addr
	}
	return s.httpServer.Addr
}
