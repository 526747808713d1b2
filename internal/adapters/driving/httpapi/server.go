package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driving"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

// StorageBackendHeader names the backend that served a task lookup.
const StorageBackendHeader = "X-Storage-Backend"

// BackendReporter names the storage backend that holds a document.
type BackendReporter func(collection, id string) string

// Server exposes the research service over HTTP.
type Server struct {
	research driving.ResearchService
	backends BackendReporter
	metrics  http.Handler
	origins  []string
	debug    bool

	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithBackendReporter adds the storage backend header to task responses.
func WithBackendReporter(r BackendReporter) Option {
	return func(s *Server) { s.backends = r }
}

// WithCORSOrigins allows cross-origin requests from origins. CORS is
// disabled when the list is empty.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithDebug enables gin debug mode and request logging.
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// NewServer creates the HTTP server and its routes.
func NewServer(research driving.ResearchService, opts ...Option) (*Server, error) {
	if research == nil {
		return nil, errors.New("httpapi: research service is required")
	}
	s := &Server{research: research}
	for _, opt := range opts {
		opt(s)
	}

	if !s.debug {
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	if s.debug {
		s.engine.Use(requestLogger())
	}
	if len(s.origins) > 0 {
		s.engine.Use(cors.New(corsConfig(s.origins)))
	}
	s.setupRoutes()
	return s, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowCredentials = true
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cfg.ExposeHeaders = []string{StorageBackendHeader}
	if len(origins) == 1 && origins[0] == "*" {
		// Credentials cannot be combined with a wildcard origin.
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics))
	}

	research := s.engine.Group("/research")
	{
		research.POST("/refresh", s.handleRefresh)
		research.GET("/tasks/:task_id", s.handleTask)
		research.GET("/:topic_id", s.handleResult)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown: %v", err)
		}
	}()

	logger.Info("http listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-shutdownDone
		return nil
	}
	return err
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}
