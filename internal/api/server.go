// Package api hosts controller routes behind request id, metrics, logging,
// CORS and error handling middleware.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/dolphin/internal/common"
	"github.com/loykin/dolphin/internal/constants"
)

// Controller mounts its routes under the API base path.
type Controller interface {
	Register(r gin.IRouter)
}

// HealthCheck reports a dependency as unhealthy by returning an error.
type HealthCheck func(ctx context.Context) error

// Option customizes a Server.
type Option func(*Server)

// WithController mounts c under /api.
func WithController(c Controller) Option {
	return func(s *Server) { s.controllers = append(s.controllers, c) }
}

// WithHealthCheck adds a named check to /health.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// WithTitle sets the API document title.
func WithTitle(title string) Option {
	return func(s *Server) { s.title = title }
}

// Server is the API host.
type Server struct {
	cfg         Config
	logger      *common.Logger
	engine      *gin.Engine
	metrics     *Metrics
	controllers []Controller
	checks      map[string]HealthCheck
	title       string
}

// New validates cfg and builds the router.
func New(cfg Config, logger *common.Logger, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = common.GetLogger()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger.WithComponent("api"),
		metrics: NewMetrics(),
		checks:  map[string]HealthCheck{},
		title:   "Dolphin API",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.buildEngine()
	return s, nil
}

func (s *Server) buildEngine() *gin.Engine {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		requestIDMiddleware(),
		s.metrics.middleware(),
		loggingMiddleware(s.logger),
		corsMiddleware(s.cfg.AllowedOrigins),
		errorMiddleware(s.logger),
	)

	r.GET(constants.HealthPath, s.health)
	r.HEAD(constants.HealthPath, s.health)
	r.GET(constants.MetricsPath, gin.WrapH(s.metrics.Handler()))
	if s.cfg.IsDevelopment() {
		r.GET(constants.SwaggerJSONPath, s.serveOpenAPIJSON)
		r.GET(constants.SwaggerYAMLPath, s.serveOpenAPIYAML)
	}

	group := r.Group(constants.APIBasePath)
	for _, c := range s.controllers {
		c.Register(group)
	}

	r.NoRoute(func(c *gin.Context) {
		AbortWithError(c, http.StatusNotFound, "Not found")
	})
	r.NoMethod(func(c *gin.Context) {
		AbortWithError(c, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// Metrics returns the collectors served on /metrics.
func (s *Server) Metrics() *Metrics { return s.metrics }

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), constants.HealthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			healthy = false
			s.logger.Warn("health check failed", "check", name, "error", err)
		}
	}
	if !healthy {
		c.String(http.StatusServiceUnavailable, "Unhealthy")
		return
	}
	c.String(http.StatusOK, "Healthy")
}

// Serve accepts connections on l until ctx is cancelled, then drains
// in-flight requests for up to the shutdown grace period.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api host listening", "addr", l.Addr().String(), "environment", s.cfg.Environment)
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api host")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}
