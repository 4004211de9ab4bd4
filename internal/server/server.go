// Package server is the local database gateway: an HTTP service exposing the
// execute and schema routes over a direct database connection, for
// development and tests.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/djb258/client-sub001/internal/database"
	"github.com/djb258/client-sub001/internal/errs"
	"github.com/djb258/client-sub001/internal/gateway"
	"github.com/djb258/client-sub001/internal/logger"
)

// maxBody bounds a request body; migration files are the largest payloads.
const maxBody = 8 << 20

// Options configures a Server.
type Options struct {
	// APIKey is the bearer token every gateway route requires.
	APIKey string
	// QueryTimeout bounds each database call. Zero means no extra bound.
	QueryTimeout time.Duration
	Logger       *logger.Logger
	// Registry receives the HTTP metrics. Nil uses a private registry.
	Registry *prometheus.Registry
	// AllowedOrigins enables CORS for browser tooling. Empty disables it.
	AllowedOrigins []string
}

// Server serves the gateway routes over db.
type Server struct {
	db       database.DB
	apiKey   string
	timeout  time.Duration
	log      *logger.Logger
	registry *prometheus.Registry
	metrics  *httpMetrics
	origins  []string
	router   chi.Router
}

// New builds the router. An empty APIKey is a configuration error.
func New(db database.DB, opts Options) (*Server, error) {
	if db == nil {
		return nil, errs.New(errs.ErrKindConfig, "server needs a database")
	}
	if opts.APIKey == "" {
		return nil, errs.New(errs.ErrKindConfig, "server needs an API key")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		db:       db,
		apiKey:   opts.APIKey,
		timeout:  opts.QueryTimeout,
		log:      log.Component("gatewayd"),
		registry: reg,
		metrics:  newHTTPMetrics(reg),
		origins:  opts.AllowedOrigins,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.middleware)
	r.Use(s.requestLog)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(s.requireKey)
		r.Use(middleware.AllowContentType("application/json"))
		r.Post(gateway.ExecutePath, s.handleExecute)
		r.Post(gateway.SchemaPath, s.handleSchema)
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains in-flight
// requests for up to grace.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", logger.F("addr", addr), logger.F("driver", string(s.db.Driver())))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, "listen on "+addr, err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "graceful shutdown", err)
	}
	return nil
}

func (s *Server) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
