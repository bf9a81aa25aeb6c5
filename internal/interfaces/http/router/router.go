// Package router wires the operational endpoints onto a chi router.
package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"snapgram-sync/internal/infrastructure/observability"
	"snapgram-sync/internal/interfaces/http/handlers"
)

// New builds the router serving /health/live, /health/ready and /metrics.
func New(collector *observability.Collector, health *handlers.HealthHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.MetricsMiddleware(collector))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.Live)
		r.Get("/live", health.Live)
		r.Get("/ready", health.Ready)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(collector.GetRegistry(), promhttp.HandlerOpts{}))
	return r
}

// Server runs the router until its context is cancelled.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer binds h to addr.
func NewServer(addr string, h http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.Named("http"),
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving metrics", zap.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
