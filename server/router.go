// Package server wires the portable content model to its HTTP surface.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/portablefs/portablefs/config"
	"github.com/portablefs/portablefs/metrics"
	"github.com/portablefs/portablefs/portable"
	"github.com/portablefs/portablefs/server/handlers"
	rlMiddleware "github.com/portablefs/portablefs/server/middleware"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	mgr *portable.Manager,
	serverConfig *config.ServerConfig,
	logger *zap.Logger,
) chi.Router {
	// Initialize metrics
	metrics.RegisterMetrics()

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(serverConfig.WriteTimeout))

	// Custom logging and metrics middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			// Record metrics
			metrics.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				r.URL.Path,
				http.StatusText(ww.Status()),
			).Inc()

			metrics.HTTPRequestDuration.WithLabelValues(
				r.Method,
				r.URL.Path,
			).Observe(duration.Seconds())

			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", duration),
				zap.String("user_agent", r.UserAgent()),
				zap.String("remote_addr", r.RemoteAddr))
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			logger.Error("Failed to write health check response", zap.Error(err))
		}
	})

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API v1 routes; device I/O is slow, so everything is rate limited
	r.Route("/v1", func(r chi.Router) {
		limiter := rate.NewLimiter(rate.Limit(serverConfig.RateLimitRPS), serverConfig.RateLimitBurst)
		r.Use(rlMiddleware.V1RateLimitMiddleware(limiter, logger))

		r.Get("/devices", handlers.V1ListDevices(mgr, logger))

		r.Route("/tree/{device}", func(r chi.Router) {
			r.Get("/*", handlers.V1GetTree(mgr, logger))
			r.Put("/*", handlers.V1PutTree(mgr, logger))
			r.Delete("/*", handlers.V1DeleteTree(mgr, logger))
		})

		r.Route("/directories/{device}", func(r chi.Router) {
			r.Post("/*", handlers.V1MakeDirectory(mgr, logger))
		})
	})

	logger.Info("HTTP router configured successfully")

	return r
}
