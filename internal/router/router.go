// Package router defines how HTTP routes are registered for the API.
package router

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-registration/internal/config"
	"github.com/iliyamo/event-registration/internal/handler"
	"github.com/iliyamo/event-registration/internal/middleware"
)

// Options carries the optional dependencies of the registration routes.
// A nil Redis client disables rate limiting and caching.
type Options struct {
	Redis      *redis.Client
	RateLimit  config.RateLimitConfig
	Cache      config.CacheConfig
	AdminToken string
	Logger     *slog.Logger
}

// RegisterRoutes registers routes that need no dependencies: the health
// check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterMetrics exposes the Prometheus registry gatherer at /metrics.
func RegisterMetrics(e *echo.Echo, g prometheus.Gatherer) {
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

// RegisterRegistration registers the public catalog and submission routes
// under /v1 and the admin listings under /v1/admin.
func RegisterRegistration(e *echo.Echo, h *handler.RegistrationHandler, opts Options) {
	v1 := e.Group("/v1")

	// Seat availability changes with every submission, so only the static
	// college list goes through the response cache.
	v1.GET("/events", h.ListEvents)
	v1.GET("/colleges", h.ListColleges, middleware.NewRedisCache(opts.Cache, opts.Redis, opts.Logger))

	// Submissions are rate limited per client.
	v1.POST("/registrations", h.Submit, middleware.NewTokenBucket(opts.RateLimit, opts.Redis, opts.Logger))

	admin := v1.Group("/admin", middleware.AdminToken(opts.AdminToken))
	admin.GET("/registrations", h.ListRegistrations)
	admin.GET("/seats", h.ListSeats)
}
