// Package httptransport assembles the CMS PSU API.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"xs2acms/internal/platform/metrics"
	"xs2acms/pkg/platform/httputil"
	"xs2acms/pkg/platform/middleware/device"
	"xs2acms/pkg/platform/middleware/request"
	"xs2acms/pkg/platform/middleware/requesttime"
	"xs2acms/pkg/platform/validation"
)

// APIPrefix is where the consent and payment routes are mounted.
const APIPrefix = "/psu-api/v1"

// RouteRegistrar mounts its routes on a chi router.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// Config collects what the router mounts.
type Config struct {
	Logger   *slog.Logger
	Consents RouteRegistrar
	Payments RouteRegistrar
	// Health is mounted at the root, outside the API prefix.
	Health RouteRegistrar
	// DefaultInstanceID is applied when a request carries no instance-id header.
	DefaultInstanceID string
	RequestMetrics    *request.Metrics
	// ServeMetrics exposes /metrics on this router.
	ServeMetrics bool
}

// NewRouter wires the PSU API routes with the middleware stack.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(logger))
	r.Use(requesttime.Middleware)

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.ServeMetrics {
		r.Handle("/metrics", metrics.Handler())
	}

	r.Route(APIPrefix, func(api chi.Router) {
		api.Use(request.ContentTypeJSON)
		api.Use(request.BodyLimit(validation.MaxBodySize))
		api.Use(device.Device)
		api.Use(defaultInstance(cfg.DefaultInstanceID))
		api.Use(request.LatencyMiddleware(cfg.RequestMetrics))
		if cfg.Consents != nil {
			cfg.Consents.Register(api)
		}
		if cfg.Payments != nil {
			cfg.Payments.Register(api)
		}
	})

	return r
}

func defaultInstance(instanceID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if instanceID == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(httputil.HeaderInstanceID) == "" {
				r.Header.Set(httputil.HeaderInstanceID, instanceID)
			}
			next.ServeHTTP(w, r)
		})
	}
}
