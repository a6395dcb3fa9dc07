package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/theblitlabs/conductor-worker/internal/api/handlers"
	"github.com/theblitlabs/conductor-worker/internal/api/middleware"
	"github.com/theblitlabs/conductor-worker/internal/core/ports"
	"github.com/theblitlabs/conductor-worker/internal/telemetry"
)

// Router wraps mux.Router with the status routes of a running worker
type Router struct {
	*mux.Router
	middleware []mux.MiddlewareFunc
}

func NewRouter(status ports.StatusProvider, startedAt time.Time) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		middleware: []mux.MiddlewareFunc{
			middleware.Logging,
			telemetry.MetricsMiddleware,
		},
	}

	for _, m := range r.middleware {
		r.Use(m)
	}

	r.registerRoutes(handlers.NewHealthHandler(status, startedAt))

	return r
}

func (r *Router) registerRoutes(health *handlers.HealthHandler) {
	r.HandleFunc("/health", health.GetHealth).Methods(http.MethodGet)
	r.Handle("/metrics", telemetry.MetricsHandler()).Methods(http.MethodGet)
}

// AddMiddleware adds a middleware to every route
func (r *Router) AddMiddleware(middleware mux.MiddlewareFunc) {
	r.Use(middleware)
}
