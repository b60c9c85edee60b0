package routes

import (
	"net/http"

	"github.com/motorvalue/vehicle-valuation/internal/api/handlers"
	"github.com/motorvalue/vehicle-valuation/internal/api/middleware"
	"github.com/motorvalue/vehicle-valuation/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	valuationHandler *handlers.ValuationHandler
	healthHandler    *handlers.HealthHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	valuationHandler *handlers.ValuationHandler,
	healthHandler *handlers.HealthHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		valuationHandler: valuationHandler,
		healthHandler:    healthHandler,
		cacheMiddleware:  cacheMiddleware,
		metrics:          metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Valuation endpoints
	r.mux.HandleFunc("POST /api/valuations", r.valuationHandler.CreateValuation)
	r.mux.HandleFunc("GET /api/valuations", r.valuationHandler.GetValuation)

	// Health endpoint
	r.mux.HandleFunc("GET /api/health", r.healthHandler.GetHealth)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.Compression(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(handler)

	return handler
}
