package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency that can report liveness
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process and dependency health
type HealthHandler struct {
	postgres Pinger
	redis    Pinger
}

// NewHealthHandler creates a new health handler. Either dependency may
// be nil when it is not configured.
func NewHealthHandler(postgres, redis Pinger) *HealthHandler {
	return &HealthHandler{
		postgres: postgres,
		redis:    redis,
	}
}

// GetHealth handles GET /api/health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{
		"status": "ok",
	}

	status["postgres"] = h.check(ctx, h.postgres)
	status["redis"] = h.check(ctx, h.redis)

	w.Header().Set("Cache-Control", "no-store")
	respondWithJSON(w, http.StatusOK, status)
}

func (h *HealthHandler) check(ctx context.Context, dep Pinger) string {
	if dep == nil {
		return "disabled"
	}
	if err := dep.Ping(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}
