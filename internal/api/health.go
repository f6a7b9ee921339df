package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mkrasov/planner/internal/store"
)

// HealthHandler reports service and database health.
type HealthHandler struct {
	repo store.Repository
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(repo store.Repository) *HealthHandler {
	return &HealthHandler{repo: repo}
}

// RegisterHealth registers the detailed health route. The lightweight
// liveness probe at /health is served by chi's Heartbeat middleware.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/healthz", h.Health)
}

// Health returns component-level health detail.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	overall := "healthy"
	dbStatus := "ok"
	status := http.StatusOK
	if err := h.repo.Ping(r.Context()); err != nil {
		overall = "degraded"
		dbStatus = err.Error()
		status = http.StatusServiceUnavailable
	}

	JSON(w, status, map[string]interface{}{
		"status":   overall,
		"database": dbStatus,
	})
}
