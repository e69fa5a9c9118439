package handlers

import (
	"net/http"
)

// SystemHandler serves health and cache endpoints
type SystemHandler struct {
	engine  Engine
	service string
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(e Engine, service string) *SystemHandler {
	return &SystemHandler{engine: e, service: service}
}

// Health returns server health status
// GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": h.service,
	})
}

// CacheStats returns result cache counters
// GET /api/cache/stats
func (h *SystemHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.CacheStats())
}
