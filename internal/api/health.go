package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status     string `json:"status"`
	SSEClients int    `json:"sse_clients"`
}

// HealthHandler serves the unauthenticated liveness and readiness probes.
type HealthHandler struct {
	ready   func() bool
	clients func() int
}

// NewHealthHandler creates a HealthHandler. ready reports whether the view
// accepts events; clients returns the number of open event streams.
func NewHealthHandler(ready func() bool, clients func() int) *HealthHandler {
	return &HealthHandler{ready: ready, clients: clients}
}

// Routes mounts GET /health/live and GET /health/ready on r.
func (h *HealthHandler) Routes(r chi.Router) {
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", SSEClients: h.clients()})
}

// Ready handles GET /health/ready. It answers 503 until event listeners are
// attached.
func (h *HealthHandler) Ready(w http.ResponseWriter, _ *http.Request) {
	if !h.ready() {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "starting", SSEClients: h.clients()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", SSEClients: h.clients()})
}
