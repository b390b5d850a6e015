package handler

import (
	"net/http"

	"github.com/mcoot/partycoord/internal/api/response"
)

// Counter reports a live count
type Counter interface {
	Count() int
}

// HealthHandler reports liveness along with party and connection counts
type HealthHandler struct {
	parties     Counter
	connections Counter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(parties, connections Counter) *HealthHandler {
	return &HealthHandler{parties: parties, connections: connections}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{
		Status:      "ok",
		Parties:     h.parties.Count(),
		Connections: h.connections.Count(),
	})
}
