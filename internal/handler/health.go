package handler

import (
	"net/http"
	"strings"

	natsclient "github.com/capitalize-ai/journey-analytics/internal/nats"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient *natsclient.Client
	providers  int
}

// NewHealthHandler creates a new health handler. natsClient is nil when
// artifacts are not stored in JetStream; providers is the number of
// configured model candidates.
func NewHealthHandler(natsClient *natsclient.Client, providers int) *HealthHandler {
	return &HealthHandler{
		natsClient: natsClient,
		providers:  providers,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.providers == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "no API keys configured",
		})
		return
	}
	if h.natsClient != nil && !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "artifact store " + strings.ToLower(h.natsClient.Status()),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
