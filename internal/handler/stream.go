package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/journey-analytics/internal/service"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
	"github.com/capitalize-ai/journey-analytics/pkg/metrics"
)

const defaultHeartbeat = 30 * time.Second

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	service   *service.RunService
	logger    *logger.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(svc *service.RunService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		service:   svc,
		logger:    log,
		heartbeat: defaultHeartbeat,
	}
}

// HeartbeatEvent keeps idle SSE connections open.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// Stream handles GET /api/v1/runs/stream
// Sends a status event per state change and closes after a terminal status.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// A stream stays open for the whole run, past the server WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("failed to clear SSE write deadline", zap.Error(err))
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	updates, unsubscribe := h.service.Subscribe()
	defer unsubscribe()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected")
			return

		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := sendSSEEvent(w, flusher, "status", state); err != nil {
				h.logger.Warn("failed to write SSE event", zap.Error(err))
				return
			}
			if state.Status.IsTerminal() {
				sendSSEEvent(w, flusher, "done", map[string]string{"run_id": state.RunID, "status": string(state.Status)})
				return
			}

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &HeartbeatEvent{Timestamp: time.Now()})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
