// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capitalize-ai/journey-analytics/internal/middleware"
	"github.com/capitalize-ai/journey-analytics/internal/service"
	"github.com/capitalize-ai/journey-analytics/pkg/logger"
)

// RunHandler handles run lifecycle and result endpoints.
type RunHandler struct {
	service *service.RunService
	logger  *logger.Logger
}

// NewRunHandler creates a new run handler.
func NewRunHandler(svc *service.RunService, log *logger.Logger) *RunHandler {
	return &RunHandler{
		service: svc,
		logger:  log,
	}
}

// Trigger handles POST /api/v1/runs
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Trigger()
	if errors.Is(err, service.ErrRunInProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to trigger run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to trigger run")
		return
	}

	h.logger.Info("run accepted",
		zap.String("run_id", state.RunID),
		zap.String("user_id", middleware.GetUserID(r.Context())),
		zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
	)
	writeJSON(w, http.StatusAccepted, state)
}

// Status handles GET /api/v1/runs/status
func (h *RunHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Status())
}

// Report handles GET /api/v1/report
func (h *RunHandler) Report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Report(r.Context())
	if errors.Is(err, service.ErrNoReport) {
		writeError(w, http.StatusNotFound, "no report available yet")
		return
	}
	if err != nil {
		h.logger.Error("failed to load report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// RunReport handles GET /api/v1/runs/{id}/report
func (h *RunHandler) RunReport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if err := middleware.ValidateRunID(runID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.service.RunReport(r.Context(), runID)
	if errors.Is(err, service.ErrNoReport) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load report", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Metrics handles GET /api/v1/metrics
func (h *RunHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Metrics())
}

// Metric handles GET /api/v1/metrics/{name}
func (h *RunHandler) Metric(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := middleware.ValidateMetricName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	artifact, err := h.service.Metric(r.Context(), name)
	if errors.Is(err, service.ErrMetricNotFound) {
		writeError(w, http.StatusNotFound, "metric not available")
		return
	}
	if err != nil {
		h.logger.Error("failed to load metric", zap.String("metric", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load metric")
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}
