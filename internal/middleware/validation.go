package middleware

import (
	"errors"

	"github.com/google/uuid"

	"github.com/capitalize-ai/journey-analytics/internal/pipeline"
)

// ValidateMetricName checks name against the metric catalogue.
func ValidateMetricName(name string) error {
	if name == "" {
		return errors.New("metric name cannot be empty")
	}
	if !pipeline.IsMetric(name) {
		return errors.New("unknown metric: " + name)
	}
	return nil
}

// ValidateRunID validates a run ID.
func ValidateRunID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid run ID format")
	}
	return nil
}
