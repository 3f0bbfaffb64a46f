package model

import (
	"time"
)

// RunStatus is the lifecycle status of a pipeline run.
type RunStatus string

const (
	RunStatusIdle      RunStatus = "idle"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether no further transitions are expected.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// RunState is the externally observable state of the current or last run.
type RunState struct {
	RunID            string     `json:"run_id,omitempty"`
	Status           RunStatus  `json:"status"`
	Phase            string     `json:"phase,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	ElapsedSec       float64    `json:"elapsed_sec"`
	MetricsCompleted []string   `json:"metrics_completed"`
	MetricsFailed    []string   `json:"metrics_failed"`
	ReportLocation   string     `json:"report_location,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// DateRange is the first and last event time of a dataset.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// EventCount is an event name with its occurrence count.
type EventCount struct {
	Event string  `json:"event"`
	Count int     `json:"count"`
	Pct   float64 `json:"pct,omitempty"`
}

// DatasetSummary is produced once at ingestion and shared read-only with every task.
type DatasetSummary struct {
	TotalEvents     int          `json:"total_events"`
	TotalUsers      int          `json:"total_users"`
	TotalEventTypes int          `json:"total_event_types"`
	DaysCovered     int          `json:"days_covered"`
	DateRangeStr    string       `json:"date_range_str"`
	PeakDay         string       `json:"peak_day"`
	DateRange       DateRange    `json:"date_range"`
	CategoryFilter  string       `json:"category_filter"`
	TopEvents       []EventCount `json:"top_events"`
}

// CompiledReport is produced once per run by the compiler.
type CompiledReport struct {
	RunID            string          `json:"run_id"`
	Narrative        string          `json:"executive_insights"`
	MetricsCompleted []string        `json:"metrics_completed"`
	MetricsFailed    []string        `json:"metrics_failed"`
	ReportLocation   string          `json:"report_location"`
	Summary          *DatasetSummary `json:"dataset_summary,omitempty"`
	GeneratedAt      time.Time       `json:"generated_at"`
}
