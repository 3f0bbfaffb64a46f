package model

// MetricResult is the output of exactly one metric task.
type MetricResult struct {
	Metric     string       `json:"metric"`
	Title      string       `json:"title"`
	Insights   string       `json:"insights"`
	Chart      *ChartConfig `json:"chart,omitempty"`
	Data       any          `json:"data"`
	Iterations int          `json:"iterations"`
}

// MetricArtifact is the persisted record of a successful metric task.
type MetricArtifact struct {
	RunID      string       `json:"run_id"`
	Metric     string       `json:"metric"`
	Title      string       `json:"title"`
	Data       any          `json:"data"`
	Insights   string       `json:"insights"`
	Iterations int          `json:"iterations"`
	Chart      *ChartConfig `json:"chart,omitempty"`
}

// Artifact converts a result into its persisted form.
func (r *MetricResult) Artifact(runID string) *MetricArtifact {
	return &MetricArtifact{
		RunID:      runID,
		Metric:     r.Metric,
		Title:      r.Title,
		Data:       r.Data,
		Insights:   r.Insights,
		Iterations: r.Iterations,
		Chart:      r.Chart,
	}
}

// ChartType identifies how a chart should be drawn by a renderer.
type ChartType string

const (
	ChartBar       ChartType = "bar"
	ChartFunnel    ChartType = "funnel"
	ChartWaterfall ChartType = "waterfall"
	ChartHeatmap   ChartType = "heatmap"
	ChartHistogram ChartType = "histogram"
	ChartScatter   ChartType = "scatter"
	ChartBox       ChartType = "box"
)

// ChartConfig is a renderer-agnostic chart description.
type ChartConfig struct {
	Type   ChartType     `json:"type"`
	Title  string        `json:"title"`
	XAxis  string        `json:"x_axis,omitempty"`
	YAxis  string        `json:"y_axis,omitempty"`
	Series []ChartSeries `json:"series,omitempty"`

	// Matrix carries heatmap cells, indexed [row][column].
	Matrix    [][]float64 `json:"matrix,omitempty"`
	RowLabels []string    `json:"row_labels,omitempty"`
	ColLabels []string    `json:"col_labels,omitempty"`
}

// ChartSeries is one named data series.
type ChartSeries struct {
	Name   string       `json:"name"`
	Points []ChartPoint `json:"points,omitempty"`
	Values []float64    `json:"values,omitempty"`
}

// ChartPoint is a labelled value, or an (x, y) coordinate for scatter series.
type ChartPoint struct {
	Label string  `json:"label,omitempty"`
	Value float64 `json:"value"`
	X     float64 `json:"x,omitempty"`
	Group int     `json:"group,omitempty"`
}
