package analytics

import (
	"fmt"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// FunnelChart draws stage reach as a funnel.
func FunnelChart(stages []FunnelStage) *model.ChartConfig {
	s := model.ChartSeries{Name: "Users"}
	for _, st := range stages {
		s.Points = append(s.Points, model.ChartPoint{Label: st.Stage, Value: float64(st.Users)})
	}
	return &model.ChartConfig{Type: model.ChartFunnel, Title: "Booking Funnel", YAxis: "Users", Series: []model.ChartSeries{s}}
}

// Chart draws the transitions as a waterfall of lost users.
func (r DropoffResult) Chart() *model.ChartConfig {
	s := model.ChartSeries{Name: "Lost users"}
	for _, t := range r.Transitions {
		s.Points = append(s.Points, model.ChartPoint{Label: t.From + " -> " + t.To, Value: float64(t.Lost)})
	}
	return &model.ChartConfig{Type: model.ChartWaterfall, Title: "Drop-off Waterfall", YAxis: "Users lost", Series: []model.ChartSeries{s}}
}

// FrictionChart ranks friction scores.
func FrictionChart(events []FrictionEvent) *model.ChartConfig {
	s := model.ChartSeries{Name: "Friction score"}
	for _, e := range events {
		s.Points = append(s.Points, model.ChartPoint{Label: e.Event, Value: e.Score})
	}
	return &model.ChartConfig{Type: model.ChartBar, Title: "Friction Points", XAxis: "Score", Series: []model.ChartSeries{s}}
}

// Chart draws session duration and depth distributions.
func (r SessionResult) Chart() *model.ChartConfig {
	return &model.ChartConfig{
		Type:  model.ChartHistogram,
		Title: "Session Behaviour",
		Series: []model.ChartSeries{
			{Name: "Duration (s)", Values: r.Distributions.Durations},
			{Name: "Events per session", Values: r.Distributions.EventCounts},
			{Name: "Depth", Values: r.Distributions.Depths},
			{Name: "Sessions per user", Values: r.Distributions.SessionsPerUser},
		},
	}
}

// Chart draws the cohort matrix as a heatmap.
func (r RetentionResult) Chart() *model.ChartConfig {
	cols := make([]string, r.MaxWeeks)
	for i := range cols {
		cols[i] = fmt.Sprintf("Week %d", i)
	}
	return &model.ChartConfig{
		Type:      model.ChartHeatmap,
		Title:     "Cohort Retention",
		Matrix:    r.Matrix,
		RowLabels: r.Labels,
		ColLabels: cols,
	}
}

// Chart draws the PCA scatter coloured by cluster.
func (r SegmentationResult) Chart() *model.ChartConfig {
	s := model.ChartSeries{Name: "Users"}
	for i := range r.Scatter.X {
		s.Points = append(s.Points, model.ChartPoint{X: r.Scatter.X[i], Value: r.Scatter.Y[i], Group: r.Scatter.Labels[i]})
	}
	return &model.ChartConfig{Type: model.ChartScatter, Title: "User Segments", XAxis: "PC1", YAxis: "PC2", Series: []model.ChartSeries{s}}
}

// Chart draws the conversion rates side by side.
func (r ConversionResult) Chart() *model.ChartConfig {
	s := model.ChartSeries{Name: "Rate (%)", Points: []model.ChartPoint{
		{Label: "Overall", Value: r.ConvPct},
		{Label: "Payment success", Value: r.PaySuccessPct},
		{Label: "Push attributed", Value: r.PushPct},
	}}
	return &model.ChartConfig{Type: model.ChartBar, Title: "Conversion Rates", YAxis: "%", Series: []model.ChartSeries{s}}
}

// LatencyChart draws one box per event pair from the clipped samples.
func LatencyChart(pairs []LatencyResult) *model.ChartConfig {
	c := &model.ChartConfig{Type: model.ChartBox, Title: "Time to Action", YAxis: "Seconds"}
	for _, p := range pairs {
		if p.N == 0 {
			continue
		}
		c.Series = append(c.Series, model.ChartSeries{Name: p.From + " -> " + p.To, Values: p.Values})
	}
	return c
}

// Chart draws the top events by count.
func (r FrequencyResult) Chart() *model.ChartConfig {
	s := model.ChartSeries{Name: "Events"}
	for _, e := range r.TopEvents {
		s.Points = append(s.Points, model.ChartPoint{Label: e.Event, Value: float64(e.Count)})
	}
	return &model.ChartConfig{Type: model.ChartBar, Title: "Event Frequency", Series: []model.ChartSeries{s}}
}

// Chart draws the day by hour heatmap.
func (r TemporalResult) Chart() *model.ChartConfig {
	matrix := make([][]float64, len(r.Matrix))
	for d := range r.Matrix {
		matrix[d] = make([]float64, len(r.Matrix[d]))
		for h, c := range r.Matrix[d] {
			matrix[d][h] = float64(c)
		}
	}
	cols := make([]string, 24)
	for h := range cols {
		cols[h] = fmt.Sprintf("%02d", h)
	}
	return &model.ChartConfig{
		Type:      model.ChartHeatmap,
		Title:     "Activity by Day and Hour",
		Matrix:    matrix,
		RowLabels: DayNames[:],
		ColLabels: cols,
	}
}

// Chart draws archetype counts.
func (r JourneyResult) Chart() *model.ChartConfig {
	s := model.ChartSeries{Name: "Users", Points: []model.ChartPoint{
		{Label: "Browsers", Value: float64(r.Types.Browsers)},
		{Label: "Shoppers", Value: float64(r.Types.Shoppers)},
		{Label: "Attempters", Value: float64(r.Types.Attempters)},
		{Label: "Bookers", Value: float64(r.Types.Bookers)},
	}}
	return &model.ChartConfig{Type: model.ChartBar, Title: "User Archetypes", Series: []model.ChartSeries{s}}
}
