package analytics

import (
	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// PowerUserStats describes the per-user event count distribution.
type PowerUserStats struct {
	Median         int `json:"median"`
	P90            int `json:"p90"`
	P99            int `json:"p99"`
	Max            int `json:"max"`
	Threshold      int `json:"threshold"`
	AboveThreshold int `json:"above_threshold"`
}

// FrequencyResult is the event frequency distribution plus power-user stats.
type FrequencyResult struct {
	TopEvents  []model.EventCount `json:"top_events"`
	Categories map[string]int     `json:"categories"`
	Power      PowerUserStats     `json:"power"`
}

// TopEvents returns the n most frequent event names with their share of all events.
func TopEvents(d *Dataset, n int) []model.EventCount {
	counts := d.NameCounts()
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	for i := range counts {
		counts[i].Pct = pct(counts[i].Count, d.Len(), 2)
	}
	return counts
}

// Frequency computes the top-n event distribution and counts users with more
// than superuserThreshold events.
func Frequency(d *Dataset, topN, superuserThreshold int) FrequencyResult {
	res := FrequencyResult{
		TopEvents:  TopEvents(d, topN),
		Categories: make(map[string]int),
	}
	for _, e := range d.Events() {
		res.Categories[e.Category]++
	}

	perUser := make([]float64, 0, len(d.Users()))
	max := 0
	above := 0
	for _, u := range d.Users() {
		n := len(d.UserEvents(u))
		perUser = append(perUser, float64(n))
		if n > max {
			max = n
		}
		if n > superuserThreshold {
			above++
		}
	}
	res.Power = PowerUserStats{
		Median:         int(Median(perUser)),
		P90:            int(Percentile(perUser, 90)),
		P99:            int(Percentile(perUser, 99)),
		Max:            max,
		Threshold:      superuserThreshold,
		AboveThreshold: above,
	}
	return res
}
