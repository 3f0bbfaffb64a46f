package analytics

import (
	"sort"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

const summaryTopEvents = 15

// Summarize builds the dataset summary shared with every metric task.
func Summarize(d *Dataset) model.DatasetSummary {
	start, end := d.Start().UTC(), d.End().UTC()
	return model.DatasetSummary{
		TotalEvents:     d.Len(),
		TotalUsers:      len(d.Users()),
		TotalEventTypes: len(d.DistinctNames()),
		DaysCovered:     int(end.Sub(start).Hours()/24) + 1,
		DateRangeStr:    start.Format("02 Jan") + " - " + end.Format("02 Jan 2006"),
		PeakDay:         peakDay(d),
		DateRange:       model.DateRange{Start: start, End: end},
		CategoryFilter:  model.ApplicationCategory,
		TopEvents:       TopEvents(d, summaryTopEvents),
	}
}

// peakDay is the most frequent precomputed day column, falling back to the
// weekday of the event time. Ties resolve to the alphabetically first day.
func peakDay(d *Dataset) string {
	counts := make(map[string]int)
	hasColumn := false
	for _, e := range d.Events() {
		if e.Day != "" {
			hasColumn = true
			break
		}
	}
	for _, e := range d.Events() {
		if hasColumn {
			if e.Day != "" {
				counts[e.Day]++
			}
			continue
		}
		counts[e.Time.UTC().Weekday().String()]++
	}
	if len(counts) == 0 {
		return "N/A"
	}
	days := make([]string, 0, len(counts))
	for k := range counts {
		days = append(days, k)
	}
	sort.Strings(days)
	best := days[0]
	for _, k := range days[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

// UserMatch is the result of counting users by event membership.
type UserMatch struct {
	Matching int     `json:"matching"`
	Total    int     `json:"total"`
	Pct      float64 `json:"pct"`
}

// CountUsersWithEvents counts users who triggered at least one of names.
func CountUsersWithEvents(d *Dataset, names []string) UserMatch {
	total := len(d.Users())
	c := d.CountReaching(NewEventSet(names...))
	return UserMatch{Matching: c, Total: total, Pct: pct(c, total, 2)}
}
