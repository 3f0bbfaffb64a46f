package analytics

import (
	"fmt"
	"sort"
)

const (
	secondsPerWeek = 604800
	minCohortSize  = 5
)

// Cohort is one row of the retention matrix.
type Cohort struct {
	Year  int       `json:"year"`
	Week  int       `json:"week"`
	Size  int       `json:"size"`
	Label string    `json:"label"`
	Cells []float64 `json:"cells"`
}

// RetentionResult is a weekly cohort retention matrix.
type RetentionResult struct {
	Matrix   [][]float64 `json:"matrix"`
	Labels   []string    `json:"labels"`
	MaxWeeks int         `json:"max_weeks"`
	W1Pct    float64     `json:"w1_pct"`
	Cohorts  []Cohort    `json:"cohorts"`
}

type cohortKey struct{ year, week int }

// Retention groups users by the ISO week of their first event and reports,
// for each week offset, the share of the cohort active in that week.
// Cohorts smaller than five users are omitted.
func Retention(d *Dataset, maxWeeks int) RetentionResult {
	type userWeeks struct {
		key   cohortKey
		weeks map[int]struct{}
	}

	users := make(map[string]*userWeeks, len(d.Users()))
	maxObserved := 0
	returned := 0
	for _, u := range d.Users() {
		events := d.UserEvents(u)
		first := events[0].Time
		y, w := first.ISOWeek()
		uw := &userWeeks{key: cohortKey{y, w}, weeks: make(map[int]struct{})}
		for _, e := range events {
			off := int(e.Time.Sub(first).Seconds() / secondsPerWeek)
			if off < 0 {
				off = 0
			}
			uw.weeks[off] = struct{}{}
			if off > maxObserved {
				maxObserved = off
			}
		}
		for off := range uw.weeks {
			if off >= 1 {
				returned++
				break
			}
		}
		users[u] = uw
	}

	width := maxObserved + 1
	if maxWeeks > 0 && width > maxWeeks {
		width = maxWeeks
	}

	members := make(map[cohortKey][]*userWeeks)
	for _, u := range d.Users() {
		uw := users[u]
		members[uw.key] = append(members[uw.key], uw)
	}
	keys := make([]cohortKey, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].week < keys[j].week
	})

	res := RetentionResult{
		Matrix:   [][]float64{},
		Labels:   []string{},
		MaxWeeks: width,
		W1Pct:    pct(returned, len(d.Users()), 1),
		Cohorts:  []Cohort{},
	}
	for _, k := range keys {
		group := members[k]
		if len(group) < minCohortSize {
			continue
		}
		row := make([]float64, width)
		for off := 0; off < width; off++ {
			active := 0
			for _, uw := range group {
				if _, ok := uw.weeks[off]; ok {
					active++
				}
			}
			row[off] = pct(active, len(group), 1)
		}
		label := fmt.Sprintf("%d-W%02d (n=%d)", k.year, k.week, len(group))
		res.Matrix = append(res.Matrix, row)
		res.Labels = append(res.Labels, label)
		res.Cohorts = append(res.Cohorts, Cohort{Year: k.year, Week: k.week, Size: len(group), Label: label, Cells: row})
	}
	return res
}
