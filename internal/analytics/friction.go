package analytics

import (
	"math"
	"sort"
)

// FrictionEvent ranks one event name by how often it repeats back-to-back
// within a session.
type FrictionEvent struct {
	Event         string  `json:"event"`
	RepeatRate    float64 `json:"repeat_rate"`
	AvgPerSession float64 `json:"avg_per_session"`
	Total         int     `json:"total"`
	Repeats       int     `json:"repeats"`
	Sessions      int     `json:"sessions"`
	Score         float64 `json:"score"`
}

type frictionAcc struct {
	total    int
	repeats  int
	sessions int
}

// Friction scores event names by repeat_rate * ln(1 + avg_per_session),
// dropping names seen fewer than minTotal times, and returns the topK highest.
func Friction(d *Dataset, markers EventSet, minTotal, topK int) []FrictionEvent {
	acc := make(map[string]*frictionAcc)
	for _, s := range d.Sessions(markers) {
		inSession := make(EventSet)
		for i, e := range s.Events {
			a := acc[e.Name]
			if a == nil {
				a = &frictionAcc{}
				acc[e.Name] = a
			}
			a.total++
			if i > 0 && s.Events[i-1].Name == e.Name {
				a.repeats++
			}
			if !inSession.Has(e.Name) {
				inSession[e.Name] = struct{}{}
				a.sessions++
			}
		}
	}

	out := []FrictionEvent{}
	for name, a := range acc {
		if a.total < minTotal {
			continue
		}
		rate := Round(float64(a.repeats)/float64(a.total)*100, 1)
		avg := Round(float64(a.total)/float64(a.sessions), 1)
		out = append(out, FrictionEvent{
			Event:         name,
			RepeatRate:    rate,
			AvgPerSession: avg,
			Total:         a.total,
			Repeats:       a.repeats,
			Sessions:      a.sessions,
			Score:         Round(rate*math.Log1p(avg), 1),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Event < out[j].Event
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
