package analytics

import (
	"slices"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// Session is a maximal run of one user's events sharing a session ordinal.
type Session struct {
	UserID  string
	Ordinal int
	Events  []model.Event
}

// Duration returns the seconds between the first and last event.
func (s Session) Duration() float64 {
	if len(s.Events) == 0 {
		return 0
	}
	return s.Events[len(s.Events)-1].Time.Sub(s.Events[0].Time).Seconds()
}

// Depth returns the number of distinct event names in the session.
func (s Session) Depth() int {
	seen := make(EventSet, len(s.Events))
	for _, e := range s.Events {
		seen[e.Name] = struct{}{}
	}
	return len(seen)
}

// Ordinals assigns a session ordinal to each of a user's time-ordered events.
// The ordinal is the running count of marker events seen so far, inclusive,
// so events before the first marker get ordinal 0.
func Ordinals(events []model.Event, markers EventSet) []int {
	out := make([]int, len(events))
	n := 0
	for i, e := range events {
		if markers.Has(e.Name) {
			n++
		}
		out[i] = n
	}
	return out
}

// Reconstruct splits one user's events into sessions. The input need not be
// sorted; a time-ordered copy is used.
func Reconstruct(events []model.Event, markers EventSet) []Session {
	if len(events) == 0 {
		return nil
	}
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.Event) int {
		return a.Time.Compare(b.Time)
	})
	return group(sorted, markers)
}

func group(sorted []model.Event, markers EventSet) []Session {
	ords := Ordinals(sorted, markers)
	var sessions []Session
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || ords[i] != ords[start] {
			sessions = append(sessions, Session{
				UserID:  sorted[start].UserID,
				Ordinal: ords[start],
				Events:  sorted[start:i:i],
			})
			start = i
		}
	}
	return sessions
}

// Sessions reconstructs the sessions of every user, ordered by user then ordinal.
func (d *Dataset) Sessions(markers EventSet) []Session {
	var out []Session
	for _, u := range d.users {
		out = append(out, group(d.byUser[u], markers)...)
	}
	return out
}
