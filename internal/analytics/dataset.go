// Package analytics implements the deterministic metric algorithms over an
// immutable snapshot of application events.
package analytics

import (
	"errors"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// ErrEmptyDataset is returned when no application events remain after filtering.
var ErrEmptyDataset = errors.New("dataset has no application events")

// EventSet is a set of event names.
type EventSet map[string]struct{}

// NewEventSet builds a set from names.
func NewEventSet(names ...string) EventSet {
	s := make(EventSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s EventSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Intersects reports whether the two sets share at least one name.
func (s EventSet) Intersects(other EventSet) bool {
	small, big := s, other
	if len(small) > len(big) {
		small, big = big, small
	}
	for n := range small {
		if _, ok := big[n]; ok {
			return true
		}
	}
	return false
}

// Dataset is a read-only index over application events. Events are ordered
// by user and then by time; the relative order of equal timestamps follows
// the input order.
type Dataset struct {
	events []model.Event
	users  []string
	byUser map[string][]model.Event
	names  map[string]EventSet
	start  time.Time
	end    time.Time
}

// NewDataset filters events to the application category and indexes them.
func NewDataset(events []model.Event) (*Dataset, error) {
	filtered := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.IsApplication() {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) == 0 {
		return nil, ErrEmptyDataset
	}
	return index(filtered), nil
}

// index takes ownership of events, which must already be filtered.
func index(events []model.Event) *Dataset {
	slices.SortStableFunc(events, func(a, b model.Event) int {
		if c := strings.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		return a.Time.Compare(b.Time)
	})

	d := &Dataset{
		events: events,
		byUser: make(map[string][]model.Event),
		names:  make(map[string]EventSet),
	}

	for i := 0; i < len(events); {
		j := i
		for j < len(events) && events[j].UserID == events[i].UserID {
			j++
		}
		user := events[i].UserID
		d.users = append(d.users, user)
		d.byUser[user] = events[i:j:j]
		set := make(EventSet)
		for _, e := range events[i:j] {
			set[e.Name] = struct{}{}
		}
		d.names[user] = set
		i = j
	}

	for i, e := range events {
		if i == 0 || e.Time.Before(d.start) {
			d.start = e.Time
		}
		if i == 0 || e.Time.After(d.end) {
			d.end = e.Time
		}
	}
	return d
}

// Len returns the number of events.
func (d *Dataset) Len() int { return len(d.events) }

// Events returns all events ordered by user and time. Callers must not modify it.
func (d *Dataset) Events() []model.Event { return d.events }

// Users returns the distinct user ids in ascending order.
func (d *Dataset) Users() []string { return d.users }

// UserEvents returns one user's events in time order.
func (d *Dataset) UserEvents(user string) []model.Event { return d.byUser[user] }

// EventNames returns the set of names a user has ever triggered.
func (d *Dataset) EventNames(user string) EventSet { return d.names[user] }

// Start returns the earliest event time.
func (d *Dataset) Start() time.Time { return d.start }

// End returns the latest event time.
func (d *Dataset) End() time.Time { return d.end }

// Reaches reports whether the user's lifetime event set intersects names.
func (d *Dataset) Reaches(user string, names EventSet) bool {
	return d.names[user].Intersects(names)
}

// CountReaching counts users whose lifetime event set intersects names.
func (d *Dataset) CountReaching(names EventSet) int {
	n := 0
	for _, u := range d.users {
		if d.Reaches(u, names) {
			n++
		}
	}
	return n
}

// Split partitions the dataset at t: events strictly before t, and the rest.
// Either half may be empty.
func (d *Dataset) Split(t time.Time) (before, after *Dataset) {
	var b, a []model.Event
	for _, e := range d.events {
		if e.Time.Before(t) {
			b = append(b, e)
		} else {
			a = append(a, e)
		}
	}
	return index(b), index(a)
}

// DistinctNames returns every event name in ascending order.
func (d *Dataset) DistinctNames() []string {
	seen := make(EventSet)
	for _, e := range d.events {
		seen[e.Name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NameCounts returns event names by descending count, ties broken by name.
func (d *Dataset) NameCounts() []model.EventCount {
	counts := make(map[string]int)
	for _, e := range d.events {
		counts[e.Name]++
	}
	out := make([]model.EventCount, 0, len(counts))
	for n, c := range counts {
		out = append(out, model.EventCount{Event: n, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Event < out[j].Event
	})
	return out
}
