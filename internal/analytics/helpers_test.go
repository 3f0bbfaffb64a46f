package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// base is a Monday.
var base = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func ev(user, name string, offset time.Duration) model.Event {
	return model.Event{
		UserID:   user,
		Name:     name,
		Time:     base.Add(offset),
		Category: model.ApplicationCategory,
	}
}

func mustDataset(t *testing.T, events ...model.Event) *Dataset {
	t.Helper()
	d, err := NewDataset(events)
	require.NoError(t, err)
	return d
}

// buildUsers emits each user's event names one second apart.
func buildUsers(users map[string][]string) []model.Event {
	var out []model.Event
	for u, names := range users {
		for i, n := range names {
			out = append(out, ev(u, n, time.Duration(i)*time.Second))
		}
	}
	return out
}

var testMarkers = NewEventSet("Session Started", "Journey Started", "App Installed", "User Login")
