package analytics

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

func TestOrdinals(t *testing.T) {
	events := []model.Event{
		ev("u", "app_start", 0),
		ev("u", "Session Started", time.Second),
		ev("u", "bus_search", 2*time.Second),
		ev("u", "User Login", 3*time.Second),
		ev("u", "Session Started", 4*time.Second),
		ev("u", "bus_result", 5*time.Second),
	}
	assert.Equal(t, []int{0, 1, 1, 2, 3, 3}, Ordinals(events, testMarkers))
}

func TestReconstructNoMarkers(t *testing.T) {
	sessions := Reconstruct([]model.Event{
		ev("u", "b", time.Minute),
		ev("u", "a", 0),
	}, testMarkers)

	require.Len(t, sessions, 1)
	assert.Equal(t, 0, sessions[0].Ordinal)
	assert.Equal(t, "a", sessions[0].Events[0].Name)
	assert.Equal(t, 60.0, sessions[0].Duration())
	assert.Equal(t, 2, sessions[0].Depth())
}

func TestReconstructOrdering(t *testing.T) {
	names := []string{"a", "b", "Session Started", "c", "User Login"}
	rng := rand.New(rand.NewSource(42))
	var events []model.Event
	for i := 0; i < 200; i++ {
		offset := time.Duration(rng.Intn(10000)) * time.Second
		events = append(events, ev("u", names[rng.Intn(len(names))], offset))
	}

	sessions := Reconstruct(events, testMarkers)

	total := 0
	prevOrdinal := -1
	var prevEnd time.Time
	for _, s := range sessions {
		assert.Greater(t, s.Ordinal, prevOrdinal)
		prevOrdinal = s.Ordinal
		for i, e := range s.Events {
			if i > 0 {
				assert.False(t, e.Time.Before(s.Events[i-1].Time))
			}
			if i > 0 {
				assert.False(t, testMarkers.Has(e.Name), "marker must open a session")
			}
		}
		assert.False(t, s.Events[0].Time.Before(prevEnd))
		prevEnd = s.Events[len(s.Events)-1].Time
		total += len(s.Events)
	}
	assert.Equal(t, len(events), total)
}

func TestDatasetSessions(t *testing.T) {
	d := mustDataset(t,
		ev("u2", "a", 0),
		ev("u1", "Session Started", 0),
		ev("u1", "a", time.Second),
		ev("u1", "Session Started", time.Hour),
	)

	sessions := d.Sessions(testMarkers)
	require.Len(t, sessions, 3)
	assert.Equal(t, "u1", sessions[0].UserID)
	assert.Equal(t, 1, sessions[0].Ordinal)
	assert.Len(t, sessions[0].Events, 2)
	assert.Equal(t, 2, sessions[1].Ordinal)
	assert.Equal(t, "u2", sessions[2].UserID)
	assert.Equal(t, 0, sessions[2].Ordinal)
}
