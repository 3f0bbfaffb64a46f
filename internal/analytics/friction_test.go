package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

func TestFriction(t *testing.T) {
	var events []model.Event
	// Two sessions, each tapping "retry" three times in a row.
	for s := 0; s < 2; s++ {
		off := time.Duration(s) * time.Hour
		events = append(events,
			ev("u1", "Session Started", off),
			ev("u1", "retry", off+time.Second),
			ev("u1", "retry", off+2*time.Second),
			ev("u1", "retry", off+3*time.Second),
			ev("u1", "view", off+4*time.Second),
		)
	}
	d := mustDataset(t, events...)

	got := Friction(d, testMarkers, 1, 12)
	require.NotEmpty(t, got)

	top := got[0]
	assert.Equal(t, "retry", top.Event)
	assert.Equal(t, 6, top.Total)
	assert.Equal(t, 4, top.Repeats)
	assert.Equal(t, 2, top.Sessions)
	assert.Equal(t, 66.7, top.RepeatRate)
	assert.Equal(t, 3.0, top.AvgPerSession)
	assert.Equal(t, Round(66.7*math.Log1p(3), 1), top.Score)

	for _, f := range got[1:] {
		assert.Equal(t, 0.0, f.Score)
	}
}

func TestFrictionRepeatsDoNotCrossSessions(t *testing.T) {
	d := mustDataset(t,
		ev("u1", "Session Started", 0),
		ev("u1", "x", time.Second),
		ev("u1", "Session Started", time.Minute),
		ev("u1", "Session Started", 2*time.Minute),
	)

	got := Friction(d, testMarkers, 1, 0)
	for _, f := range got {
		assert.Equal(t, 0, f.Repeats, f.Event)
	}
}

func TestFrictionMinTotalAndTopK(t *testing.T) {
	var events []model.Event
	names := []string{"a", "b", "c", "d"}
	for i, n := range names {
		for k := 0; k <= i*5; k++ {
			events = append(events, ev("u1", n, time.Duration(i*100+k)*time.Second))
		}
	}
	d := mustDataset(t, events...)

	got := Friction(d, testMarkers, 6, 2)
	require.Len(t, got, 2)
	for _, f := range got {
		assert.GreaterOrEqual(t, f.Total, 6)
	}
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
}
