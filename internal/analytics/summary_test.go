package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

func TestSummarize(t *testing.T) {
	d := mustDataset(t,
		ev("u1", "a", 0),
		ev("u1", "b", time.Hour),
		ev("u2", "a", 35*24*time.Hour),
	)

	got := Summarize(d)

	assert.Equal(t, 3, got.TotalEvents)
	assert.Equal(t, 2, got.TotalUsers)
	assert.Equal(t, 2, got.TotalEventTypes)
	assert.Equal(t, 36, got.DaysCovered)
	assert.Equal(t, "01 Jan - 05 Feb 2024", got.DateRangeStr)
	assert.Equal(t, "Monday", got.PeakDay)
	assert.Equal(t, model.ApplicationCategory, got.CategoryFilter)
	require.Len(t, got.TopEvents, 2)
	assert.Equal(t, "a", got.TopEvents[0].Event)
	assert.Equal(t, 2, got.TopEvents[0].Count)
}

func TestSummarizePeakDayColumn(t *testing.T) {
	a := ev("u1", "a", 0)
	a.Day = "Sat"
	b := ev("u1", "a", time.Hour)
	b.Day = "Fri"
	c := ev("u2", "a", 0)
	c.Day = "Sat"
	d := mustDataset(t, a, b, c)

	assert.Equal(t, "Sat", Summarize(d).PeakDay)
}

func TestCountUsersWithEvents(t *testing.T) {
	d := mustDataset(t, ev("u1", "a", 0), ev("u2", "b", 0), ev("u3", "c", 0))

	got := CountUsersWithEvents(d, []string{"a", "b"})

	assert.Equal(t, UserMatch{Matching: 2, Total: 3, Pct: 66.67}, got)
}

func TestTrendOverviews(t *testing.T) {
	d := mustDataset(t,
		ev("u1", "bus_search", 0),
		ev("u1", "bus_result", time.Second),
		ev("u2", "bus_search", time.Second),
		ev("u3", "bus_search", 10*time.Hour),
		ev("u3", "payment_success", 10*time.Hour+time.Second),
	)
	h := SplitHalves(d)

	got := Compare(h, OverviewFunnel(
		NewEventSet("payment_success"),
		NewEventSet("bus_search"),
		NewEventSet("bus_result"),
	))

	assert.Equal(t, FunnelOverview{Conversion: 0, SearchDropoff: 50}, got.T1)
	assert.Equal(t, FunnelOverview{Conversion: 100, SearchDropoff: 100}, got.T2)
	assert.Contains(t, got.Window, " vs ")

	conv := Compare(h, OverviewConversion(testConversion))
	assert.Equal(t, 100.0, conv.T2.Conversion)
}
