package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

func TestNewDatasetFiltersCategory(t *testing.T) {
	sys := ev("u1", "heartbeat", 0)
	sys.Category = "system"
	d := mustDataset(t,
		ev("u2", "b", time.Minute),
		sys,
		ev("u1", "a", 0),
		ev("u2", "a", 0),
	)

	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []string{"u1", "u2"}, d.Users())
	for _, e := range d.Events() {
		assert.Equal(t, model.ApplicationCategory, e.Category)
	}
	u2 := d.UserEvents("u2")
	require.Len(t, u2, 2)
	assert.Equal(t, "a", u2[0].Name)
	assert.Equal(t, "b", u2[1].Name)
	assert.True(t, d.EventNames("u2").Has("b"))
	assert.False(t, d.EventNames("u1").Has("b"))
}

func TestNewDatasetEmpty(t *testing.T) {
	sys := ev("u1", "heartbeat", 0)
	sys.Category = "system"

	_, err := NewDataset([]model.Event{sys})
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = NewDataset(nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestDatasetSplit(t *testing.T) {
	d := mustDataset(t,
		ev("u1", "a", 0),
		ev("u1", "b", 2*time.Hour),
		ev("u2", "a", 4*time.Hour),
	)

	h := SplitHalves(d)
	assert.Equal(t, base.Add(2*time.Hour), h.Mid)
	assert.Equal(t, 1, h.T1.Len())
	assert.Equal(t, 2, h.T2.Len())
	assert.Equal(t, []string{"u1", "u2"}, h.T2.Users())
}

func TestNameCountsTieBreak(t *testing.T) {
	d := mustDataset(t,
		ev("u1", "b", 0),
		ev("u1", "a", time.Second),
		ev("u2", "c", 0),
		ev("u2", "c", time.Second),
	)

	got := d.NameCounts()
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].Event)
	assert.Equal(t, "a", got[1].Event)
	assert.Equal(t, "b", got[2].Event)
}
