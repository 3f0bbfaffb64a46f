package dataset

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/journey-analytics/internal/config"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05T10:15:30Z", time.Date(2024, 3, 5, 10, 15, 30, 0, time.UTC)},
		{"2024-03-05T12:15:30+02:00", time.Date(2024, 3, 5, 10, 15, 30, 0, time.UTC)},
		{"2024-03-05 10:15:30.250+00:00", time.Date(2024, 3, 5, 10, 15, 30, 250_000_000, time.UTC)},
		{"2024-03-05 10:15:30", time.Date(2024, 3, 5, 10, 15, 30, 0, time.UTC)},
		{"2024-03-05T10:15:30.5", time.Date(2024, 3, 5, 10, 15, 30, 500_000_000, time.UTC)},
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}

func TestParseCSV(t *testing.T) {
	data := strings.Join([]string{
		"user_uuid,event_name,event_time,category,event_day",
		"u1,Search,2024-03-05 10:00:00,application,Tuesday",
		"u1,Hotel Selected,2024-03-05T10:01:00Z,application,Tuesday",
		`u2,"Payment, Initiated",2024-03-06 09:00:00,application,Wednesday`,
		"u2,Search,not-a-time,application,Wednesday",
		",Search,2024-03-06 09:00:00,application,Wednesday",
		"u3,Push Received,2024-03-06 09:00:00,push",
	}, "\n")

	events, err := ParseCSV(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, "u1", events[0].UserID)
	assert.Equal(t, "Search", events[0].Name)
	assert.Equal(t, "application", events[0].Category)
	assert.Equal(t, "Tuesday", events[0].Day)
	assert.Equal(t, "Payment, Initiated", events[2].Name)
	assert.Equal(t, "push", events[3].Category)
	assert.Empty(t, events[3].Day)
}

func TestParseCSVErrors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyDataset)

	_, err = ParseCSV(strings.NewReader("user_uuid,event_name,category\nu1,a,application\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event_time")

	_, err = ParseCSV(strings.NewReader("user_uuid,event_name,event_time,category\n"))
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestCSVSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"\ufeffUser_UUID , event_name,event_time,category\nu1,a,2024-01-01 00:00:00,application\n"), 0o644))

	src := NewCSVSource(path)
	assert.Equal(t, "csv:"+path, src.Describe())

	events, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "u1", events[0].UserID)

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "missing.csv")).Load(context.Background())
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	cfg := &config.Config{EventSource: "csv", DatasetPath: "data/events.csv"}

	src, err := Open(context.Background(), cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "csv:data/events.csv", src.Describe())

	src, err = Open(context.Background(), cfg, "other.csv")
	require.NoError(t, err)
	assert.Equal(t, "csv:other.csv", src.Describe())

	_, err = Open(context.Background(), &config.Config{EventSource: "parquet"}, "")
	assert.Error(t, err)

	_, err = Open(context.Background(), &config.Config{EventSource: "clickhouse", ClickHouseTable: "events"}, "")
	assert.Error(t, err)
}

func TestSelectEventsQuery(t *testing.T) {
	q := selectEventsQuery("analytics.events")
	assert.Contains(t, q, "FROM analytics.events")
	assert.Contains(t, q, "WHERE category = ?")

	for _, name := range []string{"events", "db.events", "_raw"} {
		assert.True(t, identRe.MatchString(name), name)
	}
	for _, name := range []string{"", "events; DROP TABLE x", "1events", "a.b.c"} {
		assert.False(t, identRe.MatchString(name), name)
	}
}
