package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// Column names expected in the CSV header. The day-of-week column is
// optional and may be named either event_day or day.
const (
	ColUser     = "user_uuid"
	ColEvent    = "event_name"
	ColTime     = "event_time"
	ColCategory = "category"
	ColDay      = "event_day"
	colDayAlt   = "day"
)

// timeLayouts are tried in order; layouts without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses an event timestamp in any of the accepted layouts and
// returns it in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// CSVSource reads events from a CSV file on disk.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source for the file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Describe returns the file path.
func (s *CSVSource) Describe() string {
	return "csv:" + s.path
}

// Load reads the whole file.
func (s *CSVSource) Load(_ context.Context) ([]model.Event, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	events, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return events, nil
}

// ParseCSV parses an event log. Rows that are malformed or carry an
// unparseable timestamp are skipped; a missing required column is an error.
func ParseCSV(r io.Reader) ([]model.Event, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	idx := map[string]int{}
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range []string{ColUser, ColEvent, ColTime, ColCategory} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}
	dayCol, hasDay := idx[ColDay]
	if !hasDay {
		dayCol, hasDay = idx[colDayAlt]
	}

	field := func(row []string, col int) string {
		if col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	var events []model.Event
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed rows
		}

		user := field(row, idx[ColUser])
		name := field(row, idx[ColEvent])
		if user == "" || name == "" {
			continue
		}
		ts, err := ParseTime(field(row, idx[ColTime]))
		if err != nil {
			continue
		}
		ev := model.Event{
			UserID:   user,
			Name:     name,
			Time:     ts,
			Category: field(row, idx[ColCategory]),
		}
		if hasDay {
			ev.Day = field(row, dayCol)
		}
		events = append(events, ev)
	}

	if len(events) == 0 {
		return nil, ErrEmptyDataset
	}
	return events, nil
}
