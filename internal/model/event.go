package model

import (
	"time"
)

// ApplicationCategory is the only event category visible to the analytics engine.
const ApplicationCategory = "application"

// Event is a single row of the raw event log.
type Event struct {
	UserID   string    `json:"user_uuid"`
	Name     string    `json:"event_name"`
	Time     time.Time `json:"event_time"`
	Category string    `json:"category"`

	// Day is the optional precomputed day-of-week column.
	Day string `json:"event_day,omitempty"`
}

// IsApplication reports whether the event belongs to the application category.
func (e Event) IsApplication() bool {
	return e.Category == ApplicationCategory
}
