package model

// StageDefinition names a funnel stage and the event names that qualify a user for it.
type StageDefinition struct {
	Name   string   `json:"name" yaml:"name"`
	Events []string `json:"events" yaml:"events"`
}

// EventPair is an ordered (from, to) pair used for time-to-action latency.
type EventPair struct {
	From string `json:"from_event" yaml:"from"`
	To   string `json:"to_event" yaml:"to"`
}
