package analytics

import (
	"github.com/capitalize-ai/journey-analytics/internal/model"
)

// FunnelStage is the reachability count of one stage. ConvFromPrev and Lost
// are set for every stage after the first. Lost is negative when a later
// stage's event set is reached by users who missed the previous one.
type FunnelStage struct {
	Stage        string   `json:"stage"`
	Users        int      `json:"users"`
	Pct          float64  `json:"pct"`
	ConvFromPrev *float64 `json:"conv_from_prev,omitempty"`
	Lost         *int     `json:"lost,omitempty"`
}

// Funnel counts, for each stage in order, the users whose lifetime event set
// intersects the stage's qualifying events.
func Funnel(d *Dataset, stages []model.StageDefinition) []FunnelStage {
	total := len(d.Users())
	out := make([]FunnelStage, len(stages))
	for i, s := range stages {
		c := d.CountReaching(NewEventSet(s.Events...))
		out[i] = FunnelStage{Stage: s.Name, Users: c, Pct: pct(c, total, 1)}
		if i == 0 {
			continue
		}
		prev := out[i-1].Users
		conv := pct(c, prev, 1)
		lost := prev - c
		out[i].ConvFromPrev = &conv
		out[i].Lost = &lost
	}
	return out
}

// Dropoff is one stage-to-stage transition.
type Dropoff struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Lost    int     `json:"lost"`
	PctLost float64 `json:"pct"`
}

// DropoffResult holds the transitions plus the per-stage counts they derive from.
type DropoffResult struct {
	Transitions []Dropoff `json:"transitions"`
	Counts      []int     `json:"counts"`
	Labels      []string  `json:"labels"`
}

// Dropoffs reports the users lost between consecutive stages on the same
// reachability basis as Funnel.
func Dropoffs(d *Dataset, stages []model.StageDefinition) DropoffResult {
	res := DropoffResult{
		Transitions: []Dropoff{},
		Counts:      make([]int, len(stages)),
		Labels:      make([]string, len(stages)),
	}
	for i, s := range stages {
		res.Counts[i] = d.CountReaching(NewEventSet(s.Events...))
		res.Labels[i] = s.Name
	}
	for i := 1; i < len(stages); i++ {
		lost := res.Counts[i-1] - res.Counts[i]
		res.Transitions = append(res.Transitions, Dropoff{
			From:    res.Labels[i-1],
			To:      res.Labels[i],
			Lost:    lost,
			PctLost: pct(lost, res.Counts[i-1], 1),
		})
	}
	return res
}
