package analytics

// SessionStats summarises sessions with more than one event.
type SessionStats struct {
	TotalSessions   int     `json:"total_sessions"`
	AvgDurSec       float64 `json:"avg_dur_sec"`
	MedianDurSec    float64 `json:"median_dur_sec"`
	AvgEvents       float64 `json:"avg_events"`
	AvgDepth        float64 `json:"avg_depth"`
	BouncePct       float64 `json:"bounce_pct"`
	SessionsPerUser float64 `json:"sessions_per_user"`
}

// SessionDistributions are the display series behind SessionStats.
type SessionDistributions struct {
	Durations       []float64 `json:"durations"`
	EventCounts     []float64 `json:"event_counts"`
	Depths          []float64 `json:"depths"`
	SessionsPerUser []float64 `json:"sessions_per_user"`
}

// SessionResult bundles the stats and distributions.
type SessionResult struct {
	Stats         SessionStats         `json:"stats"`
	Distributions SessionDistributions `json:"distributions"`
}

const (
	bounceMaxEvents       = 2
	sessionsPerUserCap    = 20
	sessionDisplayPercent = 95
)

// SessionMetrics computes duration, depth and bounce statistics. Sessions
// with a single event are ignored; a bounce is a session of at most two events.
func SessionMetrics(d *Dataset, markers EventSet) SessionResult {
	var durations, counts, depths []float64
	perUser := make(map[string]int)
	var users []string
	bounces := 0
	for _, s := range d.Sessions(markers) {
		if len(s.Events) <= 1 {
			continue
		}
		durations = append(durations, s.Duration())
		counts = append(counts, float64(len(s.Events)))
		depths = append(depths, float64(s.Depth()))
		if len(s.Events) <= bounceMaxEvents {
			bounces++
		}
		if perUser[s.UserID] == 0 {
			users = append(users, s.UserID)
		}
		perUser[s.UserID]++
	}

	n := len(durations)
	res := SessionResult{Distributions: SessionDistributions{
		Durations:       []float64{},
		EventCounts:     []float64{},
		Depths:          []float64{},
		SessionsPerUser: []float64{},
	}}
	if n == 0 {
		return res
	}

	res.Stats = SessionStats{
		TotalSessions:   n,
		AvgDurSec:       Round(Mean(durations), 1),
		MedianDurSec:    Round(Median(durations), 1),
		AvgEvents:       Round(Mean(counts), 1),
		AvgDepth:        Round(Mean(depths), 1),
		BouncePct:       pct(bounces, n, 1),
		SessionsPerUser: Round(float64(n)/float64(len(users)), 1),
	}

	spu := make([]float64, len(users))
	for i, u := range users {
		spu[i] = float64(perUser[u])
	}
	res.Distributions = SessionDistributions{
		Durations:       ClipAtPercentile(durations, sessionDisplayPercent),
		EventCounts:     ClipAtPercentile(counts, sessionDisplayPercent),
		Depths:          depths,
		SessionsPerUser: ClipUpper(spu, sessionsPerUserCap),
	}
	return res
}
