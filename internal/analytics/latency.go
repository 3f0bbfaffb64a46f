package analytics

// MaxTransitionSeconds bounds a valid transition; longer gaps are treated as
// abandonment rather than a real transition.
const MaxTransitionSeconds = 3600

// LatencyResult summarises the time users take to go from one event to another.
type LatencyResult struct {
	From   string    `json:"from"`
	To     string    `json:"to"`
	Median float64   `json:"median"`
	Mean   float64   `json:"mean"`
	P90    float64   `json:"p90"`
	N      int       `json:"n"`
	Values []float64 `json:"values,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Latency pairs each user's earliest from event with the earliest to event
// strictly after it, discards gaps of an hour or more, and summarises the rest.
// Values holds the samples clipped at their 95th percentile for display.
func Latency(d *Dataset, from, to string) LatencyResult {
	res := LatencyResult{From: from, To: to}

	var sawFrom, sawTo, sawPair bool
	var samples []float64
	for _, u := range d.Users() {
		events := d.UserEvents(u)
		start := -1
		for i, e := range events {
			if e.Name == from {
				start = i
				break
			}
		}
		if start >= 0 {
			sawFrom = true
		}
		for _, e := range events {
			if e.Name == to {
				sawTo = true
				break
			}
		}
		if start < 0 {
			continue
		}
		a := events[start].Time
		for _, e := range events[start+1:] {
			if e.Name == to && e.Time.After(a) {
				sawPair = true
				if lat := e.Time.Sub(a).Seconds(); lat < MaxTransitionSeconds {
					samples = append(samples, lat)
				}
				break
			}
		}
	}

	switch {
	case !sawFrom || !sawTo:
		res.Error = "no data"
		return res
	case !sawPair:
		res.Error = "no transitions"
		return res
	case len(samples) == 0:
		res.Error = "none within 1hr"
		return res
	}

	res.Median = Round(Median(samples), 1)
	res.Mean = Round(Mean(samples), 1)
	res.P90 = Round(Percentile(samples, 90), 1)
	res.N = len(samples)
	res.Values = ClipAtPercentile(samples, 95)
	return res
}
