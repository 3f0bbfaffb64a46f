package analytics

// DayNames orders the heatmap rows, Monday first.
var DayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// TemporalResult is a day-of-week by hour-of-day activity heatmap.
type TemporalResult struct {
	PeakHour int        `json:"peak_hour"`
	OffHour  int        `json:"off_hour"`
	PeakDay  string     `json:"peak_day"`
	LowDay   string     `json:"low_day"`
	Ratio    float64    `json:"ratio"`
	Matrix   [7][24]int `json:"matrix"`
	Hourly   [24]int    `json:"hourly"`
	Daily    [7]int     `json:"daily"`
}

// Temporal buckets events by UTC weekday and hour. Peak and off-peak values
// only consider buckets with at least one event.
func Temporal(d *Dataset) TemporalResult {
	var res TemporalResult
	for _, e := range d.Events() {
		t := e.Time.UTC()
		day := (int(t.Weekday()) + 6) % 7
		res.Matrix[day][t.Hour()]++
		res.Hourly[t.Hour()]++
		res.Daily[day]++
	}

	peakH, offH := extremes(res.Hourly[:])
	peakD, lowD := extremes(res.Daily[:])
	if peakH < 0 {
		return res
	}
	res.PeakHour, res.OffHour = peakH, offH
	res.PeakDay, res.LowDay = DayNames[peakD], DayNames[lowD]
	if lo := res.Hourly[offH]; lo > 0 {
		res.Ratio = Round(float64(res.Hourly[peakH])/float64(lo), 1)
	}
	return res
}

// extremes returns the first index of the largest and smallest non-zero
// counts, or -1, -1 when every count is zero.
func extremes(counts []int) (maxIdx, minIdx int) {
	maxIdx, minIdx = -1, -1
	for i, c := range counts {
		if c == 0 {
			continue
		}
		if maxIdx < 0 || c > counts[maxIdx] {
			maxIdx = i
		}
		if minIdx < 0 || c < counts[minIdx] {
			minIdx = i
		}
	}
	return maxIdx, minIdx
}
