package analytics

import (
	"time"
)

// Halves splits the dataset at the midpoint between its first and last event.
// T1 holds events strictly before the midpoint, T2 the rest.
type Halves struct {
	Start time.Time
	Mid   time.Time
	End   time.Time
	T1    *Dataset
	T2    *Dataset
}

// SplitHalves divides d at its time midpoint.
func SplitHalves(d *Dataset) Halves {
	mid := d.Start().Add(d.End().Sub(d.Start()) / 2)
	t1, t2 := d.Split(mid)
	return Halves{Start: d.Start(), Mid: mid, End: d.End(), T1: t1, T2: t2}
}

// Trend pairs the same overview computed on each half.
type Trend[T any] struct {
	T1     T      `json:"t1"`
	T2     T      `json:"t2"`
	Window string `json:"window"`
}

// Compare computes fn on both halves.
func Compare[T any](h Halves, fn func(*Dataset) T) Trend[T] {
	return Trend[T]{
		T1:     fn(h.T1),
		T2:     fn(h.T2),
		Window: h.Describe(),
	}
}

// Describe renders the two windows, e.g. "02-Jan to 15-Jan vs 15-Jan to 29-Jan".
func (h Halves) Describe() string {
	const layout = "02-Jan"
	return h.Start.Format(layout) + " to " + h.Mid.Format(layout) +
		" vs " + h.Mid.Format(layout) + " to " + h.End.Format(layout)
}

// FunnelOverview is the compact funnel view used for trend comparison.
type FunnelOverview struct {
	Conversion    float64 `json:"funnel_conversion"`
	SearchDropoff float64 `json:"search_dropoff"`
}

// OverviewFunnel reports look-to-book conversion and the share of searchers
// who never saw results.
func OverviewFunnel(success, search, results EventSet) func(*Dataset) FunnelOverview {
	return func(d *Dataset) FunnelOverview {
		total := len(d.Users())
		if total == 0 {
			return FunnelOverview{}
		}
		searched := d.CountReaching(search)
		viewed := d.CountReaching(results)
		return FunnelOverview{
			Conversion:    pct(d.CountReaching(success), total, 2),
			SearchDropoff: pct(searched-viewed, searched, 1),
		}
	}
}

// SessionOverview is the compact session view used for trend comparison.
type SessionOverview struct {
	Sessions  int     `json:"sessions"`
	AvgDurSec float64 `json:"avg_dur"`
	BouncePct float64 `json:"bounce"`
}

// OverviewSessions reports session count, mean duration and bounce rate.
func OverviewSessions(markers EventSet) func(*Dataset) SessionOverview {
	return func(d *Dataset) SessionOverview {
		s := SessionMetrics(d, markers).Stats
		return SessionOverview{Sessions: s.TotalSessions, AvgDurSec: s.AvgDurSec, BouncePct: s.BouncePct}
	}
}

// ConversionOverview is the compact conversion view used for trend comparison.
type ConversionOverview struct {
	Conversion float64 `json:"conversion"`
	PaySuccess float64 `json:"pay_success"`
}

// OverviewConversion reports overall conversion and payment success rate.
func OverviewConversion(ev ConversionEvents) func(*Dataset) ConversionOverview {
	return func(d *Dataset) ConversionOverview {
		c := Conversion(d, ev)
		return ConversionOverview{Conversion: c.ConvPct, PaySuccess: c.PaySuccessPct}
	}
}
