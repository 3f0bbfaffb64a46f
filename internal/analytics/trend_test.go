package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSplitHalves(t *testing.T) {
	day := 24 * time.Hour
	d := mustDataset(t,
		ev("u1", "app_start", 0),
		ev("u1", "app_start", 10*day),
		ev("u2", "app_start", 6*day),
	)

	h := SplitHalves(d)
	assert.Equal(t, base.Add(5*day), h.Mid)

	trend := Compare(h, func(d *Dataset) int { return len(d.Users()) })
	assert.Equal(t, 1, trend.T1)
	assert.Equal(t, 2, trend.T2)
	assert.Equal(t, "01-Jan to 06-Jan vs 06-Jan to 11-Jan", trend.Window)
}

func TestOverviewFunnel(t *testing.T) {
	d := mustDataset(t, buildUsers(map[string][]string{
		"u1": {"bus_search", "bus_result", "payment_success"},
		"u2": {"bus_search"},
		"u3": {"app_start"},
	})...)

	fn := OverviewFunnel(NewEventSet("payment_success"), NewEventSet("bus_search"), NewEventSet("bus_result"))
	got := fn(d)
	assert.Equal(t, 33.33, got.Conversion)
	assert.Equal(t, 50.0, got.SearchDropoff)
}

func TestOverviewOnEmptyHalf(t *testing.T) {
	d := mustDataset(t, ev("u1", "app_start", 0))
	h := SplitHalves(d)

	trend := Compare(h, OverviewFunnel(NewEventSet("payment_success"), NewEventSet("bus_search"), NewEventSet("bus_result")))
	assert.Equal(t, FunnelOverview{}, trend.T1)
	assert.Equal(t, FunnelOverview{}, trend.T2)
}
