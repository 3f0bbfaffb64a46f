package analytics

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestDBSCAN(t *testing.T) {
	tests := []struct {
		name       string
		points     []float64
		eps        float64
		minSamples int
		want       []int
	}{
		{
			name:       "two clusters and noise",
			points:     []float64{0, 0.1, 0.2, 5, 5.1, 5.2, 10},
			eps:        0.5,
			minSamples: 3,
			want:       []int{0, 0, 0, 1, 1, 1, NoiseLabel},
		},
		{
			name:       "border points join the cluster",
			points:     []float64{0, 0.4, 0.8, 1.2},
			eps:        0.5,
			minSamples: 3,
			want:       []int{0, 0, 0, 0},
		},
		{
			name:       "distance equal to eps is a neighbour",
			points:     []float64{0, 1},
			eps:        1,
			minSamples: 2,
			want:       []int{0, 0},
		},
		{
			name:       "all noise",
			points:     []float64{0, 10, 20},
			eps:        1,
			minSamples: 2,
			want:       []int{NoiseLabel, NoiseLabel, NoiseLabel},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := mat.NewDense(len(tt.points), 1, tt.points)
			assert.Equal(t, tt.want, DBSCAN(x, tt.eps, tt.minSamples))
		})
	}
}

func TestStandardize(t *testing.T) {
	x := Standardize([][]float64{
		{1, 7},
		{2, 7},
		{3, 7},
	})

	col := mat.Col(nil, 0, x)
	mean, std := stat.PopMeanStdDev(col, nil)
	assert.InDelta(t, 0, mean, 1e-12)
	assert.InDelta(t, 1, std, 1e-12)
	assert.Equal(t, []float64{0, 0, 0}, mat.Col(nil, 1, x))
}

func segmentationUsers() map[string][]string {
	users := make(map[string][]string)
	for i := 0; i < 10; i++ {
		users[fmt.Sprintf("a%02d", i)] = []string{"x", "x", "x", "x", "x"}
		users[fmt.Sprintf("b%02d", i)] = []string{"Session Started", "payment_success", "Session Started", "payment_success", "payment_success"}
	}
	return users
}

func TestSegment(t *testing.T) {
	d := mustDataset(t, buildUsers(segmentationUsers())...)
	booking := NewEventSet("payment_success", "book_ticket", "Booking_to_Ticket", "payment_initiate")

	got, err := Segment(d, testMarkers, booking, 1.2, 10)
	require.NoError(t, err)

	require.Len(t, got.Segments, 2)
	assert.Equal(t, SegmentProfile{Label: "Segment 0", ID: 0, Size: 10, Pct: 50, AvgEvents: 5, BookingRate: 0}, got.Segments[0])
	assert.Equal(t, SegmentProfile{Label: "Segment 1", ID: 1, Size: 10, Pct: 50, AvgEvents: 5, BookingRate: 100}, got.Segments[1])

	require.Len(t, got.Scatter.Labels, 20)
	require.Len(t, got.Scatter.X, 20)
	for _, v := range append(got.Scatter.X, got.Scatter.Y...) {
		assert.False(t, math.IsNaN(v))
	}

	again, err := Segment(d, testMarkers, booking, 1.2, 10)
	require.NoError(t, err)
	assert.Equal(t, got.Scatter.Labels, again.Scatter.Labels)
}

func TestSegmentOutliers(t *testing.T) {
	d := mustDataset(t, buildUsers(segmentationUsers())...)

	got, err := Segment(d, testMarkers, NewEventSet("payment_success"), 1.2, 11)
	require.NoError(t, err)

	require.Len(t, got.Segments, 1)
	assert.Equal(t, "Outliers", got.Segments[0].Label)
	assert.Equal(t, NoiseLabel, got.Segments[0].ID)
	assert.Equal(t, 100.0, got.Segments[0].Pct)
}

func TestSegmentInvalidParams(t *testing.T) {
	d := mustDataset(t, buildUsers(segmentationUsers())...)

	_, err := Segment(d, testMarkers, nil, 0, 10)
	assert.Error(t, err)
}

func TestBuildFeatures(t *testing.T) {
	d := mustDataset(t, buildUsers(map[string][]string{
		"u": {"Session Started", "a", "a", "Session Started", "payment_initiate"},
	})...)

	got := BuildFeatures(d, testMarkers, NewEventSet("payment_initiate"))

	require.Len(t, got, 1)
	assert.Equal(t, UserFeatures{
		UserID:           "u",
		TotalEvents:      5,
		UniqueEventTypes: 3,
		SessionCount:     2,
		SpanDays:         0,
		EventsPerSession: 2.5,
		DiversityRatio:   0.6,
		Booked:           true,
	}, got[0])
}

// varied gives user i a distinct mix of events so no feature column is constant.
func varied(n int) map[string][]string {
	users := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		names := []string{"Session Started"}
		for k := 0; k <= i; k++ {
			names = append(names, fmt.Sprintf("e%d", k%3))
		}
		if i%2 == 1 {
			names = append(names, "Session Started", "payment_success")
		}
		users[fmt.Sprintf("u%02d", i)] = names
	}
	return users
}

func TestSegmentUserCounts(t *testing.T) {
	tests := []struct {
		name  string
		users int
	}{
		{name: "single user", users: 1},
		{name: "fewer users than features", users: 3},
		{name: "as many users as features", users: 6},
		{name: "more users than features", users: 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := mustDataset(t, buildUsers(varied(tt.users))...)

			var got SegmentationResult
			var err error
			require.NotPanics(t, func() {
				got, err = Segment(d, testMarkers, NewEventSet("payment_success"), 1.2, 2)
			})
			require.NoError(t, err)

			assert.Len(t, got.Scatter.Labels, tt.users)
			assert.Len(t, got.Scatter.X, tt.users)
			assert.Len(t, got.Scatter.Y, tt.users)
			for _, v := range append(got.Scatter.X, got.Scatter.Y...) {
				assert.False(t, math.IsNaN(v))
			}
			size := 0
			for _, s := range got.Segments {
				size += s.Size
			}
			assert.Equal(t, tt.users, size)
		})
	}
}

func TestProjectFewerRowsThanColumns(t *testing.T) {
	x := Standardize([][]float64{
		{1, 2, 3, 4, 5, 6},
		{2, 2, 1, 4, 9, 6},
		{3, 5, 3, 1, 5, 0},
	})

	var xs, ys []float64
	require.NotPanics(t, func() { xs, ys = Project(x) })

	require.Len(t, xs, 3)
	require.Len(t, ys, 3)
	assert.NotEqual(t, []float64{0, 0, 0}, xs)
}
