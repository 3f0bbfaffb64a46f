package analytics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// NoiseLabel is the cluster id of users no dense region could absorb.
const NoiseLabel = -1

// UserFeatures is the behavioural feature vector of one user.
type UserFeatures struct {
	UserID           string  `json:"user_id"`
	TotalEvents      int     `json:"total_events"`
	UniqueEventTypes int     `json:"unique_event_types"`
	SessionCount     int     `json:"session_count"`
	SpanDays         int     `json:"activity_span_days"`
	EventsPerSession float64 `json:"events_per_session"`
	DiversityRatio   float64 `json:"diversity_ratio"`
	Booked           bool    `json:"booked"`
}

func (f UserFeatures) vector() []float64 {
	return []float64{
		float64(f.TotalEvents),
		float64(f.UniqueEventTypes),
		float64(f.SessionCount),
		float64(f.SpanDays),
		f.EventsPerSession,
		f.DiversityRatio,
	}
}

// SegmentProfile describes one cluster.
type SegmentProfile struct {
	Label       string  `json:"label"`
	ID          int     `json:"id"`
	Size        int     `json:"size"`
	Pct         float64 `json:"pct"`
	AvgEvents   float64 `json:"avg_events"`
	BookingRate float64 `json:"booking_rate"`
}

// Scatter is the 2-D principal component projection of every user.
type Scatter struct {
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
	Labels []int     `json:"labels"`
}

// SegmentationResult is the outcome of behavioural segmentation.
type SegmentationResult struct {
	Segments []SegmentProfile `json:"segments"`
	Scatter  Scatter          `json:"scatter"`
	Eps      float64          `json:"eps"`
	MinPts   int              `json:"min_samples"`
}

// BuildFeatures derives one feature vector per user, in user order.
func BuildFeatures(d *Dataset, markers, booking EventSet) []UserFeatures {
	out := make([]UserFeatures, 0, len(d.Users()))
	for _, u := range d.Users() {
		events := d.UserEvents(u)
		ords := Ordinals(events, markers)
		names := d.EventNames(u)
		f := UserFeatures{
			UserID:           u,
			TotalEvents:      len(events),
			UniqueEventTypes: len(names),
			SessionCount:     ords[len(ords)-1],
			SpanDays:         int(events[len(events)-1].Time.Sub(events[0].Time).Hours() / 24),
			Booked:           names.Intersects(booking),
		}
		f.EventsPerSession = Round(float64(f.TotalEvents)/float64(max(f.SessionCount, 1)), 1)
		f.DiversityRatio = Round(float64(f.UniqueEventTypes)/float64(f.TotalEvents), 3)
		out = append(out, f)
	}
	return out
}

// Standardize scales each column to zero mean and unit population variance.
// Constant columns are centred but not scaled.
func Standardize(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	n, p := len(rows), len(rows[0])
	x := mat.NewDense(n, p, nil)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := range rows {
			col[i] = rows[i][j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		for i := range rows {
			x.Set(i, j, (rows[i][j]-mean)/std)
		}
	}
	return x
}

// DBSCAN labels each row of x with a cluster id or NoiseLabel. A point is a
// core point when at least minSamples points, itself included, lie within
// eps. Clusters are numbered in order of their first core point.
func DBSCAN(x mat.Matrix, eps float64, minSamples int) []int {
	n, _ := x.Dims()
	points := make([][]float64, n)
	for i := range points {
		points[i] = mat.Row(nil, i, x)
	}
	neighbors := make([][]int, n)
	eps2 := eps * eps
	for i, ri := range points {
		for j, rj := range points {
			var d2 float64
			for k := range ri {
				diff := ri[k] - rj[k]
				d2 += diff * diff
			}
			if d2 <= eps2 {
				neighbors[i] = append(neighbors[i], j)
			}
		}
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}
	core := func(i int) bool { return len(neighbors[i]) >= minSamples }

	next := 0
	var stack []int
	for i := 0; i < n; i++ {
		if labels[i] != NoiseLabel || !core(i) {
			continue
		}
		cur := i
		for {
			if labels[cur] == NoiseLabel {
				labels[cur] = next
				if core(cur) {
					for _, v := range neighbors[cur] {
						if labels[v] == NoiseLabel {
							stack = append(stack, v)
						}
					}
				}
			}
			if len(stack) == 0 {
				break
			}
			cur = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
		next++
	}
	return labels
}

// Project returns the coordinates of x on its first two principal axes.
// Both slices are zero when fewer than two rows are available.
func Project(x *mat.Dense) (xs, ys []float64) {
	n, _ := x.Dims()
	xs, ys = make([]float64, n), make([]float64, n)
	if n < 2 {
		return xs, ys
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return xs, ys
	}
	// vecs is p×min(n,p); with fewer users than features it has fewer
	// columns than rows.
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	r, c := vecs.Dims()
	k := min(2, c)

	var proj mat.Dense
	proj.Mul(x, vecs.Slice(0, r, 0, k))
	for i := 0; i < n; i++ {
		xs[i] = proj.At(i, 0)
		if k > 1 {
			ys[i] = proj.At(i, 1)
		}
	}
	return xs, ys
}

// Segment builds feature vectors, standardises them, clusters with DBSCAN
// and profiles each cluster. Results are deterministic for a given dataset.
func Segment(d *Dataset, markers, booking EventSet, eps float64, minSamples int) (SegmentationResult, error) {
	feats := BuildFeatures(d, markers, booking)
	if len(feats) == 0 {
		return SegmentationResult{}, ErrEmptyDataset
	}
	if eps <= 0 || minSamples < 1 {
		return SegmentationResult{}, fmt.Errorf("invalid clustering parameters: eps=%v min_samples=%d", eps, minSamples)
	}

	rows := make([][]float64, len(feats))
	for i, f := range feats {
		rows[i] = f.vector()
	}
	x := Standardize(rows)
	labels := DBSCAN(x, eps, minSamples)
	xs, ys := Project(x)

	type acc struct {
		size, events, booked int
	}
	groups := make(map[int]*acc)
	for i, f := range feats {
		a := groups[labels[i]]
		if a == nil {
			a = &acc{}
			groups[labels[i]] = a
		}
		a.size++
		a.events += f.TotalEvents
		if f.Booked {
			a.booked++
		}
	}
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	res := SegmentationResult{
		Segments: make([]SegmentProfile, 0, len(ids)),
		Scatter:  Scatter{X: xs, Y: ys, Labels: labels},
		Eps:      eps,
		MinPts:   minSamples,
	}
	for _, id := range ids {
		a := groups[id]
		label := fmt.Sprintf("Segment %d", id)
		if id == NoiseLabel {
			label = "Outliers"
		}
		res.Segments = append(res.Segments, SegmentProfile{
			Label:       label,
			ID:          id,
			Size:        a.size,
			Pct:         pct(a.size, len(feats), 1),
			AvgEvents:   Round(float64(a.events)/float64(a.size), 1),
			BookingRate: pct(a.booked, a.size, 1),
		})
	}
	return res, nil
}
