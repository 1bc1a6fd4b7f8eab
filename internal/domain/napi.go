package domain

import (
	"math"
	"sort"
	"time"
)

// Wetness classification thresholds: an index within normalTolerance of 1
// is "normal", above 1 is "wet", below is "dry".
const normalTolerance = 1e-6

// Wetness labels for classified NAPI values. The empty string stands for an
// undefined classification (undefined index).
const (
	WetnessDry    = "dry"
	WetnessNormal = "normal"
	WetnessWet    = "wet"
)

// SeriesPoint is one precipitation observation in a time series, in the unit
// the table was built with.
type SeriesPoint struct {
	Date  time.Time
	Value float64
}

// SeriesOrder returns the permutation that orders points ascending by date,
// keeping the original order of equal dates. points is not modified; callers
// that carry data parallel to the series apply the same permutation to both.
func SeriesOrder(points []SeriesPoint) []int {
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return points[order[a]].Date.Before(points[order[b]].Date)
	})
	return order
}

// ComputeNAPI computes the Normalized Antecedent Precipitation Index for a
// date-sorted precipitation series with decay constant k and antecedent
// window N, rounding each defined index to the given decimal places.
//
// The i-th result is NaN when i < N (insufficient antecedent history) and
//
//	Σ_{j=1..N} ppt[i-j]·k^j / (mean(ppt) · Σ_{j=1..N} k^j)
//
// otherwise, with mean(ppt) the arithmetic mean over the defined values of
// the whole series, computed once. A zero mean leaves every index NaN; the
// caller logs the degenerate case as a warning.
func ComputeNAPI(points []SeriesPoint, k float64, window int, decimals int) []float64 {
	out := make([]float64, len(points))
	for i := range out {
		out[i] = math.NaN()
	}

	mean, defined := seriesMean(points)
	if !defined || mean == 0 {
		return out
	}

	var denom float64
	for j := 1; j <= window; j++ {
		denom += math.Pow(k, float64(j))
	}
	if mean*denom == 0 {
		return out
	}

	for i := window; i < len(points); i++ {
		var numer float64
		for j := 1; j <= window; j++ {
			numer += points[i-j].Value * math.Pow(k, float64(j))
		}
		out[i] = Round(numer/(mean*denom), decimals)
	}
	return out
}

// seriesMean averages the defined (non-NaN) values of the series. The second
// return is false when no value is defined.
func seriesMean(points []SeriesPoint) (float64, bool) {
	var sum float64
	var n int
	for _, p := range points {
		if math.IsNaN(p.Value) {
			continue
		}
		sum += p.Value
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// ClassifyWetness labels a NAPI value. NaN maps to the empty (undefined)
// label; values within 1e-6 of 1 are "normal" before the strict comparisons
// apply, so the boundary is tolerant of float error in the index itself.
func ClassifyWetness(napi float64) string {
	switch {
	case math.IsNaN(napi):
		return ""
	case math.Abs(napi-1) < normalTolerance:
		return WetnessNormal
	case napi > 1:
		return WetnessWet
	default:
		return WetnessDry
	}
}

// ValidDecay reports whether a decay constant lies in the conventional open
// interval (0,1). Out-of-range constants are accepted with a warning, never
// rejected.
func ValidDecay(k float64) bool { return k > 0 && k < 1 }

// DefaultWindow returns the conventional antecedent window for a resolution:
// 30 steps for daily series, 3 for monthly.
func DefaultWindow(resolution string) int {
	if resolution == "monthly" {
		return 3
	}
	return 30
}

// DateLayout returns the time layout used to parse table dates at the given
// resolution.
func DateLayout(resolution string) string {
	if resolution == "monthly" {
		return "2006-01"
	}
	return "2006-01-02"
}
