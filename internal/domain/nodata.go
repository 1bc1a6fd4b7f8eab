package domain

import "math"

// NoDataKind tags the three ways a grid can mark invalid cells.
type NoDataKind int

const (
	// NoDataKindNone marks grids without a nodata specifier.
	NoDataKindNone NoDataKind = iota
	// NoDataKindSentinel marks grids using a finite sentinel value.
	NoDataKindSentinel
	// NoDataKindNaN marks grids using NaN for invalid cells.
	NoDataKindNaN
)

// NoData is a closed variant over the nodata marking of a grid. The zero
// value means no marking.
type NoData struct {
	Kind  NoDataKind
	Value float64 // sentinel value, meaningful only for NoDataKindSentinel
}

// NoDataNone returns the absent-nodata variant.
func NoDataNone() NoData { return NoData{Kind: NoDataKindNone} }

// NoDataSentinel returns a sentinel-value variant. A NaN sentinel collapses
// to the NaN variant so that filtering never compares against NaN.
func NoDataSentinel(v float64) NoData {
	if math.IsNaN(v) {
		return NoDataNaN()
	}
	return NoData{Kind: NoDataKindSentinel, Value: v}
}

// NoDataNaN returns the NaN-marking variant.
func NoDataNaN() NoData { return NoData{Kind: NoDataKindNaN} }

// Valid reports whether a raw cell value carries a measurement under this
// nodata marking.
func (nd NoData) Valid(raw float64) bool {
	switch nd.Kind {
	case NoDataKindSentinel:
		return raw != nd.Value
	case NoDataKindNaN:
		return !math.IsNaN(raw)
	default:
		return true
	}
}

// Fill returns the value written into cells masked out during clipping:
// the sentinel when one exists, NaN when NaN marks nodata, and zero when the
// grid has no nodata specifier (matching GDAL's mask fill for unmarked
// rasters).
func (nd NoData) Fill() float64 {
	switch nd.Kind {
	case NoDataKindSentinel:
		return nd.Value
	case NoDataKindNaN:
		return math.NaN()
	default:
		return 0
	}
}
