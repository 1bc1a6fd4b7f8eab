package domain

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// mmPerInch converts PRISM precipitation from its native millimeters.
const mmPerInch = 25.40

// Stats holds the four descriptive statistics extracted from one grid.
type Stats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// Summarize computes min, max, arithmetic mean, and median of a non-empty
// sample. A sample containing NaN yields NaN statistics, mirroring how an
// unmarked invalid cell poisons the aggregate.
func Summarize(sample []float64) Stats {
	for _, v := range sample {
		if math.IsNaN(v) {
			nan := math.NaN()
			return Stats{Min: nan, Max: nan, Mean: nan, Median: nan}
		}
	}
	return Stats{
		Min:    floats.Min(sample),
		Max:    floats.Max(sample),
		Mean:   stat.Mean(sample, nil),
		Median: median(sample),
	}
}

// median returns the sample median with even-length averaging. The input is
// not modified.
func median(sample []float64) float64 {
	s := make([]float64, len(sample))
	copy(s, sample)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

// Convert expresses raw statistics in the display unit for the given climate
// variable. Precipitation ("ppt") is measured in millimeters and converts to
// inches for unit "in"; temperature-family variables (any code starting with
// "t") are measured in Celsius and convert to Fahrenheit for unit "f". Every
// other unit is a no-op. The second return reports whether the variable code
// was recognized; unrecognized codes get generic, unconverted statistics and
// the caller logs the fallback.
func Convert(s Stats, variable, unit string) (Stats, bool) {
	switch {
	case variable == "ppt":
		if unit == "in" {
			return apply(s, func(v float64) float64 { return v / mmPerInch }), true
		}
		return s, true
	case strings.HasPrefix(variable, "t"):
		if unit == "f" {
			return apply(s, func(v float64) float64 { return v*9/5 + 32 }), true
		}
		return s, true
	default:
		return s, false
	}
}

// RoundTo rounds each statistic to the given number of decimal places.
func (s Stats) RoundTo(decimals int) Stats {
	return apply(s, func(v float64) float64 { return Round(v, decimals) })
}

// Round rounds half away from zero to a fixed number of decimal places.
// NaN passes through.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) {
		return v
	}
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

func apply(s Stats, f func(float64) float64) Stats {
	return Stats{Min: f(s.Min), Max: f(s.Max), Mean: f(s.Mean), Median: f(s.Median)}
}

// VariableName maps a PRISM variable code to its human-readable name, used
// in logs. Unknown codes return the empty string.
func VariableName(code string) string {
	switch code {
	case "ppt":
		return "precipitation"
	case "tmean":
		return "mean temperature"
	case "tmax":
		return "max temperature"
	case "tmin":
		return "minimum temperature"
	case "tdmean":
		return "mean dew point temperature"
	}
	return ""
}
