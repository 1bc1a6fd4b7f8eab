package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/districtwater/gridclim/internal/domain"
)

func makeSeries(values ...float64) []domain.SeriesPoint {
	base := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.SeriesPoint, len(values))
	for i, v := range values {
		points[i] = domain.SeriesPoint{Date: base.AddDate(0, 0, i), Value: v}
	}
	return points
}

func TestComputeNAPI_SingleStepWindow(t *testing.T) {
	// Mean is 30 and the decay factors cancel at window 1, so each index
	// is simply the previous value over the mean.
	points := makeSeries(10, 20, 30, 40, 50)

	got := domain.ComputeNAPI(points, 0.9, 1, 2)

	require.Len(t, got, 5)
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, 0.33, got[1])
	assert.Equal(t, 0.67, got[2])
	assert.Equal(t, 1.0, got[3])
	assert.Equal(t, 1.33, got[4])
}

func TestComputeNAPI_TwoStepWindowWeightsDecay(t *testing.T) {
	points := makeSeries(10, 20, 30, 40)
	k := 0.5

	got := domain.ComputeNAPI(points, k, 2, 4)

	// mean = 25, denom = 0.5 + 0.25 = 0.75
	// i=2: (20*0.5 + 10*0.25) / (25*0.75) = 12.5/18.75
	// i=3: (30*0.5 + 20*0.25) / 18.75    = 20/18.75
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 12.5/18.75, got[2], 1e-4)
	assert.InDelta(t, 20.0/18.75, got[3], 1e-4)
}

func TestComputeNAPI_ZeroMeanLeavesEveryIndexUndefined(t *testing.T) {
	points := makeSeries(0, 0, 0, 0, 0)

	got := domain.ComputeNAPI(points, 0.98, 1, 2)

	for i, v := range got {
		assert.True(t, math.IsNaN(v), "index %d", i)
	}
}

func TestComputeNAPI_WindowLongerThanSeries(t *testing.T) {
	points := makeSeries(10, 20)

	got := domain.ComputeNAPI(points, 0.98, 30, 2)

	for i, v := range got {
		assert.True(t, math.IsNaN(v), "index %d", i)
	}
}

func TestComputeNAPI_NaNValueSkippedInMean(t *testing.T) {
	points := makeSeries(10, math.NaN(), 50)

	got := domain.ComputeNAPI(points, 0.9, 1, 2)

	// mean over defined values = 30
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, 0.33, got[1])
	// the NaN antecedent makes this window undefined
	assert.True(t, math.IsNaN(got[2]))
}

func TestSeriesOrder_StableByDate(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, time.April, d, 0, 0, 0, 0, time.UTC) }
	points := []domain.SeriesPoint{
		{Date: day(3), Value: 3},
		{Date: day(1), Value: 1},
		{Date: day(2), Value: 2.0},
		{Date: day(2), Value: 2.5},
	}

	order := domain.SeriesOrder(points)

	assert.Equal(t, []int{1, 2, 3, 0}, order)
	// the input keeps its original order
	assert.Equal(t, 3.0, points[0].Value)
}

func TestClassifyWetness(t *testing.T) {
	tests := []struct {
		name string
		napi float64
		want string
	}{
		{name: "well below one is dry", napi: 0.999, want: domain.WetnessDry},
		{name: "well above one is wet", napi: 1.000002, want: domain.WetnessWet},
		{name: "exactly one is normal", napi: 1, want: domain.WetnessNormal},
		{name: "just below one within tolerance", napi: 1 - 1e-7, want: domain.WetnessNormal},
		{name: "just above one within tolerance", napi: 1 + 1e-7, want: domain.WetnessNormal},
		{name: "zero is dry", napi: 0, want: domain.WetnessDry},
		{name: "undefined index has no label", napi: math.NaN(), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ClassifyWetness(tt.napi))
		})
	}
}

func TestValidDecay(t *testing.T) {
	assert.True(t, domain.ValidDecay(0.98))
	assert.False(t, domain.ValidDecay(0))
	assert.False(t, domain.ValidDecay(1))
	assert.False(t, domain.ValidDecay(1.5))
}

func TestDefaultWindow(t *testing.T) {
	assert.Equal(t, 30, domain.DefaultWindow("daily"))
	assert.Equal(t, 3, domain.DefaultWindow("monthly"))
}

func TestDateLayout(t *testing.T) {
	assert.Equal(t, "2006-01-02", domain.DateLayout("daily"))
	assert.Equal(t, "2006-01", domain.DateLayout("monthly"))
}
