package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/districtwater/gridclim/internal/domain"
)

func TestParseGridName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     domain.GridName
	}{
		{
			name:     "daily grid with region",
			filename: "prism_ppt_us_30s_20240426.tif",
			want:     domain.GridName{Variable: "ppt", Region: "us", Resolution: "30s", Date: "2024-04-26"},
		},
		{
			name:     "monthly grid",
			filename: "prism_tmean_us_30s_202404.tif",
			want:     domain.GridName{Variable: "tmean", Region: "us", Resolution: "30s", Date: "2024-04"},
		},
		{
			name:     "region omitted",
			filename: "prism_tmax_4km_20240101.tif",
			want:     domain.GridName{Variable: "tmax", Resolution: "4km", Date: "2024-01-01"},
		},
		{
			name:     "trailing qualifier ignored",
			filename: "prism_ppt_us_30s_20240426_clip.tif",
			want:     domain.GridName{Variable: "ppt", Region: "us", Resolution: "30s", Date: "2024-04-26"},
		},
		{
			name:     "full path accepted",
			filename: "/data/rasters/prism_ppt_us_30s_20240426.tif",
			want:     domain.GridName{Variable: "ppt", Region: "us", Resolution: "30s", Date: "2024-04-26"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseGridName(tt.filename)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGridName_NonConformingFilename(t *testing.T) {
	_, err := domain.ParseGridName("temperature_summary.tif")

	assert.Error(t, err)
}

func TestParseGridName_ImpossibleDateKeptRaw(t *testing.T) {
	got, err := domain.ParseGridName("prism_ppt_us_30s_20241399.tif")

	require.NoError(t, err)
	assert.Equal(t, "20241399", got.Date)
}

func TestClipOutputName(t *testing.T) {
	name, fallback := domain.ClipOutputName("prism_ppt_us_30s_20240426.tif")

	assert.False(t, fallback)
	assert.Equal(t, "prism_ppt_30s_20240426_clip.tif", name)
}

func TestClipOutputName_FallsBackToStem(t *testing.T) {
	name, fallback := domain.ClipOutputName("temperature_summary.tif")

	assert.True(t, fallback)
	assert.Equal(t, "temperature_summary_clip.tif", name)
}

func TestSplitGridName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		variable string
		date     string
		ok       bool
	}{
		{
			name:     "clipped output of another source",
			filename: "noaa_ppt_30s_20240426_clip.tif",
			variable: "ppt",
			date:     "2024-04-26",
			ok:       true,
		},
		{
			name:     "unclipped five-field name",
			filename: "noaa_ppt_us_30s_20240426.tif",
			variable: "ppt",
			date:     "2024-04-26",
			ok:       true,
		},
		{
			name:     "monthly date",
			filename: "noaa_ppt_30s_202404_clip.tif",
			variable: "ppt",
			date:     "2024-04",
			ok:       true,
		},
		{
			name:     "non-date last field kept raw",
			filename: "noaa_ppt_us_30s_final.tif",
			variable: "ppt",
			date:     "final",
			ok:       true,
		},
		{
			name:     "too few fields",
			filename: "temperature_summary_clip.tif",
			ok:       false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			variable, date, ok := domain.SplitGridName(tc.filename)

			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.variable, variable)
			assert.Equal(t, tc.date, date)
		})
	}
}

func TestIsRasterFile(t *testing.T) {
	assert.True(t, domain.IsRasterFile("a.tif"))
	assert.True(t, domain.IsRasterFile("a.TIFF"))
	assert.True(t, domain.IsRasterFile("a.nc"))
	assert.False(t, domain.IsRasterFile("README.md"))
	assert.False(t, domain.IsRasterFile("a.tif.aux.xml"))
}
