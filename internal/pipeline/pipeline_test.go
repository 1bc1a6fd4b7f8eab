package pipeline_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ctessum/geom"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/districtwater/gridclim/internal/adapter/table"
	"github.com/districtwater/gridclim/internal/config"
	"github.com/districtwater/gridclim/internal/domain"
	"github.com/districtwater/gridclim/internal/observability"
	"github.com/districtwater/gridclim/internal/pipeline"
)

// --- mocks ---

// memOpener serves pre-built grids keyed by base filename. The files still
// exist on disk so directory discovery works; only their contents are faked.
type memOpener struct {
	grids map[string]*domain.RasterGrid
	fail  map[string]error
}

func (m *memOpener) Supports(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".tif")
}

func (m *memOpener) Open(path string) (*domain.RasterGrid, error) {
	name := filepath.Base(path)
	if err, ok := m.fail[name]; ok {
		return nil, err
	}
	g, ok := m.grids[name]
	if !ok {
		return nil, fmt.Errorf("no grid for %q", name)
	}
	return g, nil
}

// memWriter records written grids and registers them with an opener so the
// extract stage can read what the clip stage produced.
type memWriter struct {
	opener *memOpener
	paths  []string
}

func (m *memWriter) Write(path string, g *domain.RasterGrid) error {
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return err
	}
	m.opener.grids[filepath.Base(path)] = g
	m.paths = append(m.paths, path)
	return nil
}

type memBoundary struct {
	boundary *domain.VectorBoundary
	err      error
}

func (m *memBoundary) Load(string) (*domain.VectorBoundary, error) {
	return m.boundary, m.err
}

type memPublisher struct {
	published []domain.StatisticsRecord
}

func (m *memPublisher) Publish(_ context.Context, records []domain.StatisticsRecord) error {
	m.published = append(m.published, records...)
	return nil
}

// --- helpers ---

func rowGrid(t *testing.T, values ...float64) *domain.RasterGrid {
	t.Helper()
	g, err := domain.NewRasterGridFromValues([][]float64{values})
	require.NoError(t, err)
	g.Transform = domain.Affine{X0: 0, DX: 1, Y0: 1, DY: -1}
	g.NoData = domain.NoDataSentinel(-9999)
	return g
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
}

func testConfig(t *testing.T, rasterDir string) (*config.Config, *table.Store) {
	t.Helper()
	cfg := &config.Config{
		ClimateVariable: "ppt",
		Unit:            "mm",
		Resolution:      "daily",
		Decimals:        2,
		DecayConstant:   0.9,
		AntecedentSteps: 1,
		RasterDir:       rasterDir,
		CSVDir:          t.TempDir(),
		CSVFile:         "series.csv",
	}
	store, err := table.NewStore(cfg.CSVDir, cfg.CSVFile, cfg.Unit, slog.Default())
	require.NoError(t, err)
	return cfg, store
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

// --- tests ---

func TestPipeline_Run_ExtractsAndAnnotates(t *testing.T) {
	rasterDir := t.TempDir()
	touch(t, rasterDir,
		"prism_ppt_us_30s_20240426.tif",
		"prism_ppt_us_30s_20240427.tif",
		"notes.txt",
	)

	opener := &memOpener{grids: map[string]*domain.RasterGrid{
		"prism_ppt_us_30s_20240426.tif": rowGrid(t, 10, 20, 30, 40, 50),
		"prism_ppt_us_30s_20240427.tif": rowGrid(t, 100, 0, -9999, 5, 15),
	}}
	cfg, store := testConfig(t, rasterDir)
	pub := &memPublisher{}

	p := pipeline.New(cfg, opener, nil, nil, store, store, pub, slog.Default(), newTestMetrics())
	require.NoError(t, p.Run(context.Background()))

	header, rows, err := store.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, append(domain.TableHeader("mm"), "NAPI", "Conditions"), header)
	require.Len(t, rows, 2)

	want := [][]string{
		// First raster: 10..50, mean 30, median 30, no antecedent history.
		{
			"prism_ppt_us_30s_20240426.tif", "ppt", "2024-04-26",
			"10", "50", "30", "30", "", "",
		},
		// Second raster: the sentinel cell drops out, leaving 100, 0, 5, 15.
		// NAPI = 30k / (30k) = 1, so conditions are normal.
		{
			"prism_ppt_us_30s_20240427.tif", "ppt", "2024-04-27",
			"0", "100", "30", "10", "1", "normal",
		},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("table rows mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, pub.published, 2)

	status := p.Status()
	assert.Equal(t, "done", status.Stage)
	assert.Equal(t, int64(2), status.RastersRead)
	assert.Equal(t, int64(2), status.RowsWritten)
}

func TestPipeline_Run_TemperatureLeavesTableUnannotated(t *testing.T) {
	rasterDir := t.TempDir()
	touch(t, rasterDir, "prism_tmean_us_30s_20240426.tif")

	opener := &memOpener{grids: map[string]*domain.RasterGrid{
		"prism_tmean_us_30s_20240426.tif": rowGrid(t, 10, 20, 30),
	}}
	cfg, store := testConfig(t, rasterDir)
	cfg.ClimateVariable = "tmean"

	p := pipeline.New(cfg, opener, nil, nil, store, store, nil, slog.Default(), newTestMetrics())
	require.NoError(t, p.Run(context.Background()))

	header, rows, err := store.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, domain.TableHeader("mm"), header)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(header))
}

func TestPipeline_Run_SkipsRasterWithNoValidCells(t *testing.T) {
	rasterDir := t.TempDir()
	touch(t, rasterDir,
		"prism_ppt_us_30s_20240426.tif",
		"prism_ppt_us_30s_20240427.tif",
	)

	opener := &memOpener{grids: map[string]*domain.RasterGrid{
		"prism_ppt_us_30s_20240426.tif": rowGrid(t, 10, 20),
		"prism_ppt_us_30s_20240427.tif": rowGrid(t, -9999, -9999),
	}}
	cfg, store := testConfig(t, rasterDir)

	p := pipeline.New(cfg, opener, nil, nil, store, store, nil, slog.Default(), newTestMetrics())
	require.NoError(t, p.Run(context.Background()))

	_, rows, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "prism_ppt_us_30s_20240426.tif", rows[0][0])
}

func TestPipeline_Run_UnreadableRasterAbortsBatch(t *testing.T) {
	rasterDir := t.TempDir()
	touch(t, rasterDir, "prism_ppt_us_30s_20240426.tif")

	opener := &memOpener{
		grids: map[string]*domain.RasterGrid{},
		fail:  map[string]error{"prism_ppt_us_30s_20240426.tif": fmt.Errorf("corrupt header")},
	}
	cfg, store := testConfig(t, rasterDir)

	p := pipeline.New(cfg, opener, nil, nil, store, store, nil, slog.Default(), newTestMetrics())
	err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt header")
}

func TestPipeline_Run_EmptyRasterDirFails(t *testing.T) {
	cfg, store := testConfig(t, t.TempDir())

	p := pipeline.New(cfg, &memOpener{}, nil, nil, store, store, nil, slog.Default(), newTestMetrics())

	assert.Error(t, p.Run(context.Background()))
}

func TestPipeline_Run_ClipsAgainstBoundary(t *testing.T) {
	rasterDir := t.TempDir()
	touch(t, rasterDir, "prism_ppt_us_30s_20240426.tif")

	// 1x4 grid over x in [0,4); the boundary covers the middle two cells.
	src := rowGrid(t, 1, 2, 3, 4)
	boundary, err := domain.NewVectorBoundary("", []geom.Polygonal{geom.Polygon{{
		{X: 1, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0},
	}}})
	require.NoError(t, err)

	opener := &memOpener{grids: map[string]*domain.RasterGrid{
		"prism_ppt_us_30s_20240426.tif": src,
	}}
	writer := &memWriter{opener: opener}
	cfg, store := testConfig(t, rasterDir)
	cfg.BoundaryFile = "boundary.shp"
	cfg.ClippedDir = t.TempDir()

	p := pipeline.New(cfg, opener, writer, &memBoundary{boundary: boundary}, store, store, nil, slog.Default(), newTestMetrics())
	require.NoError(t, p.Run(context.Background()))

	require.Len(t, writer.paths, 1)
	assert.Equal(t, "prism_ppt_30s_20240426_clip.tif", filepath.Base(writer.paths[0]))

	_, rows, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// Statistics come from the clipped cells only: values 2 and 3.
	assert.Equal(t, "prism_ppt_30s_20240426_clip.tif", rows[0][0])
	assert.Equal(t, "2", rows[0][3])
	assert.Equal(t, "3", rows[0][4])
	assert.Equal(t, "2.5", rows[0][5])
}

func TestPipeline_Run_NonPrismNamesKeepDatesThroughClip(t *testing.T) {
	rasterDir := t.TempDir()
	touch(t, rasterDir,
		"noaa_ppt_us_30s_20240426.tif",
		"noaa_ppt_us_30s_20240427.tif",
	)

	// The boundary covers the middle two cells of each 1x4 grid.
	boundary, err := domain.NewVectorBoundary("", []geom.Polygonal{geom.Polygon{{
		{X: 1, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0},
	}}})
	require.NoError(t, err)

	opener := &memOpener{grids: map[string]*domain.RasterGrid{
		"noaa_ppt_us_30s_20240426.tif": rowGrid(t, 10, 20, 30, 40),
		"noaa_ppt_us_30s_20240427.tif": rowGrid(t, 0, 10, 20, 30),
	}}
	writer := &memWriter{opener: opener}
	cfg, store := testConfig(t, rasterDir)
	cfg.BoundaryFile = "boundary.shp"
	cfg.ClippedDir = t.TempDir()

	p := pipeline.New(cfg, opener, writer, &memBoundary{boundary: boundary}, store, store, nil, slog.Default(), newTestMetrics())
	require.NoError(t, p.Run(context.Background()))

	_, rows, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Clipped names keep their positional variable and date.
	assert.Equal(t, "noaa_ppt_30s_20240426_clip.tif", rows[0][0])
	assert.Equal(t, "ppt", rows[0][1])
	assert.Equal(t, "2024-04-26", rows[0][2])
	assert.Equal(t, "2024-04-27", rows[1][2])

	// Clipped means are 25 and 15, series mean 20, so the second day's
	// antecedent index is 25k/20k = 1.25.
	assert.Equal(t, "1.25", rows[1][7])
	assert.Equal(t, "wet", rows[1][8])
}

func TestPipeline_Run_NonOverlappingBoundaryFails(t *testing.T) {
	rasterDir := t.TempDir()
	touch(t, rasterDir, "prism_ppt_us_30s_20240426.tif")

	boundary, err := domain.NewVectorBoundary("", []geom.Polygonal{geom.Polygon{{
		{X: 100, Y: 100}, {X: 110, Y: 100}, {X: 110, Y: 110}, {X: 100, Y: 110}, {X: 100, Y: 100},
	}}})
	require.NoError(t, err)

	opener := &memOpener{grids: map[string]*domain.RasterGrid{
		"prism_ppt_us_30s_20240426.tif": rowGrid(t, 1, 2, 3, 4),
	}}
	cfg, store := testConfig(t, rasterDir)
	cfg.BoundaryFile = "boundary.shp"
	cfg.ClippedDir = t.TempDir()

	p := pipeline.New(cfg, opener, &memWriter{opener: opener}, &memBoundary{boundary: boundary}, store, store, nil, slog.Default(), newTestMetrics())

	err = p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not overlap")
}

func TestPipeline_Run_ZeroMeanSeriesLeavesIndexEmpty(t *testing.T) {
	rasterDir := t.TempDir()
	touch(t, rasterDir,
		"prism_ppt_us_30s_20240426.tif",
		"prism_ppt_us_30s_20240427.tif",
	)

	opener := &memOpener{grids: map[string]*domain.RasterGrid{
		"prism_ppt_us_30s_20240426.tif": rowGrid(t, 0, 0),
		"prism_ppt_us_30s_20240427.tif": rowGrid(t, 0, 0),
	}}
	cfg, store := testConfig(t, rasterDir)

	p := pipeline.New(cfg, opener, nil, nil, store, store, nil, slog.Default(), newTestMetrics())
	require.NoError(t, p.Run(context.Background()))

	header, rows, err := store.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "NAPI", header[len(header)-2])
	for _, row := range rows {
		assert.Equal(t, "", row[len(row)-2])
		assert.Equal(t, "", row[len(row)-1])
	}
}

func TestPipeline_Run_SortsRowsByDateBeforeIndexing(t *testing.T) {
	rasterDir := t.TempDir()
	touch(t, rasterDir,
		"prism_ppt_us_30s_20240426.tif",
		"prism_ppt_us_30s_20240425.tif",
	)

	opener := &memOpener{grids: map[string]*domain.RasterGrid{
		"prism_ppt_us_30s_20240425.tif": rowGrid(t, 10, 20),
		"prism_ppt_us_30s_20240426.tif": rowGrid(t, 30, 40),
	}}
	cfg, store := testConfig(t, rasterDir)

	p := pipeline.New(cfg, opener, nil, nil, store, store, nil, slog.Default(), newTestMetrics())
	require.NoError(t, p.Run(context.Background()))

	_, rows, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-04-25", rows[0][2])
	assert.Equal(t, "2024-04-26", rows[1][2])
}

func TestPipeline_CheckReadiness(t *testing.T) {
	cfg, store := testConfig(t, t.TempDir())
	p := pipeline.New(cfg, &memOpener{}, nil, nil, store, store, nil, slog.Default(), newTestMetrics())

	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_HonorsCancellation(t *testing.T) {
	rasterDir := t.TempDir()
	touch(t, rasterDir, "prism_ppt_us_30s_20240426.tif")

	opener := &memOpener{grids: map[string]*domain.RasterGrid{
		"prism_ppt_us_30s_20240426.tif": rowGrid(t, 10, 20),
	}}
	cfg, store := testConfig(t, rasterDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := pipeline.New(cfg, opener, nil, nil, store, store, nil, slog.Default(), newTestMetrics())

	assert.ErrorIs(t, p.Run(ctx), context.Canceled)
}
