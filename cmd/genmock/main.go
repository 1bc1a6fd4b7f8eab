// Command genmock generates a synthetic batch of PRISM-style climate rasters
// and a study-area boundary shapefile for local pipeline runs. It uses the
// actual raster and boundary adapters so the fixtures match real pipeline
// inputs.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-dir data/mock \
//	  -variable ppt -days 40
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"

	"github.com/districtwater/gridclim/internal/adapter/geotiff"
	"github.com/districtwater/gridclim/internal/domain"
)

var baseDate = time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

// wgs84 is the .prj sidecar content for EPSG:4326.
const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

const (
	gridRows = 40
	gridCols = 60
	cellSize = 0.05
	originX  = -95.0
	originY  = 38.0
	sentinel = -9999.0
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "data/mock", "output directory for rasters and boundary")
	variable := flag.String("variable", "ppt", "PRISM variable code to encode in filenames")
	days := flag.Int("days", 40, "number of daily rasters to generate")
	flag.Parse()

	rasterDir := filepath.Join(*outDir, "rasters")
	if err := os.MkdirAll(rasterDir, 0o755); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	store := geotiff.NewStore(logger)

	for day := 0; day < *days; day++ {
		date := baseDate.AddDate(0, 0, day)
		name := fmt.Sprintf("prism_%s_us_30s_%s.tif", *variable, date.Format("20060102"))
		if err := store.Write(filepath.Join(rasterDir, name), syntheticGrid(day)); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	log.Printf("wrote %d rasters: %s", *days, rasterDir)

	boundaryPath := filepath.Join(*outDir, "boundary.shp")
	if err := writeBoundary(boundaryPath); err != nil {
		return fmt.Errorf("writing boundary: %w", err)
	}
	log.Printf("wrote boundary: %s", boundaryPath)
	return nil
}

// syntheticGrid builds one raster with a smooth seasonal gradient plus a
// nodata hole, so clipped statistics vary between days but stay reproducible.
func syntheticGrid(day int) *domain.RasterGrid {
	g := domain.NewRasterGrid(gridRows, gridCols)
	g.Transform = domain.Affine{X0: originX, DX: cellSize, Y0: originY, DY: -cellSize}
	g.SRS = wgs84
	g.NoData = domain.NoDataSentinel(sentinel)
	g.DataType = "Float32"

	seasonal := 10 + 8*math.Sin(2*math.Pi*float64(day)/30)
	for r := 0; r < gridRows; r++ {
		for c := 0; c < gridCols; c++ {
			// Carve a nodata block to exercise the masked-cell path.
			if r >= 5 && r < 10 && c >= 5 && c < 10 {
				g.SetValue(r, c, sentinel)
				continue
			}
			v := seasonal + float64(r)*0.1 + float64(c)*0.05
			g.SetValue(r, c, v)
		}
	}
	return g
}

type boundaryRow struct {
	Geom geom.Polygon
	Name string
}

// writeBoundary encodes a single rectangular study area overlapping the
// middle of the synthetic grids, with a .prj sidecar naming WGS 84.
func writeBoundary(path string) error {
	poly := geom.Polygon{{
		{X: originX + 0.5, Y: originY - 1.5},
		{X: originX + 2.0, Y: originY - 1.5},
		{X: originX + 2.0, Y: originY - 0.5},
		{X: originX + 0.5, Y: originY - 0.5},
		{X: originX + 0.5, Y: originY - 1.5},
	}}

	enc, err := shp.NewEncoder(path, boundaryRow{})
	if err != nil {
		return err
	}
	if err := enc.Encode(boundaryRow{Geom: poly, Name: "study-area"}); err != nil {
		enc.Close()
		return err
	}
	enc.Close()

	prj := path[:len(path)-len(filepath.Ext(path))] + ".prj"
	return os.WriteFile(prj, []byte(wgs84), 0o644)
}
