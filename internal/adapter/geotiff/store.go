// Package geotiff reads and writes raster grids as GeoTIFF files through
// GDAL (godal), the same engine PRISM tooling conventionally uses.
package geotiff

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/districtwater/gridclim/internal/domain"
)

var registerOnce sync.Once

// Store opens and writes GeoTIFF rasters. It implements
// pipeline.RasterOpener and pipeline.RasterWriter.
type Store struct {
	logger *slog.Logger
}

// NewStore creates a GeoTIFF store, registering GDAL drivers on first use.
func NewStore(logger *slog.Logger) *Store {
	registerOnce.Do(godal.RegisterAll)
	return &Store{logger: logger}
}

// Supports reports whether the path carries a GeoTIFF suffix.
func (s *Store) Supports(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".tif") || strings.HasSuffix(lower, ".tiff")
}

// Open reads the first band of a GeoTIFF into a raster grid. Any failure is
// an input error that aborts the batch.
func (s *Store) Open(path string) (*domain.RasterGrid, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raster %q: %w", path, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands < 1 {
		return nil, fmt.Errorf("raster %q has no bands", path)
	}
	band := ds.Bands()[0]

	buf := make([]float64, st.SizeX*st.SizeY)
	if err := band.Read(0, 0, buf, st.SizeX, st.SizeY); err != nil {
		return nil, fmt.Errorf("read raster %q: %w", path, err)
	}

	g := domain.NewRasterGrid(st.SizeY, st.SizeX)
	for r := 0; r < st.SizeY; r++ {
		for c := 0; c < st.SizeX; c++ {
			g.SetValue(r, c, buf[r*st.SizeX+c])
		}
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("read geotransform of %q: %w", path, err)
	}
	g.Transform = domain.Affine{X0: gt[0], DX: gt[1], RX: gt[2], Y0: gt[3], RY: gt[4], DY: gt[5]}

	if sr := ds.SpatialRef(); sr != nil {
		wkt, err := sr.WKT()
		if err != nil {
			return nil, fmt.Errorf("read spatial reference of %q: %w", path, err)
		}
		g.SRS = wkt
	}

	if nd, ok := band.NoData(); ok {
		g.NoData = domain.NoDataSentinel(nd)
	}
	g.Scale = metadataFloat(band, "SCALE", 1)
	g.Offset = metadataFloat(band, "OFFSET", 0)
	g.DataType = dtypeName(band.Structure().DataType)
	g.Bands = st.NBands
	return g, nil
}

// Write persists a raster grid as a single-band GeoTIFF, carrying the
// grid's data type, nodata, scale/offset, transform, and reference.
func (s *Store) Write(path string, g *domain.RasterGrid) error {
	ds, err := godal.Create(godal.GTiff, path, 1, gdalType(g.DataType), g.Cols(), g.Rows())
	if err != nil {
		return fmt.Errorf("create clipped raster %q: %w", path, err)
	}
	defer ds.Close()

	t := g.Transform
	if err := ds.SetGeoTransform([6]float64{t.X0, t.DX, t.RX, t.Y0, t.RY, t.DY}); err != nil {
		return fmt.Errorf("set geotransform of %q: %w", path, err)
	}
	if g.SRS != "" {
		sr, err := godal.NewSpatialRefFromWKT(g.SRS)
		if err == nil {
			defer sr.Close()
			if err := ds.SetSpatialRef(sr); err != nil {
				return fmt.Errorf("set spatial reference of %q: %w", path, err)
			}
		} else {
			s.logger.Warn("spatial reference not representable as WKT, writing without one",
				"path", path, "error", err)
		}
	}

	band := ds.Bands()[0]
	if g.NoData.Kind == domain.NoDataKindSentinel {
		if err := band.SetNoData(g.NoData.Value); err != nil {
			return fmt.Errorf("set nodata of %q: %w", path, err)
		}
	}
	if g.Scale != 1 || g.Offset != 0 {
		if err := band.SetMetadata("SCALE", strconv.FormatFloat(g.Scale, 'g', -1, 64)); err != nil {
			return fmt.Errorf("set scale of %q: %w", path, err)
		}
		if err := band.SetMetadata("OFFSET", strconv.FormatFloat(g.Offset, 'g', -1, 64)); err != nil {
			return fmt.Errorf("set offset of %q: %w", path, err)
		}
	}

	buf := make([]float64, g.Rows()*g.Cols())
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			buf[r*g.Cols()+c] = g.Value(r, c)
		}
	}
	if err := band.Write(0, 0, buf, g.Cols(), g.Rows()); err != nil {
		return fmt.Errorf("write clipped raster %q: %w", path, err)
	}
	return nil
}

func metadataFloat(band godal.Band, key string, def float64) float64 {
	raw := band.Metadata(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func dtypeName(dt godal.DataType) string {
	switch dt {
	case godal.Byte:
		return "Byte"
	case godal.Int16:
		return "Int16"
	case godal.UInt16:
		return "UInt16"
	case godal.Int32:
		return "Int32"
	case godal.UInt32:
		return "UInt32"
	case godal.Float32:
		return "Float32"
	default:
		return "Float64"
	}
}

// gdalType maps the carried data type name back to a GDAL type, defaulting
// to Float64 for anything unrecognized.
func gdalType(name string) godal.DataType {
	switch name {
	case "Byte":
		return godal.Byte
	case "Int16":
		return godal.Int16
	case "UInt16":
		return godal.UInt16
	case "Int32":
		return godal.Int32
	case "UInt32":
		return godal.UInt32
	case "Float32":
		return godal.Float32
	default:
		return godal.Float64
	}
}
