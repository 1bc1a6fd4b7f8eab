// Package shapefile loads study-area boundaries from ESRI shapefiles.
package shapefile

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"

	"github.com/districtwater/gridclim/internal/domain"
)

// Loader reads boundary shapefiles. It implements pipeline.BoundaryLoader.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a shapefile boundary loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads every polygon row of the shapefile at path into a boundary.
// The path may omit the .shp extension. The spatial reference comes from
// the sidecar .prj file; when that cannot be read the boundary carries no
// reference and clipping assumes it already matches each raster.
func (l *Loader) Load(path string) (*domain.VectorBoundary, error) {
	if strings.ToLower(filepath.Ext(path)) != ".shp" {
		path += ".shp"
	}
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open boundary %q: %w", path, err)
	}
	defer d.Close()

	sr, err := d.SR()
	if err != nil {
		l.logger.Warn("boundary projection unreadable, assuming raster reference",
			"path", path, "error", err)
		sr = nil
	}

	var polygons []geom.Polygonal
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("boundary %q: row %d is %T, want a polygon", path, len(polygons), g)
		}
		polygons = append(polygons, p)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("decode boundary %q: %w", path, err)
	}
	if len(polygons) == 0 {
		return nil, fmt.Errorf("boundary %q contains no polygons", path)
	}

	b, err := domain.NewVectorBoundaryFromSR(sr, polygons)
	if err != nil {
		return nil, fmt.Errorf("boundary %q: %w", path, err)
	}
	l.logger.Info("loaded boundary", "path", path, "polygons", len(polygons))
	return b, nil
}
