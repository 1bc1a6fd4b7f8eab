package domain

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// VectorBoundary is a study-area boundary: one or more polygons in a single
// spatial reference. Boundaries are loaded once per run and reprojected on
// demand to match each raster; reprojections are cached per target reference
// so a batch of rasters sharing a reference transforms the boundary once.
type VectorBoundary struct {
	SRS      string
	Polygons []geom.Polygonal

	sr          *proj.SR
	reprojected map[string][]geom.Polygonal
}

// NewVectorBoundary creates a boundary from polygons in the reference
// described by srs (proj4 or WKT). An empty srs is allowed; such a boundary
// can only be used against rasters that also carry no reference.
func NewVectorBoundary(srs string, polygons []geom.Polygonal) (*VectorBoundary, error) {
	if len(polygons) == 0 {
		return nil, fmt.Errorf("boundary has no polygon geometries")
	}
	b := &VectorBoundary{
		SRS:         srs,
		Polygons:    polygons,
		reprojected: make(map[string][]geom.Polygonal),
	}
	if srs != "" {
		sr, err := proj.Parse(srs)
		if err != nil {
			return nil, fmt.Errorf("parse boundary spatial reference: %w", err)
		}
		b.sr = sr
	}
	return b, nil
}

// NewVectorBoundaryFromSR creates a boundary from polygons in an already
// parsed spatial reference, as produced by vector decoders that read the
// projection sidecar themselves. A nil sr behaves like an empty srs string.
func NewVectorBoundaryFromSR(sr *proj.SR, polygons []geom.Polygonal) (*VectorBoundary, error) {
	if len(polygons) == 0 {
		return nil, fmt.Errorf("boundary has no polygon geometries")
	}
	return &VectorBoundary{
		Polygons:    polygons,
		sr:          sr,
		reprojected: make(map[string][]geom.Polygonal),
	}, nil
}

// InSRS returns the boundary polygons expressed in the target spatial
// reference, reprojecting and caching on first use. Identical source and
// target references, or an empty target, return the original polygons.
func (b *VectorBoundary) InSRS(target string) ([]geom.Polygonal, error) {
	if target == "" || target == b.SRS || b.sr == nil {
		return b.Polygons, nil
	}
	if polys, ok := b.reprojected[target]; ok {
		return polys, nil
	}

	dst, err := proj.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse raster spatial reference: %w", err)
	}
	trans, err := b.sr.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("build boundary reprojection: %w", err)
	}

	polys := make([]geom.Polygonal, 0, len(b.Polygons))
	for _, p := range b.Polygons {
		gg, err := p.Transform(trans)
		if err != nil {
			return nil, fmt.Errorf("reproject boundary polygon: %w", err)
		}
		poly, ok := gg.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("reprojected boundary geometry is not polygonal")
		}
		polys = append(polys, poly)
	}
	b.reprojected[target] = polys
	return polys, nil
}

// CachedReferences returns the number of target references currently cached,
// not counting the native reference.
func (b *VectorBoundary) CachedReferences() int { return len(b.reprojected) }
