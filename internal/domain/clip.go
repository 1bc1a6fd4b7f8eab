package domain

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

// Clip restricts a grid to the extent of boundary polygons already expressed
// in the grid's spatial reference. The output grid's dimensions equal the
// cell-aligned bounding box of the intersection between the boundary and the
// grid; cells whose centers fall outside every polygon are set to the grid's
// nodata fill. All other metadata is copied from the source unchanged.
//
// A boundary that does not overlap the grid at all is an error: the caller
// treats it as a failed clip, not an empty result.
func Clip(g *RasterGrid, polygons []geom.Polygonal) (*RasterGrid, error) {
	if len(polygons) == 0 {
		return nil, fmt.Errorf("clip: no boundary polygons")
	}

	bounds := polygons[0].Bounds()
	for _, p := range polygons[1:] {
		bb := p.Bounds()
		bounds.Min.X = math.Min(bounds.Min.X, bb.Min.X)
		bounds.Min.Y = math.Min(bounds.Min.Y, bb.Min.Y)
		bounds.Max.X = math.Max(bounds.Max.X, bb.Max.X)
		bounds.Max.Y = math.Max(bounds.Max.Y, bb.Max.Y)
	}
	if !bounds.Overlaps(g.Bounds()) {
		return nil, fmt.Errorf("clip: boundary does not overlap raster extent")
	}

	row0, col0, rows, cols, err := cropWindow(g, bounds)
	if err != nil {
		return nil, err
	}

	index := rtree.NewTree(25, 50)
	for _, p := range polygons {
		index.Insert(p)
	}

	out := NewRasterGrid(rows, cols)
	out.NoData = g.NoData
	out.Scale = g.Scale
	out.Offset = g.Offset
	out.SRS = g.SRS
	out.DataType = g.DataType
	out.Bands = g.Bands
	out.Transform = g.Transform.Translate(row0, col0)

	fill := g.NoData.Fill()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			center := out.Transform.CellCenter(r, c)
			if coveredBy(index, center) {
				out.SetValue(r, c, g.Value(row0+r, col0+c))
			} else {
				out.SetValue(r, c, fill)
			}
		}
	}
	return out, nil
}

// cropWindow maps a spatial bounding box onto the grid's index space and
// clamps it, returning the upper-left cell and the window dimensions.
func cropWindow(g *RasterGrid, bounds *geom.Bounds) (row0, col0, rows, cols int, err error) {
	inv, err := g.Transform.Invert()
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("clip: %w", err)
	}

	minCol, minRow := math.Inf(1), math.Inf(1)
	maxCol, maxRow := math.Inf(-1), math.Inf(-1)
	for _, pt := range [4]geom.Point{
		bounds.Min,
		bounds.Max,
		{X: bounds.Min.X, Y: bounds.Max.Y},
		{X: bounds.Max.X, Y: bounds.Min.Y},
	} {
		c, r := inv.Apply(pt.X, pt.Y)
		minCol = math.Min(minCol, c)
		minRow = math.Min(minRow, r)
		maxCol = math.Max(maxCol, c)
		maxRow = math.Max(maxRow, r)
	}

	col0 = clampInt(int(math.Floor(minCol)), 0, g.Cols())
	row0 = clampInt(int(math.Floor(minRow)), 0, g.Rows())
	colEnd := clampInt(int(math.Ceil(maxCol)), 0, g.Cols())
	rowEnd := clampInt(int(math.Ceil(maxRow)), 0, g.Rows())

	rows = rowEnd - row0
	cols = colEnd - col0
	if rows <= 0 || cols <= 0 {
		return 0, 0, 0, 0, fmt.Errorf("clip: boundary window is empty")
	}
	return row0, col0, rows, cols, nil
}

// coveredBy reports whether a cell center lies inside (or on the edge of)
// any indexed boundary polygon.
func coveredBy(index *rtree.Rtree, p geom.Point) bool {
	box := p.Bounds()
	for _, item := range index.SearchIntersect(box) {
		poly, ok := item.(geom.Polygonal)
		if !ok {
			continue
		}
		if w := p.Within(poly); w == geom.Inside || w == geom.OnEdge {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
