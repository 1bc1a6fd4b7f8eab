package domain

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
)

// Affine maps array indices to spatial coordinates using the six-parameter
// GDAL geotransform convention: for fractional column c and row r,
//
//	x = X0 + c*DX + r*RX
//	y = Y0 + c*RY + r*DY
//
// North-up grids have RX = RY = 0 and a negative DY.
type Affine struct {
	X0, DX, RX float64
	Y0, RY, DY float64
}

// Apply maps a fractional (col, row) index to an (x, y) coordinate.
// Integer indices map to the upper-left corner of the cell.
func (a Affine) Apply(col, row float64) (x, y float64) {
	return a.X0 + col*a.DX + row*a.RX, a.Y0 + col*a.RY + row*a.DY
}

// CellCenter returns the spatial coordinate of the center of cell (row, col).
func (a Affine) CellCenter(row, col int) geom.Point {
	x, y := a.Apply(float64(col)+0.5, float64(row)+0.5)
	return geom.Point{X: x, Y: y}
}

// Bounds returns the spatial bounding box covered by a rows×cols grid.
func (a Affine) Bounds(rows, cols int) *geom.Bounds {
	corners := [4][2]float64{{0, 0}, {float64(cols), 0}, {0, float64(rows)}, {float64(cols), float64(rows)}}
	x0, y0 := a.Apply(corners[0][0], corners[0][1])
	b := &geom.Bounds{Min: geom.Point{X: x0, Y: y0}, Max: geom.Point{X: x0, Y: y0}}
	for _, idx := range corners[1:] {
		x, y := a.Apply(idx[0], idx[1])
		b.Min.X = math.Min(b.Min.X, x)
		b.Min.Y = math.Min(b.Min.Y, y)
		b.Max.X = math.Max(b.Max.X, x)
		b.Max.Y = math.Max(b.Max.Y, y)
	}
	return b
}

// Invert returns the inverse transform, mapping coordinates back to
// fractional (col, row) indices. Fails when the transform is degenerate.
func (a Affine) Invert() (Affine, error) {
	det := a.DX*a.DY - a.RX*a.RY
	if det == 0 {
		return Affine{}, fmt.Errorf("affine transform is not invertible")
	}
	inv := Affine{
		DX: a.DY / det,
		RX: -a.RX / det,
		RY: -a.RY / det,
		DY: a.DX / det,
	}
	inv.X0 = -(inv.DX*a.X0 + inv.RX*a.Y0)
	inv.Y0 = -(inv.RY*a.X0 + inv.DY*a.Y0)
	return inv, nil
}

// Translate returns the transform of a sub-grid whose upper-left cell is
// (row, col) of the original grid.
func (a Affine) Translate(row, col int) Affine {
	x, y := a.Apply(float64(col), float64(row))
	out := a
	out.X0 = x
	out.Y0 = y
	return out
}

// RasterGrid is one gridded climate layer held in memory: a 2-D array of raw
// cell values plus the metadata needed to interpret them. The array shape is
// fixed at construction; cell values may be overwritten but never reshaped.
type RasterGrid struct {
	data *sparse.DenseArray

	// Metadata carried through clipping unchanged.
	NoData    NoData
	Scale     float64 // raw-to-physical linear factor, 1 when absent
	Offset    float64 // raw-to-physical linear offset, 0 when absent
	SRS       string  // spatial reference, proj4 or WKT
	Transform Affine
	DataType  string // storage type of the source band, e.g. "Float32"
	Bands     int    // band count of the source dataset
}

// NewRasterGrid creates a grid of the given shape with identity scale/offset
// and no nodata marking. Values start at zero.
func NewRasterGrid(rows, cols int) *RasterGrid {
	return &RasterGrid{
		data:     sparse.ZerosDense(rows, cols),
		NoData:   NoDataNone(),
		Scale:    1,
		DataType: "Float64",
		Bands:    1,
	}
}

// NewRasterGridFromValues creates a grid from a rectangular slice of rows.
func NewRasterGridFromValues(values [][]float64) (*RasterGrid, error) {
	rows := len(values)
	if rows == 0 {
		return nil, fmt.Errorf("raster grid needs at least one row")
	}
	cols := len(values[0])
	g := NewRasterGrid(rows, cols)
	for r, rowVals := range values {
		if len(rowVals) != cols {
			return nil, fmt.Errorf("ragged raster rows: row %d has %d cells, want %d", r, len(rowVals), cols)
		}
		for c, v := range rowVals {
			g.data.Set(v, r, c)
		}
	}
	return g, nil
}

// Rows returns the number of grid rows.
func (g *RasterGrid) Rows() int { return g.data.Shape[0] }

// Cols returns the number of grid columns.
func (g *RasterGrid) Cols() int { return g.data.Shape[1] }

// Value returns the raw (unscaled) value of cell (row, col).
func (g *RasterGrid) Value(row, col int) float64 { return g.data.Get(row, col) }

// SetValue overwrites the raw value of cell (row, col).
func (g *RasterGrid) SetValue(row, col int, v float64) { g.data.Set(v, row, col) }

// Bounds returns the spatial extent of the grid.
func (g *RasterGrid) Bounds() *geom.Bounds { return g.Transform.Bounds(g.Rows(), g.Cols()) }

// ValidSample flattens the grid to a 1-D float64 sample of physically
// meaningful values: scale and offset are applied to every cell exactly once,
// then cells matching the nodata variant are dropped. With no nodata marking
// nothing is dropped, so NaN cells pass through to the caller.
func (g *RasterGrid) ValidSample() []float64 {
	sample := make([]float64, 0, len(g.data.Elements))
	for _, raw := range g.data.Elements {
		if !g.NoData.Valid(raw) {
			continue
		}
		sample = append(sample, raw*g.Scale+g.Offset)
	}
	return sample
}

// AllNaN reports whether every value in the sample is NaN. An empty sample
// counts as all-NaN: either way there is nothing to summarize.
func AllNaN(sample []float64) bool {
	for _, v := range sample {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
