// Package netcdf reads COARDS-style NetCDF rasters into raster grids.
// NetCDF is a read-only source here; clipped output always goes out as
// GeoTIFF.
package netcdf

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/districtwater/gridclim/internal/domain"
)

// Geographic coordinates are the COARDS default when the file carries no
// grid mapping of its own.
const defaultSRS = "+proj=longlat +datum=WGS84"

var latitudeNames = []string{"lat", "latitude", "y"}
var longitudeNames = []string{"lon", "longitude", "x"}

// Reader opens NetCDF rasters. It implements pipeline.RasterOpener.
type Reader struct {
	variable string
	logger   *slog.Logger
}

// NewReader creates a NetCDF reader. variable names the data variable to
// read; when empty the first non-coordinate variable in the file is used.
func NewReader(variable string, logger *slog.Logger) *Reader {
	return &Reader{variable: variable, logger: logger}
}

// Supports reports whether the path carries a NetCDF suffix.
func (r *Reader) Supports(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".nc")
}

// Open reads a 2D data variable and its coordinate axes into a raster grid.
func (r *Reader) Open(path string) (*domain.RasterGrid, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open raster %q: %w", path, err)
	}
	defer nc.Close()

	name, err := r.pickVariable(nc)
	if err != nil {
		return nil, fmt.Errorf("raster %q: %w", path, err)
	}
	v, err := nc.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("raster %q: read %q: %w", path, name, err)
	}

	values, err := gridValues(v.Values)
	if err != nil {
		return nil, fmt.Errorf("raster %q: variable %q: %w", path, name, err)
	}
	g, err := domain.NewRasterGridFromValues(values)
	if err != nil {
		return nil, fmt.Errorf("raster %q: variable %q: %w", path, name, err)
	}

	transform, err := axisTransform(nc, v.Dimensions, g.Rows(), g.Cols())
	if err != nil {
		return nil, fmt.Errorf("raster %q: %w", path, err)
	}
	g.Transform = transform
	g.SRS = defaultSRS
	g.DataType = "Float64"

	if fill, ok := attrFloat(v.Attributes, "_FillValue"); ok {
		g.NoData = domain.NoDataSentinel(fill)
	} else if fill, ok := attrFloat(v.Attributes, "missing_value"); ok {
		g.NoData = domain.NoDataSentinel(fill)
	}
	if scale, ok := attrFloat(v.Attributes, "scale_factor"); ok {
		g.Scale = scale
	}
	if offset, ok := attrFloat(v.Attributes, "add_offset"); ok {
		g.Offset = offset
	}

	r.logger.Debug("opened netcdf raster",
		"path", path, "variable", name, "rows", g.Rows(), "cols", g.Cols())
	return g, nil
}

// pickVariable resolves the data variable: the configured name when set,
// otherwise the first variable that is not a coordinate axis.
func (r *Reader) pickVariable(nc api.Group) (string, error) {
	names := nc.ListVariables()
	if r.variable != "" {
		for _, n := range names {
			if n == r.variable {
				return n, nil
			}
		}
		return "", fmt.Errorf("variable %q not found (file has %v)", r.variable, names)
	}
	for _, n := range names {
		if !isCoordinateName(n) {
			return n, nil
		}
	}
	return "", fmt.Errorf("no data variable found (file has %v)", names)
}

func isCoordinateName(name string) bool {
	lower := strings.ToLower(name)
	for _, n := range latitudeNames {
		if lower == n {
			return true
		}
	}
	for _, n := range longitudeNames {
		if lower == n {
			return true
		}
	}
	return lower == "time" || lower == "crs"
}

// gridValues flattens the decoded variable into row-major float64 values.
// A leading singleton time dimension is accepted and peeled off.
func gridValues(values interface{}) ([][]float64, error) {
	switch v := values.(type) {
	case [][]float64:
		return v, nil
	case [][]float32:
		return convert2D(v), nil
	case [][]int32:
		return convert2D(v), nil
	case [][]int16:
		return convert2D(v), nil
	case [][][]float64:
		return peelTime(v)
	case [][][]float32:
		return peelTime(v)
	case [][][]int32:
		return peelTime(v)
	case [][][]int16:
		return peelTime(v)
	default:
		return nil, fmt.Errorf("unsupported value type %T", values)
	}
}

func convert2D[T float64 | float32 | int32 | int16](in [][]T) [][]float64 {
	out := make([][]float64, len(in))
	for i, row := range in {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = float64(v)
		}
	}
	return out
}

func peelTime[T float64 | float32 | int32 | int16](in [][][]T) ([][]float64, error) {
	if len(in) != 1 {
		return nil, fmt.Errorf("expected a single time step, got %d", len(in))
	}
	return convert2D(in[0]), nil
}

// axisTransform derives an affine transform from the latitude and longitude
// coordinate variables. Axes must be evenly spaced.
func axisTransform(nc api.Group, dims []string, rows, cols int) (domain.Affine, error) {
	latName, lonName := axisNames(dims)
	lats, err := axisValues(nc, latName, latitudeNames)
	if err != nil {
		return domain.Affine{}, err
	}
	lons, err := axisValues(nc, lonName, longitudeNames)
	if err != nil {
		return domain.Affine{}, err
	}
	if len(lats) != rows || len(lons) != cols {
		return domain.Affine{}, fmt.Errorf(
			"axis lengths %dx%d do not match grid %dx%d", len(lats), len(lons), rows, cols)
	}
	dy, err := axisStep(lats)
	if err != nil {
		return domain.Affine{}, fmt.Errorf("latitude axis: %w", err)
	}
	dx, err := axisStep(lons)
	if err != nil {
		return domain.Affine{}, fmt.Errorf("longitude axis: %w", err)
	}
	// Coordinate values are cell centers; the transform origin is the
	// outer corner of the first cell.
	return domain.Affine{
		X0: lons[0] - dx/2,
		DX: dx,
		Y0: lats[0] - dy/2,
		DY: dy,
	}, nil
}

// axisNames maps the variable's trailing two dimensions onto latitude and
// longitude, falling back to conventional names when dimensions are absent.
func axisNames(dims []string) (lat, lon string) {
	if len(dims) >= 2 {
		return dims[len(dims)-2], dims[len(dims)-1]
	}
	return "", ""
}

func axisValues(nc api.Group, name string, candidates []string) ([]float64, error) {
	names := []string{}
	if name != "" {
		names = append(names, name)
	}
	names = append(names, candidates...)
	for _, n := range names {
		vg, err := nc.GetVarGetter(n)
		if err != nil {
			continue
		}
		v, err := vg.Values()
		if err != nil {
			return nil, fmt.Errorf("axis %q: %w", n, err)
		}
		switch vals := v.(type) {
		case []float64:
			return vals, nil
		case []float32:
			out := make([]float64, len(vals))
			for i, x := range vals {
				out[i] = float64(x)
			}
			return out, nil
		case []int32:
			out := make([]float64, len(vals))
			for i, x := range vals {
				out[i] = float64(x)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("axis %q: unsupported type %T", n, v)
		}
	}
	return nil, fmt.Errorf("no coordinate axis found among %v", names)
}

func axisStep(vals []float64) (float64, error) {
	if len(vals) < 2 {
		return 0, fmt.Errorf("need at least two coordinates, got %d", len(vals))
	}
	step := vals[1] - vals[0]
	if step == 0 {
		return 0, fmt.Errorf("zero spacing")
	}
	return step, nil
}

func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int16:
		return float64(x), true
	case []float64:
		if len(x) > 0 {
			return x[0], true
		}
	case []float32:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	case []int16:
		if len(x) > 0 {
			return float64(x[0]), true
		}
	}
	return 0, false
}
