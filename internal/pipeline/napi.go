package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/districtwater/gridclim/internal/domain"
)

// annotateAntecedent re-reads the finished time-series table, orders it by
// date, computes the normalized antecedent precipitation index over the mean
// column, and rewrites the table with NAPI and Conditions columns appended.
// A table whose header lacks the expected columns fails before any mutation.
func (p *Pipeline) annotateAntecedent() error {
	header, rows, err := p.rewriter.ReadAll()
	if err != nil {
		return err
	}

	meanIdx := columnIndex(header, domain.MeanColumn(p.cfg.Unit))
	dateIdx := columnIndex(header, domain.DateColumn)
	if meanIdx < 0 {
		return fmt.Errorf("table has no %q column", domain.MeanColumn(p.cfg.Unit))
	}
	if dateIdx < 0 {
		return fmt.Errorf("table has no %q column", domain.DateColumn)
	}

	k := p.cfg.DecayConstant
	if !domain.ValidDecay(k) {
		p.logger.Warn("decay constant outside (0,1), index values may be unstable", "k", k)
	}
	window := p.cfg.AntecedentSteps
	if window == 0 {
		window = domain.DefaultWindow(p.cfg.Resolution)
	}
	layout := domain.DateLayout(p.cfg.Resolution)

	// Rows with parseable dates form the series; the rest keep empty index
	// cells and sort to the end.
	points := make([]domain.SeriesPoint, 0, len(rows))
	rowOf := make([]int, 0, len(rows))
	var undated []int
	for i, row := range rows {
		t, err := parseRowDate(row[dateIdx], layout)
		if err != nil {
			p.logger.Warn("row has no parseable date, excluded from the index series",
				"row", i+1, "date", row[dateIdx])
			undated = append(undated, i)
			continue
		}
		points = append(points, domain.SeriesPoint{Date: t, Value: parseRowValue(row[meanIdx])})
		rowOf = append(rowOf, i)
	}

	order := domain.SeriesOrder(points)
	series := make([]domain.SeriesPoint, len(points))
	for i, j := range order {
		series[i] = points[j]
	}
	napi := domain.ComputeNAPI(series, k, window, p.cfg.Decimals)
	if len(series) > window && allNaN(napi) {
		p.logger.Warn("series mean is zero or undefined, antecedent index left empty")
	}

	out := make([][]string, 0, len(rows))
	for i, j := range order {
		out = append(out, indexedRow(rows[rowOf[j]], napi[i]))
	}
	for _, idx := range undated {
		out = append(out, indexedRow(rows[idx], math.NaN()))
	}

	newHeader := append(append([]string{}, header...), "NAPI", "Conditions")
	if err := p.rewriter.Rewrite(newHeader, out); err != nil {
		return err
	}
	p.logger.Info("antecedent index annotated", "rows", len(out), "window", window, "k", k)
	return nil
}

// indexedRow appends the NAPI value and its wetness classification to a row.
// An undefined index yields empty cells.
func indexedRow(row []string, napi float64) []string {
	out := append([]string{}, row...)
	if math.IsNaN(napi) {
		return append(out, "", "")
	}
	return append(out,
		strconv.FormatFloat(napi, 'f', -1, 64),
		domain.ClassifyWetness(napi),
	)
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func parseRowDate(cell, layout string) (time.Time, error) {
	return time.Parse(layout, cell)
}

func parseRowValue(cell string) float64 {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func allNaN(vals []float64) bool {
	for _, v := range vals {
		if !math.IsNaN(v) {
			return false
		}
	}
	return len(vals) > 0
}
