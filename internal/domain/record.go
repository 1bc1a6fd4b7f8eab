package domain

import (
	"strconv"
	"time"
)

// StatisticsRecord is one time-series row: the statistics of one clipped
// grid, already expressed in the display unit and rounded.
type StatisticsRecord struct {
	Filename    string    `json:"filename"`
	Variable    string    `json:"variable"`
	Date        string    `json:"date"` // ISO-normalized, or "unknown" when unparseable
	Stats       Stats     `json:"stats"`
	ProcessedAt time.Time `json:"processed_at"`
}

// baseColumns lead every time-series table regardless of unit.
var baseColumns = []string{"Filename", "Climate Variable", "Date"}

// unitColumns maps a display unit to its four statistic column names. The
// header is fixed at table creation and every appended row must match it.
var unitColumns = map[string][]string{
	"in": {"Min. (in)", "Max. (in)", "Arithmetic Mean (in)", "Median (in)"},
	"mm": {"Min. (mm)", "Max. (mm)", "Arithmetic Mean (mm)", "Median (mm)"},
	"f":  {"Min. (F)", "Max. (F)", "Arithmetic Mean (F)", "Median (F)"},
	"c":  {"Min. (C)", "Max. (C)", "Arithmetic Mean (C)", "Median (C)"},
}

// genericStatColumns name the statistic columns for unrecognized units.
var genericStatColumns = []string{"Min.", "Max.", "Arithmetic Mean", "Median"}

// TableHeader returns the full column header for a table recording
// statistics in the given unit.
func TableHeader(unit string) []string {
	cols, ok := unitColumns[unit]
	if !ok {
		cols = genericStatColumns
	}
	header := make([]string, 0, len(baseColumns)+len(cols))
	header = append(header, baseColumns...)
	header = append(header, cols...)
	return header
}

// MeanColumn returns the name of the precipitation statistic column the NAPI
// pass reads for the given unit.
func MeanColumn(unit string) string {
	if cols, ok := unitColumns[unit]; ok {
		return cols[2]
	}
	return genericStatColumns[2]
}

// DateColumn is the name of the date column in every time-series table.
const DateColumn = "Date"

// Row renders the record as table cells in header order. NaN statistics
// render as empty cells.
func (r StatisticsRecord) Row() []string {
	return []string{
		r.Filename,
		r.Variable,
		r.Date,
		formatStat(r.Stats.Min),
		formatStat(r.Stats.Max),
		formatStat(r.Stats.Mean),
		formatStat(r.Stats.Median),
	}
}

func formatStat(v float64) string {
	if v != v { // NaN
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NewStatisticsRecord assembles a record for a clipped raster, stamping it
// with the package clock.
func NewStatisticsRecord(filename, variable, date string, s Stats) StatisticsRecord {
	return StatisticsRecord{
		Filename:    filename,
		Variable:    variable,
		Date:        date,
		Stats:       s,
		ProcessedAt: clock.Now(),
	}
}
