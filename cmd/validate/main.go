// Command validate performs integrity checks on a finished time-series
// table: header layout, statistic ordering, date ordering, antecedent-index
// definedness, and wetness classification consistency.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -table climate_series.csv -unit mm -resolution daily
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/districtwater/gridclim/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	tablePath := flag.String("table", "", "path to the time-series CSV")
	unit := flag.String("unit", "mm", "display unit the table was written with")
	resolution := flag.String("resolution", "daily", "temporal resolution: daily or monthly")
	steps := flag.Int("steps", 0, "antecedent window; 0 selects the resolution default")
	flag.Parse()

	if *tablePath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*tablePath, *unit, *resolution, *steps); code != 0 {
		os.Exit(code)
	}
}

func run(tablePath, unit, resolution string, steps int) int {
	f, err := os.Open(tablePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open table: %v\n", err)
		return 1
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read table: %v\n", err)
		return 1
	}
	if len(all) == 0 {
		fmt.Fprintln(os.Stderr, "FATAL: table is empty")
		return 1
	}
	header, rows := all[0], all[1:]

	window := steps
	if window == 0 {
		window = domain.DefaultWindow(resolution)
	}

	fmt.Println("=== Climate Series Validation ===")
	fmt.Println()

	phases := []*phase{
		validateHeader(header, unit),
		validateStatOrdering(header, rows, unit),
		validateDateOrdering(header, rows, resolution),
		validateAntecedent(header, rows, resolution, window),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-38s %s\n", p.name, status)
	}
	fmt.Println()
	fmt.Printf("Rows: %d\n", len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 10 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-i)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Println("\nAll checks passed.")
	return 0
}

func validateHeader(header []string, unit string) *phase {
	p := &phase{name: "header layout"}
	want := append(domain.TableHeader(unit), "NAPI", "Conditions")
	if len(header) != len(want) {
		p.errorf("header has %d columns, want %d", len(header), len(want))
		return p
	}
	for i, h := range header {
		if h != want[i] {
			p.errorf("column %d is %q, want %q", i, h, want[i])
		}
	}
	return p
}

func validateStatOrdering(header []string, rows [][]string, unit string) *phase {
	p := &phase{name: "statistic ordering"}
	minIdx := columnIndex(header, domain.TableHeader(unit)[3])
	medIdx := columnIndex(header, domain.TableHeader(unit)[6])
	meanIdx := columnIndex(header, domain.MeanColumn(unit))
	maxIdx := minIdx + 1
	if minIdx < 0 || meanIdx < 0 || medIdx < 0 {
		p.errorf("statistic columns not found for unit %q", unit)
		return p
	}
	for i, row := range rows {
		min := cellFloat(row[minIdx])
		max := cellFloat(row[maxIdx])
		mean := cellFloat(row[meanIdx])
		med := cellFloat(row[medIdx])
		if math.IsNaN(min) || math.IsNaN(max) {
			continue
		}
		if min > max {
			p.errorf("row %d: min %.4f > max %.4f", i+1, min, max)
		}
		if !math.IsNaN(mean) && (mean < min || mean > max) {
			p.errorf("row %d: mean %.4f outside [%.4f, %.4f]", i+1, mean, min, max)
		}
		if !math.IsNaN(med) && (med < min || med > max) {
			p.errorf("row %d: median %.4f outside [%.4f, %.4f]", i+1, med, min, max)
		}
	}
	return p
}

func validateDateOrdering(header []string, rows [][]string, resolution string) *phase {
	p := &phase{name: "date ordering"}
	dateIdx := columnIndex(header, domain.DateColumn)
	if dateIdx < 0 {
		p.errorf("date column not found")
		return p
	}
	layout := domain.DateLayout(resolution)
	var prev time.Time
	var prevSet bool
	for i, row := range rows {
		t, err := time.Parse(layout, row[dateIdx])
		if err != nil {
			// Undated rows sort to the end; everything after must also
			// be undated.
			for j := i; j < len(rows); j++ {
				if _, err := time.Parse(layout, rows[j][dateIdx]); err == nil {
					p.errorf("row %d: dated row %q after undated rows", j+1, rows[j][dateIdx])
				}
			}
			return p
		}
		if prevSet && t.Before(prev) {
			p.errorf("row %d: date %q before previous %q", i+1, row[dateIdx], prev.Format(layout))
		}
		prev, prevSet = t, true
	}
	return p
}

func validateAntecedent(header []string, rows [][]string, resolution string, window int) *phase {
	p := &phase{name: "antecedent index"}
	napiIdx := columnIndex(header, "NAPI")
	condIdx := columnIndex(header, "Conditions")
	dateIdx := columnIndex(header, domain.DateColumn)
	if napiIdx < 0 || condIdx < 0 || dateIdx < 0 {
		p.errorf("NAPI, Conditions, or date column not found")
		return p
	}
	layout := domain.DateLayout(resolution)
	dated := 0
	for i, row := range rows {
		_, dateErr := time.Parse(layout, row[dateIdx])
		napiCell, condCell := row[napiIdx], row[condIdx]

		if dateErr != nil || dated < window {
			if napiCell != "" || condCell != "" {
				p.errorf("row %d: index defined before the window filled", i+1)
			}
			if dateErr == nil {
				dated++
			}
			continue
		}
		dated++

		if napiCell == "" {
			if condCell != "" {
				p.errorf("row %d: classification %q without an index value", i+1, condCell)
			}
			continue
		}
		v, err := strconv.ParseFloat(napiCell, 64)
		if err != nil {
			p.errorf("row %d: NAPI %q is not a number", i+1, napiCell)
			continue
		}
		if want := domain.ClassifyWetness(v); condCell != want {
			p.errorf("row %d: conditions %q, want %q for index %.4f", i+1, condCell, want, v)
		}
	}
	return p
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func cellFloat(cell string) float64 {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
