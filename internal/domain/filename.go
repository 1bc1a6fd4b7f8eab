package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// gridNameRe matches PRISM grid filenames. Captured groups: variable,
// optional region, resolution, date (8-digit daily or 6-digit monthly), and
// an optional trailing suffix such as "clip".
var gridNameRe = regexp.MustCompile(`prism_([a-zA-Z]+)(?:_([\da-zA-Z]+))?_([\da-zA-Z]+)_(\d{8}|\d{6})(?:_([\da-zA-Z]+))?\.tif`)

// GridName holds the metadata encoded in a PRISM grid filename.
type GridName struct {
	Variable   string
	Region     string
	Resolution string
	Date       string // ISO-normalized: 2006-01-02 (daily) or 2006-01 (monthly)
}

// ParseGridName extracts grid metadata from a PRISM filename and normalizes
// the embedded date. An 8-digit date becomes YYYY-MM-DD, a 6-digit date
// YYYY-MM; a date that matches the digit count but not the calendar is kept
// raw rather than rejected.
func ParseGridName(filename string) (GridName, error) {
	m := gridNameRe.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return GridName{}, fmt.Errorf("filename %q does not match the PRISM grid pattern", filepath.Base(filename))
	}
	return GridName{
		Variable:   m[1],
		Region:     m[2],
		Resolution: m[3],
		Date:       normalizeGridDate(m[4]),
	}, nil
}

func normalizeGridDate(raw string) string {
	switch len(raw) {
	case 8:
		if t, err := time.Parse("20060102", raw); err == nil {
			return t.Format("2006-01-02")
		}
	case 6:
		if t, err := time.Parse("200601", raw); err == nil {
			return t.Format("2006-01")
		}
	}
	return raw
}

// ClipOutputName derives the filename of a clipped raster. Names that split
// on "_" into at least five fields are rebuilt as
// <source>_<variable>_<resolution>_<date>_clip.tif; anything else falls back
// to <stem>_clip.tif. The second return reports whether the fallback was
// used so the caller can log the mismatch.
func ClipOutputName(filename string) (name string, fallback bool) {
	base := filepath.Base(filename)
	parts := strings.Split(base, "_")
	if len(parts) >= 5 {
		source := parts[0]
		variable := parts[1]
		resolution := parts[3]
		date := strings.TrimSuffix(parts[4], filepath.Ext(parts[4]))
		return fmt.Sprintf("%s_%s_%s_%s_clip.tif", source, variable, resolution, date), false
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "_clip.tif", true
}

// SplitGridName recovers the variable and date from an underscore-delimited
// raster name that does not match the PRISM pattern, such as the clipped
// output of another source. A trailing "clip" marker is ignored; the variable
// is the second field and the date the last, normalized like ParseGridName.
// ok is false when the name has too few fields for the positions to mean
// anything.
func SplitGridName(filename string) (variable, date string, ok bool) {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(stem, "_")
	if parts[len(parts)-1] == "clip" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 4 {
		return "", "", false
	}
	return parts[1], normalizeGridDate(parts[len(parts)-1]), true
}

// IsRasterFile reports whether a path looks like a raster grid by suffix.
// Non-raster paths are silently skipped by the clipper.
func IsRasterFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff", ".nc":
		return true
	}
	return false
}
