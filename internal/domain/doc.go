// Package domain models PRISM-style gridded climate data and the pure
// computations performed on it: boundary clipping, summary statistics,
// unit conversion, and the Normalized Antecedent Precipitation Index.
//
// # Data Source
//
// Source grids follow the PRISM Climate Group distribution conventions
// (https://prism.oregonstate.edu/): one GeoTIFF (or COARDS NetCDF) grid per
// time step, one climate variable per file, daily or monthly granularity.
//
// # Filename Convention
//
// PRISM grid filenames encode their metadata:
//
//	prism_<variable>[_<region>]_<resolution>_<date>[_<suffix>].tif
//	e.g. prism_ppt_us_30s_20240115.tif
//
// Date is YYYYMMDD for daily grids and YYYYMM for monthly grids; parsed dates
// are normalized to "2006-01-02" and "2006-01" respectively. Clipped outputs
// are renamed <source>_<variable>_<resolution>_<date>_clip.tif, falling back
// to <stem>_clip.tif when the source name does not split into five fields.
//
// # Units
//
// PRISM distributes precipitation in millimeters and every temperature-family
// variable (tmean, tmax, tmin, tdmean, any code starting with "t") in
// degrees Celsius. Conversion happens after the statistics are computed on
// raw values:
//
//	ppt: mm → in   divide by 25.40
//	t*:  °C → °F   multiply by 9/5, add 32
//
// Unrecognized variable codes get generic, unconverted statistics rather than
// an error; the caller logs the fallback.
//
// # Nodata
//
// A grid marks invalid cells one of three ways: not at all, with a numeric
// sentinel (commonly -9999), or with NaN. The closed [NoData] variant carries
// this distinction so filtering is a tag dispatch instead of runtime type
// inspection.
//
// # NAPI
//
// The Normalized Antecedent Precipitation Index for row i over window N with
// decay constant k:
//
//	NAPI[i] = Σ_{j=1..N} ppt[i-j]·k^j / (mean(ppt) · Σ_{j=1..N} k^j)
//
// Rows with fewer than N antecedent observations are undefined. An index
// within 1e-6 of 1 classifies the period as "normal", above as "wet", below
// as "dry". A series whose mean is exactly zero yields an undefined index
// everywhere. k is conventionally in (0,1); values outside only warn.
package domain
