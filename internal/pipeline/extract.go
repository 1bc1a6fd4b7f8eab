package pipeline

import (
	"context"
	"path/filepath"

	"github.com/districtwater/gridclim/internal/domain"
)

// extractAll computes statistics for each clipped raster and appends them to
// the time-series table in processing order. Grids with no valid cells are
// skipped with a warning; a table write failure aborts the batch.
func (p *Pipeline) extractAll(ctx context.Context, paths []string) error {
	records := make([]domain.StatisticsRecord, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}

		g, err := p.opener.Open(path)
		if err != nil {
			return err
		}
		p.rastersRead.Add(1)
		sample := g.ValidSample()
		p.metrics.ValidSampleSize.Observe(float64(len(sample)))
		if len(sample) == 0 || domain.AllNaN(sample) {
			p.logger.Warn("raster has no valid cells, omitting from series", "path", path)
			p.skipRaster(path, "empty_sample")
			continue
		}

		stats := domain.Summarize(sample)
		variable, date := p.gridMetadata(path)
		converted, recognized := domain.Convert(stats, variable, p.cfg.Unit)
		if !recognized {
			p.logger.Info("unrecognized variable code, statistics kept in native units",
				"path", path, "variable", variable)
		}
		rec := domain.NewStatisticsRecord(filepath.Base(path), variable, date, converted.RoundTo(p.cfg.Decimals))

		if err := p.appender.Append(rec); err != nil {
			return err
		}
		p.metrics.RowsWritten.Inc()
		p.rowsWritten.Add(1)
		p.ready.Store(true)
		records = append(records, rec)
	}

	if p.publisher != nil && len(records) > 0 {
		if err := p.publisher.Publish(ctx, records); err != nil {
			return err
		}
		p.metrics.RecordsPublished.Add(float64(len(records)))
		p.logger.Info("statistics records published", "count", len(records))
	}
	return nil
}

// gridMetadata resolves the variable code and observation date for a raster.
// Filenames that match the grid naming convention carry both; otherwise the
// underscore fields are used positionally, and as a last resort the run
// variable with an unknown date.
func (p *Pipeline) gridMetadata(path string) (variable, date string) {
	gn, err := domain.ParseGridName(filepath.Base(path))
	if err == nil {
		return gn.Variable, gn.Date
	}

	p.logger.Warn("filename does not follow the grid naming convention", "path", path, "error", err)
	p.metrics.ParseFallbacks.Inc()

	if variable, date, ok := domain.SplitGridName(path); ok {
		return variable, date
	}
	return p.cfg.ClimateVariable, "unknown"
}
