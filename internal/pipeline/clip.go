package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/districtwater/gridclim/internal/domain"
)

// clipAll reprojects the boundary into each raster's reference and crops the
// raster to the boundary extent, masking cells outside every polygon. It
// returns the paths the extract stage should read. Unsupported files are
// skipped with a log line; an unreadable raster aborts the batch.
func (p *Pipeline) clipAll(ctx context.Context, paths []string) ([]string, error) {
	if p.cfg.BoundaryFile == "" {
		p.logger.Info("no boundary configured, skipping clip stage")
		return p.filterRasters(paths), nil
	}

	boundary, err := p.boundary.Load(p.cfg.BoundaryFile)
	if err != nil {
		return nil, err
	}

	outDir := p.clippedDir()
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create clipped directory: %w", err)
	}

	var clipped []string
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !domain.IsRasterFile(path) || !p.opener.Supports(path) {
			p.skipRaster(path, "suffix")
			continue
		}

		g, err := p.opener.Open(path)
		if err != nil {
			return nil, err
		}
		polygons, err := boundary.InSRS(g.SRS)
		if err != nil {
			return nil, fmt.Errorf("reproject boundary for %q: %w", path, err)
		}
		out, err := domain.Clip(g, polygons)
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", path, err)
		}

		name, fallback := domain.ClipOutputName(path)
		if fallback {
			p.logger.Warn("filename does not follow the grid naming convention, using stem",
				"path", path, "output", name)
			p.metrics.ParseFallbacks.Inc()
		}
		outPath := filepath.Join(outDir, name)
		if err := p.writer.Write(outPath, out); err != nil {
			return nil, err
		}
		p.metrics.RastersClipped.Inc()
		p.logger.Info("raster clipped",
			"input", path, "output", outPath,
			"rows", out.Rows(), "cols", out.Cols())
		clipped = append(clipped, outPath)
	}
	return clipped, nil
}

// filterRasters drops unsupported files, recording each skip.
func (p *Pipeline) filterRasters(paths []string) []string {
	var kept []string
	for _, path := range paths {
		if !domain.IsRasterFile(path) || !p.opener.Supports(path) {
			p.skipRaster(path, "suffix")
			continue
		}
		kept = append(kept, path)
	}
	return kept
}

func (p *Pipeline) skipRaster(path, reason string) {
	p.logger.Info("skipping file", "path", path, "reason", reason)
	p.metrics.RastersSkipped.WithLabelValues(reason).Inc()
}

// clippedDir is where clipped rasters land; a sibling of the inputs unless
// configured explicitly.
func (p *Pipeline) clippedDir() string {
	if p.cfg.ClippedDir != "" {
		return p.cfg.ClippedDir
	}
	return filepath.Join(p.cfg.RasterDir, "clipped")
}
