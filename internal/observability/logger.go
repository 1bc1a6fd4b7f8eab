package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LoggerConfig carries the logging settings from configuration.
type LoggerConfig struct {
	Level  string // debug | info | warn | error
	Format string // json | text
	// FileDir, when set, adds a per-run log file named
	// gridclim_<timestamp>.log alongside stderr output.
	FileDir string
}

// NewLogger builds the run-scoped slog logger. When FileDir is set the log
// stream is duplicated into a per-run file; failure to create it is an
// error because the run log is the primary failure record.
func NewLogger(cfg LoggerConfig, now time.Time) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	if cfg.FileDir != "" {
		if err := os.MkdirAll(cfg.FileDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		name := fmt.Sprintf("gridclim_%s.log", now.Format("2006-01-02_15.04.05"))
		f, err := os.Create(filepath.Join(cfg.FileDir, name))
		if err != nil {
			return nil, fmt.Errorf("create run log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler), nil
}
