package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// climateVariables are the PRISM variable codes a run may request. Grids for
// other codes can still appear in a batch; they get generic statistics.
var climateVariables = map[string]bool{
	"ppt":    true,
	"tmean":  true,
	"tmax":   true,
	"tmin":   true,
	"tdmean": true,
}

// Config holds all run settings, populated from environment variables.
type Config struct {
	// Run parameters.
	ClimateVariable string  `envconfig:"CLIMATE_VARIABLE" default:"ppt"`
	Unit            string  `envconfig:"UNIT" default:"mm"`
	Resolution      string  `envconfig:"RESOLUTION" default:"daily"`
	Decimals        int     `envconfig:"DECIMALS" default:"2"`
	DecayConstant   float64 `envconfig:"DECAY_CONSTANT" default:"0.98"`
	// AntecedentSteps of 0 selects the resolution default (30 daily, 3 monthly).
	AntecedentSteps int `envconfig:"ANTECEDENT_STEPS" default:"0"`

	// Input and output locations.
	RasterDir    string `envconfig:"RASTER_DIR" required:"true"`
	BoundaryFile string `envconfig:"BOUNDARY_FILE"`
	ClippedDir   string `envconfig:"CLIPPED_DIR"`
	CSVDir       string `envconfig:"CSV_DIR" default:"."`
	CSVFile      string `envconfig:"CSV_FILE" default:"climate_series.csv"`
	// NetCDFVariable names the data variable inside COARDS NetCDF sources;
	// empty selects the first non-coordinate variable.
	NetCDFVariable string `envconfig:"NETCDF_VARIABLE"`

	// Observability.
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	LogFileDir  string `envconfig:"LOG_FILE_DIR"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	// Optional statistics record publishing.
	KafkaEnabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"climate-statistics"`
}

// Load reads configuration from environment variables, applying defaults
// where unset, and validates the run parameters.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	cfg.ClimateVariable = strings.ToLower(cfg.ClimateVariable)
	cfg.Unit = strings.ToLower(cfg.Unit)
	cfg.Resolution = strings.ToLower(cfg.Resolution)

	if !climateVariables[cfg.ClimateVariable] {
		return nil, fmt.Errorf("CLIMATE_VARIABLE %q is not an available PRISM variable", cfg.ClimateVariable)
	}
	if cfg.Resolution != "daily" && cfg.Resolution != "monthly" {
		return nil, fmt.Errorf("RESOLUTION must be daily or monthly, got %q", cfg.Resolution)
	}
	if cfg.Decimals < 0 {
		return nil, errors.New("DECIMALS must not be negative")
	}
	if cfg.AntecedentSteps < 0 {
		return nil, errors.New("ANTECEDENT_STEPS must not be negative")
	}
	if !strings.HasSuffix(strings.ToLower(cfg.CSVFile), ".csv") {
		cfg.CSVFile += ".csv"
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return &cfg, nil
}

// DecayOutOfRange reports whether the decay constant falls outside the
// conventional (0,1) interval. Such constants are accepted; the caller logs
// a warning instead of rejecting the run.
func (c *Config) DecayOutOfRange() bool {
	return c.DecayConstant <= 0 || c.DecayConstant >= 1
}
