package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/districtwater/gridclim/internal/adapter/geotiff"
	httpadapter "github.com/districtwater/gridclim/internal/adapter/http"
	kafkaadapter "github.com/districtwater/gridclim/internal/adapter/kafka"
	"github.com/districtwater/gridclim/internal/adapter/netcdf"
	"github.com/districtwater/gridclim/internal/adapter/shapefile"
	"github.com/districtwater/gridclim/internal/adapter/table"
	"github.com/districtwater/gridclim/internal/config"
	"github.com/districtwater/gridclim/internal/observability"
	"github.com/districtwater/gridclim/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(observability.LoggerConfig{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		FileDir: cfg.LogFileDir,
	}, clockwork.NewRealClock().Now())
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}
	metrics := observability.NewMetrics()

	tiff := geotiff.NewStore(logger)
	opener := pipeline.NewMultiOpener(tiff, netcdf.NewReader(cfg.NetCDFVariable, logger))
	boundary := shapefile.NewLoader(logger)

	store, err := table.NewStore(cfg.CSVDir, cfg.CSVFile, cfg.Unit, logger)
	if err != nil {
		logger.Error("failed to create time-series table", "error", err)
		os.Exit(1)
	}

	// Record publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.RecordPublisher
	var closePublisher func() error
	if cfg.KafkaEnabled {
		kp := kafkaadapter.NewPublisher(cfg, logger)
		publisher = kp
		closePublisher = kp.Close
		logger.Info("record publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("record publishing disabled")
	}

	p := pipeline.New(cfg, opener, tiff, boundary, store, store, publisher, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The metrics server is optional; a batch run only needs it when
	// something scrapes it mid-flight.
	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, p, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	runErr := p.Run(ctx)
	stop()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		cancel()
	}
	if closePublisher != nil {
		if err := closePublisher(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("pipeline error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("run complete", "table", store.Path())
}
