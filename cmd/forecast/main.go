// Command forecast serves the daily maximum-temperature forecast. It runs the
// forecast job on FORECAST_SCHEDULE and exposes /healthz, /readyz and /metrics.
//
// Usage:
//
//	go run ./cmd/forecast        # scheduled service
//	go run ./cmd/forecast -once  # single run, then exit
//	go run ./cmd/forecast -once -date 2024-06-02  # rerun a past date
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sounding-forecast/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/sounding-forecast/internal/adapter/kafka"
	"github.com/couchcryptid/sounding-forecast/internal/adapter/postgres"
	"github.com/couchcryptid/sounding-forecast/internal/adapter/retrieval"
	"github.com/couchcryptid/sounding-forecast/internal/adapter/storage"
	"github.com/couchcryptid/sounding-forecast/internal/adapter/uwyo"
	"github.com/couchcryptid/sounding-forecast/internal/adapter/wunderground"
	"github.com/couchcryptid/sounding-forecast/internal/config"
	"github.com/couchcryptid/sounding-forecast/internal/domain"
	"github.com/couchcryptid/sounding-forecast/internal/model"
	"github.com/couchcryptid/sounding-forecast/internal/observability"
	"github.com/couchcryptid/sounding-forecast/internal/pipeline"
	"github.com/couchcryptid/sounding-forecast/internal/scheduler"
)

func main() {
	once := flag.Bool("once", false, "run the forecast job once and exit")
	day := flag.String("date", "", "with -once, forecast this date (YYYY-MM-DD) instead of today")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.RequireForecast()
	}
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	catalog := domain.DefaultCatalog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := model.Load(cfg.ModelDir, cfg.ModelName, cfg.ModelFactor)
	if err != nil {
		logger.Error("failed to load model", "dir", cfg.ModelDir, "model", cfg.ModelName, "error", err)
		os.Exit(1)
	}
	logger.Info("model loaded", "model", m.Name(), "features", len(m.Columns()))

	history, err := postgres.NewHistoryStore(ctx, cfg.DatabaseURL, cfg.Timezone)
	if err != nil {
		logger.Error("failed to connect history store", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	store, err := storage.New(ctx, cfg.StorageMode, cfg.LocalArtifactDir, cfg.GCSBucket)
	if err != nil {
		logger.Error("failed to open artifact store", "mode", cfg.StorageMode, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("artifact store close error", "error", err)
		}
	}()

	soundingSession := retrieval.NewSession(sessionOptions(cfg, "uwyo"), metrics, logger)
	observationSession := retrieval.NewSession(sessionOptions(cfg, "wunderground"), metrics, logger)

	deps := pipeline.ForecasterDeps{
		Soundings:    uwyo.NewClient(soundingSession, cfg.SoundingBaseURL, cfg.SoundingHour, catalog, metrics, logger),
		Observations: wunderground.NewClient(observationSession, cfg.ObservationBaseURL, cfg.WeatherAPIKey),
		Model:        m,
		History:      history,
		Store:        store,
	}

	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		deps.Events = publisher
		logger.Info("forecast events enabled", "topic", cfg.KafkaTopic)
	}

	forecaster := pipeline.NewForecaster(deps, pipeline.ForecasterConfig{
		ObservationStation: cfg.ObservationStation,
		Location:           cfg.Timezone,
	}, catalog, clockwork.NewRealClock(), logger, metrics)

	if *once {
		run := forecaster.Run
		if *day != "" {
			d, err := domain.ParseDate(*day)
			if err != nil {
				logger.Error("invalid -date", "error", err)
				os.Exit(1)
			}
			run = func(ctx context.Context) error { return forecaster.RunFor(ctx, d) }
		}
		err := run(ctx)
		closePublisher(publisher, logger)
		if err != nil {
			logger.Error("forecast run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	sched := scheduler.New(cfg.ForecastSchedule, cfg.Timezone, forecaster.Run, cfg.JobTimeout, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Checks{
		{Name: "scheduler", Check: sched},
		{Name: "history", Check: history},
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := sched.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	sched.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closePublisher(publisher, logger)

	logger.Info("shutdown complete")
}

func sessionOptions(cfg *config.Config, source string) retrieval.Options {
	opts := retrieval.DefaultOptions(source)
	opts.Timeout = cfg.FetchTimeout
	opts.MaxAttempts = cfg.FetchMaxAttempts
	opts.MaxBackoff = cfg.FetchMaxBackoff
	opts.BreakerTimeout = cfg.BreakerTimeout
	return opts
}

func closePublisher(p *kafkaadapter.Publisher, logger *slog.Logger) {
	if p == nil {
		return
	}
	if err := p.Close(); err != nil {
		logger.Error("kafka publisher close error", "error", err)
	}
}
