// Command backfill harvests the training corpus: month-range sounding
// listings for every station, 12Z surface observations and daily-high labels.
// It writes features.csv, labels.csv and soundings.parquet to OUTPUT_DIR.
//
// Usage:
//
//	go run ./cmd/backfill -start 202001 -end 202410
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sounding-forecast/internal/adapter/retrieval"
	"github.com/couchcryptid/sounding-forecast/internal/adapter/storage"
	"github.com/couchcryptid/sounding-forecast/internal/adapter/uwyo"
	"github.com/couchcryptid/sounding-forecast/internal/adapter/wunderground"
	"github.com/couchcryptid/sounding-forecast/internal/config"
	"github.com/couchcryptid/sounding-forecast/internal/domain"
	"github.com/couchcryptid/sounding-forecast/internal/observability"
	"github.com/couchcryptid/sounding-forecast/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.RequireBackfill()
	}
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	start := flag.Int("start", cfg.TrainingStartMonth, "first month, YYYYMM")
	end := flag.Int("end", cfg.TrainingEndMonth, "last month, YYYYMM")
	out := flag.String("out", cfg.OutputDir, "output directory")
	flag.Parse()

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	catalog := domain.DefaultCatalog()
	clock := clockwork.NewRealClock()

	windows, err := domain.Windows(*start, *end)
	if err != nil {
		logger.Error("invalid training range", "start", *start, "end", *end, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewLocalStore(*out)
	if err != nil {
		logger.Error("failed to open output directory", "dir", *out, "error", err)
		os.Exit(1)
	}

	// Only sounding pages go through the page cache, and only those of
	// finished months that carry a listing are stored.
	var cache retrieval.Cache = retrieval.NewLRUCache(cfg.FetchCacheSize)
	if cfg.RedisURL != "" {
		rc, err := retrieval.NewRedisCache(ctx, cfg.RedisURL, cfg.RedisCacheTTL, logger)
		if err != nil {
			logger.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		defer rc.Close() //nolint:errcheck // best-effort on exit
		cache = rc
		logger.Info("redis page cache enabled", "ttl", cfg.RedisCacheTTL)
	}

	soundingSession := retrieval.NewSession(sessionOptions(cfg, "uwyo"), metrics, logger)
	observationSession := retrieval.NewSession(sessionOptions(cfg, "wunderground"), metrics, logger)
	observations := wunderground.NewClient(observationSession, cfg.ObservationBaseURL, cfg.WeatherAPIKey)

	b := pipeline.NewBackfill(pipeline.BackfillDeps{
		Soundings: uwyo.NewClient(
			retrieval.NewCachedFetcher(soundingSession, cache, uwyo.CachePolicy(catalog, clock), metrics),
			cfg.SoundingBaseURL, cfg.SoundingHour, catalog, metrics, logger,
		),
		Observations: observations,
		Labels:       observations,
		Throttle:     pipeline.NewIntervalThrottle(clock, cfg.ObservationInterval),
	}, pipeline.BackfillConfig{
		Windows:            windows,
		ObservationStation: cfg.TrainingObservationStation,
		LabelStation:       cfg.LabelStation,
		BreakerWait:        cfg.BreakerTimeout,
		BreakerWaits:       cfg.BreakerWaits,
	}, catalog, clock, logger, metrics)

	logger.Info("backfill starting", "start", *start, "end", *end, "windows", len(windows), "out", *out)

	corpus, err := b.Run(ctx)
	if err != nil {
		logger.Error("backfill failed", "error", err)
		os.Exit(1)
	}
	if err := pipeline.WriteCorpus(ctx, store, corpus, catalog); err != nil {
		logger.Error("failed to write corpus", "error", err)
		os.Exit(1)
	}

	logger.Info("backfill complete", "rows", len(corpus.Features.Rows), "labels", len(corpus.Labels), "records", len(corpus.Records))
}

func sessionOptions(cfg *config.Config, source string) retrieval.Options {
	opts := retrieval.DefaultOptions(source)
	opts.Timeout = cfg.FetchTimeout
	opts.MaxAttempts = cfg.FetchMaxAttempts
	opts.MaxBackoff = cfg.FetchMaxBackoff
	opts.BreakerTimeout = cfg.BreakerTimeout
	return opts
}
