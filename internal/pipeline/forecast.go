package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sounding-forecast/internal/adapter/storage"
	"github.com/couchcryptid/sounding-forecast/internal/domain"
	"github.com/couchcryptid/sounding-forecast/internal/observability"
)

// Artifact names written by the forecaster.
const (
	PredictionArtifact = "prediction.txt"
	MaxTempArtifact    = "max_temp.txt"
)

// DaySource returns one station's consolidated sounding for a date.
type DaySource interface {
	FetchDay(ctx context.Context, station domain.Station, date domain.Date) (domain.ConsolidatedSounding, error)
}

// NoonSource returns the surface observation nearest 12Z for a date.
type NoonSource interface {
	NoonObservation(ctx context.Context, station string, date domain.Date) (domain.ObservationFeature, error)
}

// Predictor evaluates a trained model on one named feature vector.
type Predictor interface {
	Name() string
	Predict(columns []string, x []float64) (float64, error)
}

// HistorySource reports the realised daily maximum temperature.
type HistorySource interface {
	MaxTempF(ctx context.Context, day domain.Date) (float64, error)
}

// ArtifactStore persists artifacts by key.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) error
}

// EventPublisher announces stored artifacts.
type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.ForecastEvent) error
}

// ForecasterDeps are the collaborators of a Forecaster. Events may be nil.
type ForecasterDeps struct {
	Soundings    DaySource
	Observations NoonSource
	Model        Predictor
	History      HistorySource
	Store        ArtifactStore
	Events       EventPublisher
}

// ForecasterConfig holds per-deployment settings.
type ForecasterConfig struct {
	ObservationStation string
	Location           *time.Location // calendar zone for "today"
}

// Forecaster produces the daily prediction and the previous day's realised
// maximum. Any missing station or observation aborts the prediction.
type Forecaster struct {
	deps    ForecasterDeps
	cfg     ForecasterConfig
	policy  domain.MissingPolicy
	catalog *domain.Catalog
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	lastRun time.Time
}

// NewForecaster wires a forecaster.
func NewForecaster(deps ForecasterDeps, cfg ForecasterConfig, catalog *domain.Catalog, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Forecaster {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Forecaster{
		deps:    deps,
		cfg:     cfg,
		policy:  domain.AbortOnAnyMissing,
		catalog: catalog,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Policy is the missing-data policy this pipeline applies.
func (f *Forecaster) Policy() domain.MissingPolicy { return f.policy }

// LastRun reports when Run last completed, zero if never.
func (f *Forecaster) LastRun() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastRun
}

// Run executes one forecast job for today in the configured location.
func (f *Forecaster) Run(ctx context.Context) error {
	return f.RunFor(ctx, domain.DateOf(f.clock.Now().In(f.cfg.Location)))
}

// RunFor executes one forecast job as if today were the given date. A failed
// prediction is logged and counted; only a failure to record the previous
// day's maximum is returned.
func (f *Forecaster) RunFor(ctx context.Context, today domain.Date) error {
	start := f.clock.Now()
	logger := f.logger.With("run_id", uuid.NewString(), "date", today.String())
	defer func() {
		f.metrics.RunDuration.WithLabelValues("forecast").Observe(f.clock.Since(start).Seconds())
		f.mu.Lock()
		f.lastRun = f.clock.Now()
		f.mu.Unlock()
	}()

	logger.Info("forecast run started", "policy", f.Policy().String())

	if err := f.forecast(ctx, today, logger); err != nil {
		f.metrics.PredictionsFailed.Inc()
		logger.Error("prediction failed", "error", err)
	}

	prev := today.AddDays(-1)
	maxTemp, err := f.deps.History.MaxTempF(ctx, prev)
	if err != nil {
		return fmt.Errorf("previous day max temperature: %w", err)
	}
	if err := f.record(ctx, logger, domain.EventMaxTemp, prev, maxTemp, MaxTempArtifact); err != nil {
		return err
	}

	logger.Info("forecast run finished", "max_temp_date", prev.String(), "max_temp_f", maxTemp)
	return nil
}

func (f *Forecaster) forecast(ctx context.Context, today domain.Date, logger *slog.Logger) error {
	prediction, err := f.Predict(ctx, today)
	if err != nil {
		return err
	}
	if err := f.record(ctx, logger, domain.EventPrediction, today, prediction, PredictionArtifact); err != nil {
		return err
	}
	f.metrics.PredictionsTotal.Inc()
	f.metrics.LastPrediction.Set(prediction)
	logger.Info("prediction stored", "prediction_f", prediction, "model", f.deps.Model.Name())
	return nil
}

// Predict fetches every station and the noon observation for date and
// evaluates the model.
func (f *Forecaster) Predict(ctx context.Context, date domain.Date) (float64, error) {
	m, err := f.Features(ctx, date)
	if err != nil {
		return 0, err
	}
	if len(m.Rows) != 1 {
		return 0, fmt.Errorf("assembled %d feature rows for %s: %w", len(m.Rows), date, domain.ErrIncompleteFeatures)
	}
	vec, ok := m.Rows[0].Vector()
	if !ok {
		return 0, fmt.Errorf("features for %s: %w", date, domain.ErrIncompleteFeatures)
	}
	return f.deps.Model.Predict(m.Columns, vec)
}

// Features assembles the single-date feature matrix. Under the abort
// policy the first missing or incomplete station stops the run.
func (f *Forecaster) Features(ctx context.Context, date domain.Date) (domain.FeatureMatrix, error) {
	stations := f.catalog.Stations()
	records := make([]domain.ConsolidatedSounding, 0, len(stations))
	for _, s := range stations {
		rec, err := f.deps.Soundings.FetchDay(ctx, s, date)
		if err == nil && !rec.Complete() {
			err = domain.ErrIncompleteFeatures
		}
		if err != nil {
			f.metrics.StationsMissing.WithLabelValues(s.Name).Inc()
			if f.Policy() == domain.AbortOnAnyMissing {
				return domain.FeatureMatrix{}, fmt.Errorf("station %s: %w", s.Name, err)
			}
			continue
		}
		records = append(records, rec)
	}

	obs, err := f.deps.Observations.NoonObservation(ctx, f.cfg.ObservationStation, date)
	if err != nil {
		f.metrics.ObservationsMissing.Inc()
		return domain.FeatureMatrix{}, fmt.Errorf("observation %s: %w", f.cfg.ObservationStation, err)
	}

	wide, err := f.Policy().Align(records, f.catalog)
	if err != nil {
		return domain.FeatureMatrix{}, err
	}
	return domain.Assemble(wide, []domain.ObservationFeature{obs}, f.catalog), nil
}

func (f *Forecaster) record(ctx context.Context, logger *slog.Logger, kind string, date domain.Date, value float64, artifact string) error {
	key := storage.ArtifactKey(date, artifact)
	if err := f.deps.Store.Put(ctx, key, []byte(strconv.FormatFloat(value, 'f', -1, 64))); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	f.metrics.ArtifactsWritten.WithLabelValues(artifact).Inc()

	if f.deps.Events == nil {
		return nil
	}
	event := domain.ForecastEvent{
		ID:           uuid.NewString(),
		Kind:         kind,
		ForecastDate: date.String(),
		ValueF:       value,
		ArtifactKey:  key,
		ProducedAt:   f.clock.Now().UTC(),
	}
	if kind == domain.EventPrediction {
		event.Model = f.deps.Model.Name()
	}
	if err := f.deps.Events.Publish(ctx, event); err != nil {
		logger.Warn("publish forecast event failed", "kind", kind, "error", err)
		return nil
	}
	f.metrics.EventsPublished.Inc()
	return nil
}
