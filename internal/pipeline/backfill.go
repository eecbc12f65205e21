package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sounding-forecast/internal/adapter/retrieval"
	"github.com/couchcryptid/sounding-forecast/internal/dataset"
	"github.com/couchcryptid/sounding-forecast/internal/domain"
	"github.com/couchcryptid/sounding-forecast/internal/observability"
)

// MonthSource returns one station's consolidated soundings for a month.
type MonthSource interface {
	FetchMonth(ctx context.Context, station domain.Station, w domain.TrainingWindow) ([]domain.ConsolidatedSounding, error)
}

// LabelSource returns the realised daily high for a date.
type LabelSource interface {
	DailyHigh(ctx context.Context, station string, date domain.Date) (domain.Label, error)
}

// BackfillDeps are the collaborators of a Backfill.
type BackfillDeps struct {
	Soundings    MonthSource
	Observations NoonSource
	Labels       LabelSource
	Throttle     Throttle // paces observation and label requests; nil means none
}

// BackfillConfig selects the months and stations to harvest.
type BackfillConfig struct {
	Windows            []domain.TrainingWindow
	ObservationStation string
	LabelStation       string

	// BreakerWait is how long to pause when an upstream circuit is open
	// before asking again; BreakerWaits caps the pauses per request. Zero
	// values mean 30s and 10.
	BreakerWait  time.Duration
	BreakerWaits int
}

const (
	defaultBreakerWait  = 30 * time.Second
	defaultBreakerWaits = 10
)

// Corpus is the harvested training data.
type Corpus struct {
	Features domain.FeatureMatrix
	Labels   []domain.Label
	Records  []domain.ConsolidatedSounding
}

// Backfill harvests historical soundings, observations and labels. Missing
// stations are null-filled and incomplete dates dropped.
type Backfill struct {
	deps    BackfillDeps
	cfg     BackfillConfig
	policy  domain.MissingPolicy
	catalog *domain.Catalog
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewBackfill wires a backfill run.
func NewBackfill(deps BackfillDeps, cfg BackfillConfig, catalog *domain.Catalog, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Backfill {
	if deps.Throttle == nil {
		deps.Throttle = NoThrottle{}
	}
	if cfg.BreakerWait <= 0 {
		cfg.BreakerWait = defaultBreakerWait
	}
	if cfg.BreakerWaits <= 0 {
		cfg.BreakerWaits = defaultBreakerWaits
	}
	return &Backfill{
		deps:    deps,
		cfg:     cfg,
		policy:  domain.NullFillThenDropIncomplete,
		catalog: catalog,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Policy is the missing-data policy this pipeline applies.
func (b *Backfill) Policy() domain.MissingPolicy { return b.policy }

// Run harvests every configured window. Individual station, observation and
// label failures are skipped. Context cancellation aborts, and so does an
// upstream circuit that stays open through every wait.
func (b *Backfill) Run(ctx context.Context) (Corpus, error) {
	start := b.clock.Now()
	logger := b.logger.With("run_id", uuid.NewString(), "policy", b.Policy().String())
	defer func() {
		b.metrics.RunDuration.WithLabelValues("backfill").Observe(b.clock.Since(start).Seconds())
	}()

	corpus := Corpus{Features: domain.FeatureMatrix{Columns: domain.FeatureColumns(b.catalog)}}
	for _, w := range b.cfg.Windows {
		if err := ctx.Err(); err != nil {
			return corpus, err
		}
		records, m, err := b.window(ctx, w, logger)
		if err != nil {
			return corpus, err
		}
		corpus.Records = append(corpus.Records, records...)
		corpus.Features.Rows = append(corpus.Features.Rows, m.Rows...)
		logger.Info("window harvested", "window", w.String(), "records", len(records), "rows", len(m.Rows))
	}

	labels, err := b.labels(ctx, corpus.Features, logger)
	if err != nil {
		return corpus, err
	}
	corpus.Labels = labels

	logger.Info("backfill finished",
		"windows", len(b.cfg.Windows),
		"rows", len(corpus.Features.Rows),
		"labels", len(corpus.Labels),
	)
	return corpus, nil
}

func (b *Backfill) window(ctx context.Context, w domain.TrainingWindow, logger *slog.Logger) ([]domain.ConsolidatedSounding, domain.FeatureMatrix, error) {
	var records []domain.ConsolidatedSounding
	for _, s := range b.catalog.Stations() {
		recs, err := waitOutBreaker(ctx, b, logger, func() ([]domain.ConsolidatedSounding, error) {
			return b.deps.Soundings.FetchMonth(ctx, s, w)
		})
		if err != nil {
			if abort(ctx, err) {
				return nil, domain.FeatureMatrix{}, fmt.Errorf("station %s window %s: %w", s.Name, w, err)
			}
			b.metrics.StationsMissing.WithLabelValues(s.Name).Inc()
			logger.Warn("station month unavailable", "station", s.Name, "window", w.String(), "error", err)
			continue
		}
		records = append(records, recs...)
	}

	wide, err := b.Policy().Align(records, b.catalog)
	if err != nil {
		return nil, domain.FeatureMatrix{}, err
	}

	obs := make([]domain.ObservationFeature, 0, len(wide))
	for _, row := range wide {
		if err := b.deps.Throttle.Wait(ctx); err != nil {
			return nil, domain.FeatureMatrix{}, err
		}
		o, err := waitOutBreaker(ctx, b, logger, func() (domain.ObservationFeature, error) {
			return b.deps.Observations.NoonObservation(ctx, b.cfg.ObservationStation, row.ForecastDate)
		})
		if err != nil {
			if abort(ctx, err) {
				return nil, domain.FeatureMatrix{}, fmt.Errorf("observation %s: %w", row.ForecastDate, err)
			}
			b.metrics.ObservationsMissing.Inc()
			logger.Warn("observation unavailable", "date", row.ForecastDate.String(), "error", err)
			continue
		}
		obs = append(obs, o)
	}

	return records, domain.Assemble(wide, obs, b.catalog).DropIncomplete(), nil
}

func (b *Backfill) labels(ctx context.Context, m domain.FeatureMatrix, logger *slog.Logger) ([]domain.Label, error) {
	labels := make([]domain.Label, 0, len(m.Rows))
	for _, row := range m.Rows {
		if err := b.deps.Throttle.Wait(ctx); err != nil {
			return labels, err
		}
		l, err := waitOutBreaker(ctx, b, logger, func() (domain.Label, error) {
			return b.deps.Labels.DailyHigh(ctx, b.cfg.LabelStation, row.ForecastDate)
		})
		if err != nil {
			if abort(ctx, err) {
				return labels, fmt.Errorf("label %s: %w", row.ForecastDate, err)
			}
			logger.Warn("label unavailable", "date", row.ForecastDate.String(), "error", err)
			continue
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// waitOutBreaker calls fn and, while it is refused by an open circuit, sleeps
// BreakerWait on the clock and calls again, at most BreakerWaits times.
func waitOutBreaker[T any](ctx context.Context, b *Backfill, logger *slog.Logger, fn func() (T, error)) (T, error) {
	for waits := 0; ; waits++ {
		v, err := fn()
		if err == nil || !errors.Is(err, retrieval.ErrCircuitOpen) || waits >= b.cfg.BreakerWaits {
			return v, err
		}
		logger.Warn("upstream circuit open, waiting", "wait", b.cfg.BreakerWait, "attempt", waits+1, "max_attempts", b.cfg.BreakerWaits)
		if err := sleepWithContext(ctx, b.clock, b.cfg.BreakerWait); err != nil {
			var zero T
			return zero, err
		}
	}
}

// abort reports whether err ends the run rather than skipping one unit.
func abort(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, retrieval.ErrCircuitOpen)
}

// WriteCorpus encodes the corpus and stores features, labels, the
// label-joined training table and the sounding archive under their dataset
// file names.
func WriteCorpus(ctx context.Context, store ArtifactStore, corpus Corpus, c *domain.Catalog) error {
	var features, labels, training, archive bytes.Buffer
	if err := dataset.WriteFeatures(&features, corpus.Features); err != nil {
		return err
	}
	if err := dataset.WriteLabels(&labels, corpus.Labels); err != nil {
		return err
	}
	if err := dataset.WriteTraining(&training, corpus.Features.Columns, domain.AttachLabels(corpus.Features.DropIncomplete(), corpus.Labels)); err != nil {
		return err
	}
	if err := dataset.WriteArchive(&archive, corpus.Records, c); err != nil {
		return err
	}

	for _, out := range []struct {
		name string
		data []byte
	}{
		{dataset.FeaturesFile, features.Bytes()},
		{dataset.LabelsFile, labels.Bytes()},
		{dataset.TrainingFile, training.Bytes()},
		{dataset.ArchiveFile, archive.Bytes()},
	} {
		if err := store.Put(ctx, out.name, out.data); err != nil {
			return fmt.Errorf("store %s: %w", out.name, err)
		}
	}
	return nil
}
