package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sounding-forecast/internal/domain"
	"github.com/couchcryptid/sounding-forecast/internal/observability"
)

// --- mocks ---

type mockDaySource struct {
	values map[string][]*float64 // by station name
	err    map[string]error
	calls  []string
}

func (m *mockDaySource) FetchDay(_ context.Context, s domain.Station, date domain.Date) (domain.ConsolidatedSounding, error) {
	m.calls = append(m.calls, s.Name)
	if err := m.err[s.Name]; err != nil {
		return domain.ConsolidatedSounding{}, err
	}
	return domain.ConsolidatedSounding{Station: s.Name, ForecastDate: date, SoundingHour: "12", Values: m.values[s.Name]}, nil
}

type mockNoonSource struct {
	mu      sync.Mutex
	missing map[domain.Date]bool
	err     error
	calls   int
}

func (m *mockNoonSource) NoonObservation(_ context.Context, _ string, date domain.Date) (domain.ObservationFeature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return domain.ObservationFeature{}, m.err
	}
	if m.missing[date] {
		return domain.ObservationFeature{}, domain.ErrNoData
	}
	return domain.ObservationFeature{
		ForecastDate:  date,
		TempF:         68,
		DewPointF:     60,
		Humidity:      75,
		Pressure:      1015,
		PressureTrend: 0.5,
	}, nil
}

type mockPredictor struct {
	value   float64
	err     error
	columns []string
	x       []float64
}

func (m *mockPredictor) Name() string { return "linear_regression" }

func (m *mockPredictor) Predict(columns []string, x []float64) (float64, error) {
	m.columns, m.x = columns, x
	return m.value, m.err
}

type mockHistory struct {
	value float64
	err   error
	days  []domain.Date
}

func (m *mockHistory) MaxTempF(_ context.Context, day domain.Date) (float64, error) {
	m.days = append(m.days, day)
	return m.value, m.err
}

type memStore struct {
	objects map[string][]byte
	err     error
}

func newMemStore() *memStore { return &memStore{objects: make(map[string][]byte)} }

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

type mockPublisher struct {
	events []domain.ForecastEvent
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, events ...domain.ForecastEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

var errUpstream = errors.New("upstream unavailable")

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

// testCatalog has two stations, two fields and one level: four sounding
// values per date plus the five observation values and month.
func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()
	c, err := domain.NewCatalog(
		[]domain.Station{{ID: "72403", Name: "IAD"}, {ID: "72501", Name: "OKX"}},
		[]domain.Field{domain.FieldPressure, domain.FieldTemp},
		[]domain.Level{850},
	)
	require.NoError(t, err)
	return c
}

func vals(vs ...float64) []*float64 {
	out := make([]*float64, len(vs))
	for i := range vs {
		out[i] = &vs[i]
	}
	return out
}

func date(y int, m time.Month, d int) domain.Date {
	return domain.Date{Year: y, Month: m, Day: d}
}
