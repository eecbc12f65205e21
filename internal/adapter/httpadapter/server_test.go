package httpadapter_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sounding-forecast/internal/adapter/httpadapter"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func serve(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, slog.Default())
	assert.Equal(t, http.StatusOK, serve(srv, "/healthz").Code)
}

func TestReadyzReflectsChecks(t *testing.T) {
	ready := httpadapter.NewServer(":0", httpadapter.Checks{
		{Name: "scheduler", Check: &mockReadiness{}},
		{Name: "history", Check: &mockReadiness{}},
	}, slog.Default())
	assert.Equal(t, http.StatusOK, serve(ready, "/readyz").Code)

	notReady := httpadapter.NewServer(":0", httpadapter.Checks{
		{Name: "scheduler", Check: &mockReadiness{err: errors.New("not started")}},
	}, slog.Default())
	assert.Equal(t, http.StatusServiceUnavailable, serve(notReady, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockReadiness{}, slog.Default())
	rec := serve(srv, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestChecks_NamesFailingCheck(t *testing.T) {
	err := httpadapter.Checks{
		{Name: "redis", Check: &mockReadiness{err: errors.New("connection refused")}},
		{Name: "model", Check: nil},
	}.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")

	assert.NoError(t, httpadapter.Checks{}.CheckReadiness(context.Background()))
}

func TestChecks_ReportsFirstFailureInOrder(t *testing.T) {
	checks := httpadapter.Checks{
		{Name: "scheduler", Check: &mockReadiness{}},
		{Name: "history", Check: &mockReadiness{err: errors.New("pool closed")}},
		{Name: "redis", Check: &mockReadiness{err: errors.New("connection refused")}},
	}

	for range 50 {
		err := checks.CheckReadiness(context.Background())
		require.Error(t, err)
		assert.Equal(t, "history: pool closed", err.Error())
	}
}
