package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obsAt(ts string, tempC float64) Observation {
	return Observation{
		StationID:   "KNJATCO14",
		ObsTimeUTC:  ts,
		HumidityAvg: ptr(80),
		Metric: ObservationMetric{
			TempHigh:      ptr(tempC),
			DewptHigh:     ptr(10.6),
			PressureMax:   ptr(1015.2),
			PressureTrend: ptr(-0.3),
			WindspeedAvg:  ptr(4.1),
		},
	}
}

func TestCelsiusToFahrenheit(t *testing.T) {
	tests := []struct {
		c, want float64
	}{
		{0, 32},
		{100, 212},
		{-40, -40},
		{21, 69.8},
		{-7, 19.4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, CelsiusToFahrenheit(tt.c), 1e-9, "%v C", tt.c)
	}
}

func TestMatchObservation_NearestNoon(t *testing.T) {
	d := Date{Year: 2024, Month: 5, Day: 10}
	obs := []Observation{
		obsAt("2024-05-10T11:00:00Z", 15),
		obsAt("2024-05-10T12:00:00Z", 18),
		obsAt("2024-05-10T13:30:00Z", 20),
	}

	feat, err := MatchObservation(d, obs)
	require.NoError(t, err)
	assert.Equal(t, d, feat.ForecastDate)
	assert.InDelta(t, 64.4, feat.TempF, 1e-9)
	assert.InDelta(t, 50.0, feat.DewPointF, 1e-9, "10.6 C truncates to 10")
	assert.Equal(t, 80.0, feat.Humidity)
	assert.Equal(t, 1015.2, feat.Pressure)
	assert.Equal(t, -0.3, feat.PressureTrend)
	assert.Equal(t, 4.1, feat.WindSpeedAvg)
	assert.Len(t, feat.Values(), len(ObservationColumns))
}

func TestMatchObservation_FirstWinsTie(t *testing.T) {
	d := Date{Year: 2024, Month: 5, Day: 10}
	feat, err := MatchObservation(d, []Observation{
		obsAt("2024-05-10T11:30:00Z", 10),
		obsAt("2024-05-10T12:30:00Z", 20),
	})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, feat.TempF, 1e-9)
}

func TestMatchObservation_TruncatesTowardZero(t *testing.T) {
	d := Date{Year: 2024, Month: 1, Day: 10}
	feat, err := MatchObservation(d, []Observation{obsAt("2024-01-10T12:00:00Z", -3.8)})
	require.NoError(t, err)
	assert.InDelta(t, 26.6, feat.TempF, 1e-9, "-3.8 C truncates to -3")
}

func TestMatchObservation_Errors(t *testing.T) {
	d := Date{Year: 2024, Month: 5, Day: 10}

	_, err := MatchObservation(d, nil)
	require.ErrorIs(t, err, ErrNoData)

	_, err = MatchObservation(d, []Observation{obsAt("yesterday", 10)})
	require.ErrorIs(t, err, ErrMalformedObservation)

	missing := obsAt("2024-05-10T12:00:00Z", 10)
	missing.HumidityAvg = nil
	_, err = MatchObservation(d, []Observation{missing})
	require.ErrorIs(t, err, ErrMalformedObservation)
}

func TestMatchObservation_MissingFieldOnlyMattersWhenChosen(t *testing.T) {
	d := Date{Year: 2024, Month: 5, Day: 10}
	far := obsAt("2024-05-10T02:00:00Z", 10)
	far.Metric.PressureMax = nil

	_, err := MatchObservation(d, []Observation{far, obsAt("2024-05-10T12:05:00Z", 10)})
	assert.NoError(t, err)
}

func TestDailyMaxLabel(t *testing.T) {
	d := Date{Year: 2024, Month: 7, Day: 4}

	label, err := DailyMaxLabel(d, []Observation{obsAt("2024-07-04T04:00:00Z", 33.9), obsAt("2024-07-05T04:00:00Z", 20)})
	require.NoError(t, err)
	assert.Equal(t, d, label.ForecastDate)
	assert.InDelta(t, 91.4, label.MaxTempF, 1e-9)

	_, err = DailyMaxLabel(d, nil)
	require.ErrorIs(t, err, ErrNoData)

	bad := obsAt("2024-07-04T04:00:00Z", 0)
	bad.Metric.TempHigh = nil
	_, err = DailyMaxLabel(d, []Observation{bad})
	require.ErrorIs(t, err, ErrMalformedObservation)
}
