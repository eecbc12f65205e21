package domain

import (
	"fmt"
	"math"
	"time"
)

// ReferenceHour is the UTC hour surface observations are matched to.
const ReferenceHour = 12

// ObservationColumns names the emitted ObservationFeature values, in order.
var ObservationColumns = []string{
	"temp_f_12z", "dew_point_f_12z", "humidity_12z", "pressure_12z", "pressure_trend_12z",
}

// Observation is one PWS history entry (hourly or daily summary).
type Observation struct {
	StationID   string            `json:"stationID"`
	ObsTimeUTC  string            `json:"obsTimeUtc"`
	HumidityAvg *float64          `json:"humidityAvg"`
	Metric      ObservationMetric `json:"metric"`
}

// ObservationMetric holds the metric-unit readings of an Observation.
type ObservationMetric struct {
	TempHigh      *float64 `json:"tempHigh"`
	DewptHigh     *float64 `json:"dewptHigh"`
	PressureMax   *float64 `json:"pressureMax"`
	PressureTrend *float64 `json:"pressureTrend"`
	WindspeedAvg  *float64 `json:"windspeedAvg"`
}

// ObservationFeature is the surface reading nearest 12Z for one date.
type ObservationFeature struct {
	ForecastDate  Date
	TempF         float64
	DewPointF     float64
	Humidity      float64
	Pressure      float64
	PressureTrend float64
	WindSpeedAvg  float64 // not part of the feature vector
}

// Values returns the emitted values in ObservationColumns order.
func (o ObservationFeature) Values() []float64 {
	return []float64{o.TempF, o.DewPointF, o.Humidity, o.Pressure, o.PressureTrend}
}

// Label is the realised daily high used as the training target.
type Label struct {
	ForecastDate Date
	MaxTempF     float64
}

// CelsiusToFahrenheit converts and rounds to one decimal place.
func CelsiusToFahrenheit(c float64) float64 {
	return math.Round((c*9/5+32)*10) / 10
}

// MatchObservation picks the reading closest to 12:00 UTC on date (first
// reading wins ties) and converts it to features.
func MatchObservation(date Date, obs []Observation) (ObservationFeature, error) {
	if len(obs) == 0 {
		return ObservationFeature{}, fmt.Errorf("observations for %s: %w", date, ErrNoData)
	}

	target := date.At(ReferenceHour)
	best := -1
	var bestDiff time.Duration
	for i, o := range obs {
		ts, err := time.Parse(time.RFC3339, o.ObsTimeUTC)
		if err != nil {
			return ObservationFeature{}, fmt.Errorf("observation %d time %q: %w", i, o.ObsTimeUTC, ErrMalformedObservation)
		}
		diff := ts.Sub(target).Abs()
		if best < 0 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}

	o := obs[best]
	m := o.Metric
	if m.TempHigh == nil || m.DewptHigh == nil || m.PressureMax == nil || m.PressureTrend == nil || o.HumidityAvg == nil {
		return ObservationFeature{}, fmt.Errorf("observation at %s: %w", o.ObsTimeUTC, ErrMalformedObservation)
	}

	feat := ObservationFeature{
		ForecastDate:  date,
		TempF:         CelsiusToFahrenheit(math.Trunc(*m.TempHigh)),
		DewPointF:     CelsiusToFahrenheit(math.Trunc(*m.DewptHigh)),
		Humidity:      *o.HumidityAvg,
		Pressure:      *m.PressureMax,
		PressureTrend: *m.PressureTrend,
	}
	if m.WindspeedAvg != nil {
		feat.WindSpeedAvg = *m.WindspeedAvg
	}
	return feat, nil
}

// DailyMaxLabel builds a label from a daily summary; the first entry's high is used.
func DailyMaxLabel(date Date, obs []Observation) (Label, error) {
	if len(obs) == 0 {
		return Label{}, fmt.Errorf("daily summary for %s: %w", date, ErrNoData)
	}
	high := obs[0].Metric.TempHigh
	if high == nil {
		return Label{}, fmt.Errorf("daily summary for %s: %w", date, ErrMalformedObservation)
	}
	return Label{ForecastDate: date, MaxTempF: CelsiusToFahrenheit(math.Trunc(*high))}, nil
}
