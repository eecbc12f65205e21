package domain

import "time"

// Event kinds.
const (
	EventPrediction = "prediction"
	EventMaxTemp    = "max_temp"
)

// ForecastEvent announces a stored forecast artifact.
type ForecastEvent struct {
	ID           string    `json:"id"`
	Kind         string    `json:"kind"`
	ForecastDate string    `json:"forecast_date"`
	ValueF       float64   `json:"value_f"`
	Model        string    `json:"model,omitempty"`
	ArtifactKey  string    `json:"artifact_key"`
	ProducedAt   time.Time `json:"produced_at"`
}
