package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Scaler standardises inputs as (x - mean) / scale.
type Scaler struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

func (s *Scaler) validate() error {
	n := len(s.FeatureNames)
	if n == 0 {
		return fmt.Errorf("scaler has no feature names")
	}
	if len(s.Mean) != n || len(s.Scale) != n {
		return fmt.Errorf("scaler shape mismatch: %d names, %d means, %d scales", n, len(s.Mean), len(s.Scale))
	}
	for i, v := range s.Scale {
		if v == 0 {
			s.Scale[i] = 1
		}
	}
	return nil
}

// CheckColumns reports column drift between the trained and supplied order.
func (s *Scaler) CheckColumns(columns []string) error {
	if len(columns) != len(s.FeatureNames) {
		return fmt.Errorf("%w: expected %d columns, got %d", ErrColumnDrift, len(s.FeatureNames), len(columns))
	}
	for i, name := range s.FeatureNames {
		if columns[i] != name {
			return fmt.Errorf("%w: column %d is %q, expected %q", ErrColumnDrift, i, columns[i], name)
		}
	}
	return nil
}

// Transform returns a standardised copy of x.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d values, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	floats.SubTo(out, x, s.Mean)
	floats.Div(out, s.Scale)
	return out, nil
}
