// Package model loads exported scaler and regressor artifacts and evaluates
// them against assembled feature rows.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrColumnDrift means the supplied feature columns differ from the ones the
// model was trained on.
var ErrColumnDrift = errors.New("feature column drift")

// ScalerFile is the scaler artifact name inside the model directory.
const ScalerFile = "scaler.json"

// Model couples a scaler with a regressor and an output multiplier.
type Model struct {
	name   string
	scaler *Scaler
	reg    Regressor
	factor float64
}

// New assembles a model from parts.
func New(name string, scaler *Scaler, reg Regressor, factor float64) (*Model, error) {
	if err := scaler.validate(); err != nil {
		return nil, err
	}
	if factor == 0 {
		factor = 1
	}
	return &Model{name: name, scaler: scaler, reg: reg, factor: factor}, nil
}

// Load reads scaler.json and <name>.json from dir.
func Load(dir, name string, factor float64) (*Model, error) {
	var scaler Scaler
	if err := readJSON(filepath.Join(dir, ScalerFile), &scaler); err != nil {
		return nil, err
	}
	if err := scaler.validate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", ScalerFile, err)
	}

	reg, err := loadRegressor(filepath.Join(dir, name+".json"), len(scaler.FeatureNames))
	if err != nil {
		return nil, err
	}
	return New(name, &scaler, reg, factor)
}

type envelope struct {
	Kind string `json:"kind"`
}

func loadRegressor(path string, width int) (Regressor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}

	switch env.Kind {
	case "linear":
		var l Linear
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("decode linear model: %w", err)
		}
		if len(l.Coefficients) != width {
			return nil, fmt.Errorf("linear model has %d coefficients, scaler has %d features", len(l.Coefficients), width)
		}
		return &l, nil
	case "forest":
		var f Forest
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decode forest model: %w", err)
		}
		for i := range f.Trees {
			if err := f.Trees[i].validate(width); err != nil {
				return nil, fmt.Errorf("forest tree %d: %w", i, err)
			}
		}
		f.width = width
		return &f, nil
	default:
		return nil, fmt.Errorf("model %s: unknown kind %q", path, env.Kind)
	}
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Name is the artifact name the model was loaded from.
func (m *Model) Name() string { return m.name }

// Columns returns the trained feature order.
func (m *Model) Columns() []string { return append([]string(nil), m.scaler.FeatureNames...) }

// Predict validates columns, standardises x, and returns the scaled prediction.
func (m *Model) Predict(columns []string, x []float64) (float64, error) {
	if err := m.scaler.CheckColumns(columns); err != nil {
		return 0, err
	}
	scaled, err := m.scaler.Transform(x)
	if err != nil {
		return 0, err
	}
	y, err := m.reg.Predict(scaled)
	if err != nil {
		return 0, fmt.Errorf("predict with %s: %w", m.name, err)
	}
	return y * m.factor, nil
}
