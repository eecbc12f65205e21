// Package dataset encodes the training corpus: wide feature and label tables
// as CSV and the per-level sounding archive as parquet.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/sounding-forecast/internal/domain"
)

// Output file names.
const (
	FeaturesFile = "features.csv"
	LabelsFile   = "labels.csv"
	TrainingFile = "training.csv"
	ArchiveFile  = "soundings.parquet"
)

// ColumnMaxTemp is the label column.
const ColumnMaxTemp = "max_temp_f"

// WriteFeatures writes forecast_date followed by the matrix columns. Absent
// values are written as empty cells.
func WriteFeatures(w io.Writer, m domain.FeatureMatrix) error {
	cw := csv.NewWriter(w)

	header := append([]string{domain.ColumnForecastDate}, m.Columns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write features header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range m.Rows {
		if len(row.Values) != len(m.Columns) {
			return fmt.Errorf("features row %s has %d values, want %d", row.ForecastDate, len(row.Values), len(m.Columns))
		}
		record[0] = row.ForecastDate.String()
		for i, v := range row.Values {
			record[i+1] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write features row %s: %w", row.ForecastDate, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteLabels writes forecast_date,max_temp_f rows.
func WriteLabels(w io.Writer, labels []domain.Label) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{domain.ColumnForecastDate, ColumnMaxTemp}); err != nil {
		return fmt.Errorf("write labels header: %w", err)
	}
	for _, l := range labels {
		v := l.MaxTempF
		if err := cw.Write([]string{l.ForecastDate.String(), formatValue(&v)}); err != nil {
			return fmt.Errorf("write label %s: %w", l.ForecastDate, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTraining writes forecast_date, the feature columns and max_temp_f,
// one row per labeled date. Rows must be complete.
func WriteTraining(w io.Writer, columns []string, rows []domain.LabeledRow) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(columns)+2)
	header = append(header, domain.ColumnForecastDate)
	header = append(header, columns...)
	header = append(header, ColumnMaxTemp)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write training header: %w", err)
	}

	record := make([]string, len(header))
	for _, row := range rows {
		x, ok := row.Vector()
		if !ok || len(x) != len(columns) {
			return fmt.Errorf("training row %s: %w", row.ForecastDate, domain.ErrIncompleteFeatures)
		}
		record[0] = row.ForecastDate.String()
		for i := range x {
			record[i+1] = formatValue(&x[i])
		}
		y := row.MaxTempF
		record[len(record)-1] = formatValue(&y)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write training row %s: %w", row.ForecastDate, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
