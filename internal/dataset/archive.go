package dataset

import (
	"fmt"
	"io"

	parquet "github.com/parquet-go/parquet-go"

	"github.com/couchcryptid/sounding-forecast/internal/domain"
)

// LevelRow is one station sounding at one standard level.
type LevelRow struct {
	Station      string   `parquet:"station"`
	ForecastDate string   `parquet:"forecast_date"`
	SoundingHour string   `parquet:"sounding_hour"`
	Level        int32    `parquet:"level"`
	Pressure     *float64 `parquet:"pressure"`
	Height       *float64 `parquet:"height"`
	Temp         *float64 `parquet:"temp"`
	DewPoint     *float64 `parquet:"dew_point"`
	RelHumidity  *float64 `parquet:"rel_humidity"`
	MixRatio     *float64 `parquet:"mix_ratio"`
	Direction    *float64 `parquet:"direction"`
	Knots        *float64 `parquet:"knots"`
	Theta        *float64 `parquet:"theta"`
	ThetaE       *float64 `parquet:"theta_e"`
	ThetaV       *float64 `parquet:"theta_v"`
}

func (r *LevelRow) slot(f domain.Field) **float64 {
	switch f {
	case domain.FieldPressure:
		return &r.Pressure
	case domain.FieldHeight:
		return &r.Height
	case domain.FieldTemp:
		return &r.Temp
	case domain.FieldDewPoint:
		return &r.DewPoint
	case domain.FieldRelHumidity:
		return &r.RelHumidity
	case domain.FieldMixRatio:
		return &r.MixRatio
	case domain.FieldDirection:
		return &r.Direction
	case domain.FieldKnots:
		return &r.Knots
	case domain.FieldTheta:
		return &r.Theta
	case domain.FieldThetaE:
		return &r.ThetaE
	case domain.FieldThetaV:
		return &r.ThetaV
	default:
		return nil
	}
}

// LevelRows flattens consolidated soundings into one row per level.
func LevelRows(records []domain.ConsolidatedSounding, c *domain.Catalog) ([]LevelRow, error) {
	fields := c.Fields()
	levels := c.Levels()

	rows := make([]LevelRow, 0, len(records)*len(levels))
	for _, rec := range records {
		if len(rec.Values) != c.Width() {
			return nil, fmt.Errorf("sounding %s %s has %d values, want %d", rec.Station, rec.ForecastDate, len(rec.Values), c.Width())
		}
		for li, level := range levels {
			row := LevelRow{
				Station:      rec.Station,
				ForecastDate: rec.ForecastDate.String(),
				SoundingHour: rec.SoundingHour,
				Level:        int32(level),
			}
			for fi, f := range fields {
				slot := row.slot(f)
				if slot == nil {
					return nil, fmt.Errorf("no archive column for field %q", f)
				}
				*slot = rec.Values[li*len(fields)+fi]
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// WriteArchive encodes records as parquet.
func WriteArchive(w io.Writer, records []domain.ConsolidatedSounding, c *domain.Catalog) error {
	rows, err := LevelRows(records, c)
	if err != nil {
		return err
	}

	pw := parquet.NewGenericWriter[LevelRow](w)
	if _, err := pw.Write(rows); err != nil {
		pw.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write sounding archive: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close sounding archive: %w", err)
	}
	return nil
}
