package domain

// ColumnMonth is the derived calendar-month feature.
const ColumnMonth = "month"

// FeatureRow is one model input keyed by date.
type FeatureRow struct {
	ForecastDate Date
	Values       []*float64
}

// Vector returns the dense input, or false when any value is absent.
func (r FeatureRow) Vector() ([]float64, bool) {
	out := make([]float64, len(r.Values))
	for i, v := range r.Values {
		if v == nil {
			return nil, false
		}
		out[i] = *v
	}
	return out, true
}

// FeatureMatrix is the ordered, named table the model consumes.
type FeatureMatrix struct {
	Columns []string
	Rows    []FeatureRow
}

// DropIncomplete returns a copy without rows that have absent values.
func (m FeatureMatrix) DropIncomplete() FeatureMatrix {
	out := FeatureMatrix{Columns: m.Columns, Rows: make([]FeatureRow, 0, len(m.Rows))}
	for _, r := range m.Rows {
		if _, ok := r.Vector(); ok {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// LabeledRow pairs a feature row with its realised target.
type LabeledRow struct {
	FeatureRow
	MaxTempF float64
}

// FeatureColumns is the model column order: wide sounding columns, the
// observation columns, then month.
func FeatureColumns(c *Catalog) []string {
	wide := c.WideColumns()
	cols := make([]string, 0, len(wide)-1+len(ObservationColumns)+1)
	cols = append(cols, wide[:len(wide)-1]...)
	cols = append(cols, ObservationColumns...)
	return append(cols, ColumnMonth)
}

// Assemble inner-joins wide sounding rows with observation features on date,
// in sounding row order. Dates present on only one side are dropped.
func Assemble(wide []WideFeatureRow, obs []ObservationFeature, c *Catalog) FeatureMatrix {
	byDate := make(map[Date]ObservationFeature, len(obs))
	for _, o := range obs {
		if _, dup := byDate[o.ForecastDate]; !dup {
			byDate[o.ForecastDate] = o
		}
	}

	m := FeatureMatrix{Columns: FeatureColumns(c)}
	for _, w := range wide {
		o, ok := byDate[w.ForecastDate]
		if !ok {
			continue
		}
		values := make([]*float64, 0, len(m.Columns))
		values = append(values, w.Values...)
		for _, v := range o.Values() {
			values = append(values, ptr(v))
		}
		values = append(values, ptr(float64(w.ForecastDate.Month)))
		m.Rows = append(m.Rows, FeatureRow{ForecastDate: w.ForecastDate, Values: values})
	}
	return m
}

// AttachLabels inner-joins feature rows with labels on date.
func AttachLabels(m FeatureMatrix, labels []Label) []LabeledRow {
	byDate := make(map[Date]float64, len(labels))
	for _, l := range labels {
		if _, dup := byDate[l.ForecastDate]; !dup {
			byDate[l.ForecastDate] = l.MaxTempF
		}
	}

	out := make([]LabeledRow, 0, len(m.Rows))
	for _, r := range m.Rows {
		if y, ok := byDate[r.ForecastDate]; ok {
			out = append(out, LabeledRow{FeatureRow: r, MaxTempF: y})
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }
