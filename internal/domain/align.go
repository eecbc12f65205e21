package domain

import (
	"fmt"
	"strings"
)

// MissingPolicy decides what a run does when a station returns no data.
type MissingPolicy int

const (
	// AbortOnAnyMissing discards the whole date when any station is missing.
	// Used by the daily forecast.
	AbortOnAnyMissing MissingPolicy = iota + 1

	// NullFillThenDropIncomplete null-fills missing stations at alignment and
	// drops incomplete rows afterwards. Used by the training backfill.
	NullFillThenDropIncomplete
)

func (p MissingPolicy) String() string {
	switch p {
	case AbortOnAnyMissing:
		return "abort-on-any-missing"
	case NullFillThenDropIncomplete:
		return "null-fill-then-drop-incomplete"
	default:
		return "unknown"
	}
}

// WideFeatureRow is one forecast date with every station's values side by side.
// Values follow Catalog.WideColumns without the trailing forecast_date.
type WideFeatureRow struct {
	ForecastDate Date
	Values       []*float64
}

// Complete reports whether every value is present.
func (r WideFeatureRow) Complete() bool {
	for _, v := range r.Values {
		if v == nil {
			return false
		}
	}
	return true
}

type stationDate struct {
	station string
	date    Date
}

// Align pivots long station/date records into one row per distinct date, in
// order of first appearance. Every catalog station gets its column block; a
// station with no record for a date stays nil. Records for stations outside
// the catalog are ignored and the first record for a station/date wins.
func Align(records []ConsolidatedSounding, c *Catalog) []WideFeatureRow {
	width := c.Width()
	var rows []WideFeatureRow
	rowOf := make(map[Date]int)
	filled := make(map[stationDate]bool, len(records))

	for _, r := range records {
		ri, ok := rowOf[r.ForecastDate]
		if !ok {
			ri = len(rows)
			rowOf[r.ForecastDate] = ri
			rows = append(rows, WideFeatureRow{ForecastDate: r.ForecastDate, Values: make([]*float64, c.WideWidth())})
		}

		si, ok := c.StationIndex(r.Station)
		k := stationDate{station: r.Station, date: r.ForecastDate}
		if !ok || filled[k] {
			continue
		}
		filled[k] = true
		copy(rows[ri].Values[si*width:(si+1)*width], r.Values)
	}
	return rows
}

// DropIncomplete keeps only rows without absent values.
func DropIncomplete(rows []WideFeatureRow) []WideFeatureRow {
	out := make([]WideFeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.Complete() {
			out = append(out, r)
		}
	}
	return out
}

// Align pivots records with Align and then applies the policy: abort fails
// on the first incomplete row, naming the stations that left gaps; null-fill
// drops incomplete rows.
func (p MissingPolicy) Align(records []ConsolidatedSounding, c *Catalog) ([]WideFeatureRow, error) {
	rows := Align(records, c)
	switch p {
	case AbortOnAnyMissing:
		for _, r := range rows {
			if !r.Complete() {
				return nil, fmt.Errorf("%s missing %s: %w", r.ForecastDate, strings.Join(c.missingStations(r), ","), ErrIncompleteFeatures)
			}
		}
		return rows, nil
	case NullFillThenDropIncomplete:
		return DropIncomplete(rows), nil
	default:
		return nil, fmt.Errorf("unknown missing-data policy %d", int(p))
	}
}

// missingStations names the stations with an absent value in r.
func (c *Catalog) missingStations(r WideFeatureRow) []string {
	width := c.Width()
	var names []string
	for si, s := range c.stations {
		for _, v := range r.Values[si*width : (si+1)*width] {
			if v == nil {
				names = append(names, s.Name)
				break
			}
		}
	}
	return names
}
