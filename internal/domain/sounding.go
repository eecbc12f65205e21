package domain

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ColumnForecastDate is the join key column in every tabular output.
const ColumnForecastDate = "forecast_date"

// listingHeaderLines is the fixed header every listing starts with.
const listingHeaderLines = 5

// numberRe matches unsigned integer or decimal tokens. A leading minus is
// not part of the token, so -10.1 reads as 10.1; the trained models expect
// magnitudes.
var numberRe = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

var (
	// ErrNoData marks a station/date or observation date with nothing usable.
	ErrNoData = errors.New("no data")

	// ErrMalformedObservation marks an observation payload missing required values.
	ErrMalformedObservation = errors.New("malformed observation")

	// ErrIncompleteFeatures marks a feature row with absent values.
	ErrIncompleteFeatures = errors.New("incomplete feature row")
)

// SoundingLine is one accepted listing row, positional to the catalog fields.
type SoundingLine []float64

// Listing is the parse result of one <pre> block.
type Listing struct {
	Lines     []SoundingLine
	Discarded int // non-blank rows rejected by the arity check
}

// ConsolidatedSounding is one station/date reduced to the standard levels.
// Values follow Catalog.SoundingColumns; nil means absent.
type ConsolidatedSounding struct {
	Station      string
	ForecastDate Date
	SoundingHour string
	Values       []*float64
}

// Complete reports whether every value is present.
func (s ConsolidatedSounding) Complete() bool {
	for _, v := range s.Values {
		if v == nil {
			return false
		}
	}
	return true
}

// ParseListing turns a raw listing into rows. The first five lines are header;
// every later line must carry exactly one numeric token per catalog field or
// it is discarded. Signs are dropped.
func ParseListing(raw string, c *Catalog) Listing {
	lines := strings.Split(raw, "\n")
	if len(lines) <= listingHeaderLines {
		return Listing{}
	}

	arity := len(c.fields)
	var out Listing
	for _, line := range lines[listingHeaderLines:] {
		line = strings.TrimRight(line, "\r")
		tokens := numberRe.FindAllString(line, -1)
		if len(tokens) != arity {
			if strings.TrimSpace(line) != "" {
				out.Discarded++
			}
			continue
		}

		row := make(SoundingLine, arity)
		for i, tok := range tokens {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				row = nil
				break
			}
			row[i] = v
		}
		if row == nil {
			out.Discarded++
			continue
		}
		out.Lines = append(out.Lines, row)
	}
	return out
}

// Consolidate reduces a listing to one value set per standard level, picking
// for each level the line whose pressure is nearest (first line wins ties).
// Levels are matched independently, so two levels may share a line. With no
// lines every value is absent.
func Consolidate(lines []SoundingLine, station string, date Date, hour string, c *Catalog) ConsolidatedSounding {
	rec := ConsolidatedSounding{
		Station:      station,
		ForecastDate: date,
		SoundingHour: hour,
		Values:       make([]*float64, c.Width()),
	}
	if len(lines) == 0 {
		return rec
	}

	nf := len(c.fields)
	for li, level := range c.levels {
		best := nearestLine(lines, c.pressureIndex, float64(level))
		for fi := 0; fi < nf; fi++ {
			v := lines[best][fi]
			rec.Values[li*nf+fi] = &v
		}
	}
	return rec
}

func nearestLine(lines []SoundingLine, pressureIdx int, target float64) int {
	best := 0
	bestDist := math.Abs(lines[0][pressureIdx] - target)
	for i := 1; i < len(lines); i++ {
		if d := math.Abs(lines[i][pressureIdx] - target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
