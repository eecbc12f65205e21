package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// Field names one column of a sounding listing.
type Field string

const (
	FieldPressure    Field = "pressure"
	FieldHeight      Field = "height"
	FieldTemp        Field = "temp"
	FieldDewPoint    Field = "dew_point"
	FieldRelHumidity Field = "rel_humidity"
	FieldMixRatio    Field = "mix_ratio"
	FieldDirection   Field = "direction"
	FieldKnots       Field = "knots"
	FieldTheta       Field = "theta"
	FieldThetaE      Field = "theta_e"
	FieldThetaV      Field = "theta_v"
)

// Level is a canonical pressure level in hPa.
type Level int

func (l Level) String() string { return strconv.Itoa(int(l)) }

// Station is a monitored radiosonde site.
type Station struct {
	ID   string // WMO station number, used in queries
	Name string // three-letter identifier, used in column names
	City string
}

// ListingFields is the column order of a TEXT:LIST sounding listing.
var ListingFields = []Field{
	FieldPressure, FieldHeight, FieldTemp, FieldDewPoint, FieldRelHumidity,
	FieldMixRatio, FieldDirection, FieldKnots, FieldTheta, FieldThetaE, FieldThetaV,
}

// StandardLevels are the pressure levels every sounding is reduced to.
var StandardLevels = []Level{1000, 850, 700, 500, 300, 200}

// DefaultStations is the monitored station set, in column order.
var DefaultStations = []Station{
	{ID: "72305", Name: "MHX", City: "Newport, NC"},
	{ID: "72317", Name: "GSO", City: "Greensboro, NC"},
	{ID: "72318", Name: "RNK", City: "Blacksburg, VA"},
	{ID: "72520", Name: "PIT", City: "Pittsburgh, PA"},
	{ID: "72528", Name: "BUF", City: "Buffalo, NY"},
	{ID: "72426", Name: "ILN", City: "Albany, NY"},
	{ID: "72501", Name: "OKX", City: "Upton, NY"},
	{ID: "72403", Name: "IAD", City: "Sterling, VA"},
	{ID: "72402", Name: "WAL", City: "Wallops Island, VA"},
}

// Catalog is the read-only station, field and level configuration for a run.
// All shape-dependent code takes a Catalog so tests can shrink it.
type Catalog struct {
	stations      []Station
	fields        []Field
	levels        []Level
	pressureIndex int
	stationIndex  map[string]int
}

// NewCatalog copies and validates the given tables. Fields must include
// FieldPressure; station names and levels must be unique.
func NewCatalog(stations []Station, fields []Field, levels []Level) (*Catalog, error) {
	if len(stations) == 0 {
		return nil, errors.New("catalog needs at least one station")
	}
	if len(levels) == 0 {
		return nil, errors.New("catalog needs at least one pressure level")
	}

	c := &Catalog{
		stations:      append([]Station(nil), stations...),
		fields:        append([]Field(nil), fields...),
		levels:        append([]Level(nil), levels...),
		pressureIndex: -1,
		stationIndex:  make(map[string]int, len(stations)),
	}

	for i, f := range c.fields {
		if f == FieldPressure {
			c.pressureIndex = i
			break
		}
	}
	if c.pressureIndex < 0 {
		return nil, errors.New("catalog fields must include pressure")
	}

	for i, s := range c.stations {
		if s.Name == "" || s.ID == "" {
			return nil, fmt.Errorf("station %d: id and name are required", i)
		}
		if _, dup := c.stationIndex[s.Name]; dup {
			return nil, fmt.Errorf("duplicate station name %q", s.Name)
		}
		c.stationIndex[s.Name] = i
	}

	seen := make(map[Level]bool, len(c.levels))
	for _, l := range c.levels {
		if seen[l] {
			return nil, fmt.Errorf("duplicate pressure level %d", l)
		}
		seen[l] = true
	}

	return c, nil
}

// DefaultCatalog returns the production catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultStations, ListingFields, StandardLevels)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Stations() []Station { return append([]Station(nil), c.stations...) }
func (c *Catalog) Fields() []Field     { return append([]Field(nil), c.fields...) }
func (c *Catalog) Levels() []Level     { return append([]Level(nil), c.levels...) }

// Width is the number of values in one consolidated station/date record.
func (c *Catalog) Width() int { return len(c.levels) * len(c.fields) }

// WideWidth is the number of sounding values in one wide row.
func (c *Catalog) WideWidth() int { return len(c.stations) * c.Width() }

// StationIndex returns the column block of the named station.
func (c *Catalog) StationIndex(name string) (int, bool) {
	i, ok := c.stationIndex[name]
	return i, ok
}

// SoundingColumns names the values of a ConsolidatedSounding: {field}_{level},
// level-major.
func (c *Catalog) SoundingColumns() []string {
	cols := make([]string, 0, c.Width())
	for _, l := range c.levels {
		for _, f := range c.fields {
			cols = append(cols, fmt.Sprintf("%s_%d", f, l))
		}
	}
	return cols
}

// WideColumns names the values of a WideFeatureRow ({field}_{level}_{station},
// station-major) followed by forecast_date.
func (c *Catalog) WideColumns() []string {
	base := c.SoundingColumns()
	cols := make([]string, 0, c.WideWidth()+1)
	for _, s := range c.stations {
		for _, col := range base {
			cols = append(cols, col+"_"+s.Name)
		}
	}
	return append(cols, ColumnForecastDate)
}
