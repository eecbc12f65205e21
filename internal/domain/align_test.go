package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullRecord(c *Catalog, station string, date Date, base float64) ConsolidatedSounding {
	values := make([]*float64, c.Width())
	for i := range values {
		v := base + float64(i)
		values[i] = &v
	}
	return ConsolidatedSounding{Station: station, ForecastDate: date, SoundingHour: "12", Values: values}
}

func TestAlign_ColumnCountIsStatic(t *testing.T) {
	c := DefaultCatalog()
	d := Date{Year: 2024, Month: 3, Day: 2}

	rows := Align([]ConsolidatedSounding{fullRecord(c, "MHX", d, 0)}, c)

	require.Len(t, rows, 1)
	assert.Len(t, rows[0].Values, len(ListingFields)*len(StandardLevels)*len(DefaultStations))
	assert.Len(t, c.WideColumns(), len(rows[0].Values)+1)
}

func TestAlign_MissingStationIsNull(t *testing.T) {
	c := DefaultCatalog()
	d := Date{Year: 2024, Month: 3, Day: 2}

	var records []ConsolidatedSounding
	for _, s := range c.Stations() {
		if s.Name == "BUF" {
			continue
		}
		records = append(records, fullRecord(c, s.Name, d, 1))
	}

	rows := Align(records, c)
	require.Len(t, rows, 1)

	cols := c.WideColumns()
	for i, v := range rows[0].Values {
		if strings.HasSuffix(cols[i], "_BUF") {
			assert.Nil(t, v, cols[i])
		} else {
			assert.NotNil(t, v, cols[i])
		}
	}
	assert.False(t, rows[0].Complete())
}

func TestAlign_CopiesUnderStationBlock(t *testing.T) {
	c := testCatalog(t, "AAA", "BBB")
	d := Date{Year: 2024, Month: 3, Day: 2}

	rows := Align([]ConsolidatedSounding{fullRecord(c, "BBB", d, 100)}, c)
	require.Len(t, rows, 1)

	w := c.Width()
	assert.Nil(t, rows[0].Values[0])
	require.NotNil(t, rows[0].Values[w])
	assert.Equal(t, 100.0, *rows[0].Values[w])
	assert.Equal(t, 100.0+float64(w-1), *rows[0].Values[2*w-1])
}

func TestAlign_DatesInFirstAppearanceOrder(t *testing.T) {
	c := testCatalog(t, "AAA", "BBB")
	d1 := Date{Year: 2024, Month: 3, Day: 2}
	d2 := Date{Year: 2024, Month: 3, Day: 1}

	rows := Align([]ConsolidatedSounding{
		fullRecord(c, "AAA", d1, 0),
		fullRecord(c, "AAA", d2, 0),
		fullRecord(c, "BBB", d1, 0),
	}, c)

	require.Len(t, rows, 2)
	assert.Equal(t, d1, rows[0].ForecastDate)
	assert.Equal(t, d2, rows[1].ForecastDate)
	assert.True(t, rows[0].Complete())
	assert.False(t, rows[1].Complete())
}

func TestAlign_FirstDuplicateWinsAndUnknownIgnored(t *testing.T) {
	c := testCatalog(t, "AAA")
	d := Date{Year: 2024, Month: 3, Day: 2}

	rows := Align([]ConsolidatedSounding{
		fullRecord(c, "AAA", d, 1),
		fullRecord(c, "AAA", d, 50),
		fullRecord(c, "ZZZ", d, 9),
	}, c)

	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, *rows[0].Values[0])
}

func TestDropIncomplete(t *testing.T) {
	c := testCatalog(t, "AAA", "BBB")
	d1 := Date{Year: 2024, Month: 3, Day: 1}
	d2 := Date{Year: 2024, Month: 3, Day: 2}

	rows := Align([]ConsolidatedSounding{
		fullRecord(c, "AAA", d1, 0),
		fullRecord(c, "BBB", d1, 0),
		fullRecord(c, "AAA", d2, 0),
	}, c)

	kept := DropIncomplete(rows)
	require.Len(t, kept, 1)
	assert.Equal(t, d1, kept[0].ForecastDate)
}

func TestMissingPolicy_String(t *testing.T) {
	assert.Equal(t, "abort-on-any-missing", AbortOnAnyMissing.String())
	assert.Equal(t, "null-fill-then-drop-incomplete", NullFillThenDropIncomplete.String())
	assert.Equal(t, "unknown", MissingPolicy(0).String())
}

func TestMissingPolicy_Align(t *testing.T) {
	c := testCatalog(t, "AAA", "BBB", "CCC")
	d1 := Date{Year: 2024, Month: 3, Day: 1}
	d2 := Date{Year: 2024, Month: 3, Day: 2}
	records := []ConsolidatedSounding{
		fullRecord(c, "AAA", d1, 0),
		fullRecord(c, "BBB", d1, 0),
		fullRecord(c, "CCC", d1, 0),
		fullRecord(c, "BBB", d2, 0),
	}

	kept, err := NullFillThenDropIncomplete.Align(records, c)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, d1, kept[0].ForecastDate)

	_, err = AbortOnAnyMissing.Align(records, c)
	require.ErrorIs(t, err, ErrIncompleteFeatures)
	assert.Contains(t, err.Error(), "2024-03-02 missing AAA,CCC")

	rows, err := AbortOnAnyMissing.Align(records[:3], c)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Complete())

	_, err = MissingPolicy(0).Align(records, c)
	assert.ErrorContains(t, err, "unknown missing-data policy")
}

func TestAlign_PartialRecordLeavesGaps(t *testing.T) {
	c := testCatalog(t, "AAA")
	d := Date{Year: 2024, Month: 3, Day: 1}
	rec := fullRecord(c, "AAA", d, 0)
	rec.Values[0] = nil

	_, err := AbortOnAnyMissing.Align([]ConsolidatedSounding{rec}, c)
	require.ErrorIs(t, err, ErrIncompleteFeatures)
	assert.Contains(t, err.Error(), "missing AAA")
}
