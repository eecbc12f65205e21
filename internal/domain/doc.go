// Package domain models upper-air soundings and surface observations and the
// reductions that turn them into a fixed-shape feature row per calendar date.
//
// # Data Source
//
// Soundings come from the University of Wyoming sounding archive
// (https://weather.uwyo.edu/cgi-bin/sounding) in its TEXT:LIST format. The page
// is HTML with one <pre> block per listing; month queries interleave an <h2>
// header before each day's listing:
//
//	72305 MHX Newport Observations at 12Z 01 Jan 2020
//
// The last four words are the sounding hour, day, month abbreviation and year.
//
// # Listing Layout
//
// A listing starts with five header lines (blank, rule, column names, units,
// rule) followed by fixed-width rows:
//
//	   PRES   HGHT   TEMP   DWPT   RELH   MIXR   DRCT   SKNT   THTA   THTE   THTV
//	    hPa     m      C      C      %    g/kg    deg   knot     K      K      K
//	 1000.0     99
//	  999.0    111   22.4   18.4     78  13.44    225      6  295.6  334.4  297.9
//
// Column boundaries are not reliably whitespace-delimited and partial rows
// (missing readings) are common, so rows are read by scanning unsigned numeric
// tokens and accepted only when the token count equals the field count. The
// minus sign is not part of a token: a -10.1 C temperature is stored as 10.1,
// which is the convention the pre-trained models were fit on. Retraining
// under signed values would need both a new corpus and new model artifacts.
// See [ParseListing].
//
// # Standard Levels
//
// Each station/date is reduced to one row per canonical level (1000, 850, 700,
// 500, 300, 200 hPa) by nearest pressure, without a distance threshold. See
// [Consolidate].
//
// # Surface Observations
//
// Personal weather station history comes from the weather.com PWS API
// (units=m). The reading nearest 12:00 UTC supplies the surface features; the
// daily summary supplies the label (daily high). Celsius values are truncated
// to whole degrees before conversion to Fahrenheit.
//
// # Missing Data
//
// Absence is never an exception here: lines that fail validation are dropped,
// absent station/date records become nil values, and join gaps are silently
// excluded. Callers choose a [MissingPolicy] per run mode.
package domain
