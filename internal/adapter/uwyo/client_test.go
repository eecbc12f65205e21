package uwyo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sounding-forecast/internal/adapter/retrieval"
	"github.com/couchcryptid/sounding-forecast/internal/domain"
	"github.com/couchcryptid/sounding-forecast/internal/observability"
)

const listingBody = `
-----------------------------------------------------------------------------
   PRES   HGHT   TEMP   DWPT   RELH   MIXR   DRCT   SKNT   THTA   THTE   THTV
    hPa     m      C      C      %    g/kg    deg   knot     K      K      K
-----------------------------------------------------------------------------
 1009.0     88   21.2   17.2     78  12.33    190      6  293.3  328.7  295.5
  850.0   1500   14.4    8.4     67   8.12    230     18  301.5  326.3  303.0
  700.0   3145    4.6   -5.4     48   3.72    250     28  310.6  322.8  311.3
  500.0   5820  -11.1  -31.1     17   0.49    260     42  320.1  321.9  320.2
  300.0   9490  -39.3  -55.3     16   0.06    265     65  337.0  337.3  337.0
  200.0  12110  -55.1  -70.1     14   0.01    270     80  355.0  355.1  355.0
`

const indicesBody = `
                         Station identifier: IAD
                             Station number: 72403
                           Observation time: 240601/1200
                           Showalter index: 3.21
`

func page(sections ...string) string {
	return "<HTML><TITLE>University of Wyoming - Radiosonde Data</TITLE><BODY BGCOLOR=\"white\">" +
		strings.Join(sections, "") + "</BODY></HTML>"
}

func section(header, listing string) string {
	s := "<H2>" + header + "</H2>\n"
	if listing != "" {
		s += "<PRE>" + listing + "</PRE>"
	}
	return s + "<H3>Station information and sounding indices</H3><PRE>" + indicesBody + "</PRE>\n"
}

type stubFetcher struct {
	pages map[string]string
	err   error
	urls  []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return "", f.err
	}
	for k, v := range f.pages {
		if strings.Contains(url, k) {
			return v, nil
		}
	}
	return "<HTML><BODY>Can't get IAD Observations at 12Z.</BODY></HTML>", nil
}

var iad = domain.Station{ID: "72403", Name: "IAD", City: "Sterling, VA"}

func newTestClient(f Fetcher) (*Client, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(f, "http://uwyo.test/cgi-bin/sounding", "12", domain.DefaultCatalog(), m, logger), m
}

func TestDayURL(t *testing.T) {
	c, _ := newTestClient(&stubFetcher{})
	got := c.DayURL(iad, domain.Date{Year: 2024, Month: time.March, Day: 5})
	assert.Equal(t,
		"http://uwyo.test/cgi-bin/sounding?region=nacon&TYPE=TEXT%3ALIST&YEAR=2024&MONTH=3&FROM=0512&TO=0512&STNM=72403",
		got)
}

func TestMonthURL(t *testing.T) {
	c, _ := newTestClient(&stubFetcher{})
	got := c.MonthURL(iad, domain.TrainingWindow{Year: 2020, Month: time.February, LastDay: 29})
	assert.Equal(t,
		"http://uwyo.test/cgi-bin/sounding?region=nacon&TYPE=TEXT%3ALIST&YEAR=2020&MONTH=02&FROM=0112&TO=2912&STNM=72403",
		got)
}

func TestFetchDay(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"STNM=72403": page(section("72403 IAD Sterling Observations at 12Z 01 Jun 2024", listingBody)),
	}}
	c, m := newTestClient(f)
	date := domain.Date{Year: 2024, Month: time.June, Day: 1}

	rec, err := c.FetchDay(context.Background(), iad, date)
	require.NoError(t, err)

	assert.Equal(t, "IAD", rec.Station)
	assert.Equal(t, date, rec.ForecastDate)
	assert.Equal(t, "12", rec.SoundingHour)
	assert.True(t, rec.Complete())
	assert.Equal(t, 1009.0, *rec.Values[0], "pressure_1000 picks the 1009 line")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ListingsParsed), "data listing plus indices block")
}

func TestFetchDay_NoListing(t *testing.T) {
	c, _ := newTestClient(&stubFetcher{})
	_, err := c.FetchDay(context.Background(), iad, domain.Date{Year: 2024, Month: time.June, Day: 1})
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestFetchDay_OnlyEmptyListings(t *testing.T) {
	f := &stubFetcher{pages: map[string]string{
		"STNM=72403": page(section("72403 IAD Sterling Observations at 12Z 01 Jun 2024", "")),
	}}
	c, _ := newTestClient(f)
	_, err := c.FetchDay(context.Background(), iad, domain.Date{Year: 2024, Month: time.June, Day: 1})
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestFetchDay_TransportErrorPassesThrough(t *testing.T) {
	want := &retrieval.TransportError{URL: "u", Status: 503}
	c, _ := newTestClient(&stubFetcher{err: want})
	_, err := c.FetchDay(context.Background(), iad, domain.Date{Year: 2024, Month: time.June, Day: 1})

	var te *retrieval.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 503, te.Status)
}

func TestFetchMonth(t *testing.T) {
	body := page(
		section("72403 IAD Sterling Observations at 12Z 01 Jun 2024", listingBody),
		section("72403 IAD Sterling Observations at 00Z 02 Jun 2024", listingBody),
		section("72403 IAD Sterling Observations at 12Z 02 Jun 2024", ""),
		section("72403 IAD Sterling Observations at 12Z 3 Jun 2024", listingBody),
		section("garbled header", listingBody),
	)
	c, _ := newTestClient(&stubFetcher{pages: map[string]string{"MONTH=06": body}})

	recs, err := c.FetchMonth(context.Background(), iad, domain.TrainingWindow{Year: 2024, Month: time.June, LastDay: 30})
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, domain.Date{Year: 2024, Month: time.June, Day: 1}, recs[0].ForecastDate)
	assert.True(t, recs[0].Complete())

	assert.Equal(t, domain.Date{Year: 2024, Month: time.June, Day: 2}, recs[1].ForecastDate)
	for _, v := range recs[1].Values {
		assert.Nil(t, v, "section without a listing is all absent")
	}

	assert.Equal(t, domain.Date{Year: 2024, Month: time.June, Day: 3}, recs[2].ForecastDate)
	assert.True(t, recs[2].Complete())
}

func TestFetchMonth_EmptyPage(t *testing.T) {
	c, _ := newTestClient(&stubFetcher{})
	recs, err := c.FetchMonth(context.Background(), iad, domain.TrainingWindow{Year: 2024, Month: time.June, LastDay: 30})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestFetchDay_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TEXT:LIST", r.URL.Query().Get("TYPE"))
		assert.Equal(t, "0112", r.URL.Query().Get("FROM"))
		_, _ = fmt.Fprint(w, page(section("72403 IAD Sterling Observations at 12Z 01 Jun 2024", listingBody)))
	}))
	defer srv.Close()

	m := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := retrieval.NewSession(retrieval.DefaultOptions("uwyo"), m, logger)
	c := NewClient(session, srv.URL, "12", domain.DefaultCatalog(), m, logger)

	rec, err := c.FetchDay(context.Background(), iad, domain.Date{Year: 2024, Month: time.June, Day: 1})
	require.NoError(t, err)
	assert.True(t, rec.Complete())
}

func TestParseHeader(t *testing.T) {
	hour, ts, err := parseHeader("  72403 IAD Sterling (Wash/Dulles) Observations at 00Z 30 Nov 2021 \n")
	require.NoError(t, err)
	assert.Equal(t, "00", hour)
	assert.Equal(t, time.Date(2021, 11, 30, 0, 0, 0, 0, time.UTC), ts)

	_, _, err = parseHeader("Observations at 12Z 30 Foo 2021")
	assert.Error(t, err)
	_, _, err = parseHeader("")
	assert.Error(t, err)
}

func TestExtractBlocks(t *testing.T) {
	blocks := extractBlocks(`<h2>A <i>b</i></h2><p>skip</p><pre>x &lt; y</pre><pre>`)
	require.Len(t, blocks, 3)
	assert.Equal(t, block{kind: blockHeader, text: "A b"}, blocks[0])
	assert.Equal(t, block{kind: blockListing, text: "x < y"}, blocks[1])
	assert.Equal(t, blockListing, blocks[2].kind)
}
