// Package uwyo retrieves text soundings from the University of Wyoming
// upper-air archive and reduces them to the standard pressure levels.
package uwyo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/sounding-forecast/internal/domain"
	"github.com/couchcryptid/sounding-forecast/internal/observability"
)

// DefaultBaseURL is the public sounding CGI endpoint.
const DefaultBaseURL = "https://weather.uwyo.edu/cgi-bin/sounding"

// Fetcher retrieves the body at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Client fetches and consolidates station soundings.
type Client struct {
	fetcher Fetcher
	baseURL string
	hour    string
	catalog *domain.Catalog
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a sounding client for the given sounding hour ("00" or "12").
func NewClient(fetcher Fetcher, baseURL, hour string, catalog *domain.Catalog, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		fetcher: fetcher,
		baseURL: baseURL,
		hour:    hour,
		catalog: catalog,
		metrics: metrics,
		logger:  logger,
	}
}

// DayURL builds the single-sounding query. MONTH is unpadded, unlike MonthURL.
func (c *Client) DayURL(station domain.Station, date domain.Date) string {
	slot := fmt.Sprintf("%02d%s", date.Day, c.hour)
	return fmt.Sprintf("%s?region=nacon&TYPE=TEXT%%3ALIST&YEAR=%d&MONTH=%d&FROM=%s&TO=%s&STNM=%s",
		c.baseURL, date.Year, int(date.Month), slot, slot, station.ID)
}

// MonthURL builds the whole-month query.
func (c *Client) MonthURL(station domain.Station, w domain.TrainingWindow) string {
	return fmt.Sprintf("%s?region=nacon&TYPE=TEXT%%3ALIST&YEAR=%d&MONTH=%02d&FROM=%s&TO=%s&STNM=%s",
		c.baseURL, w.Year, int(w.Month), w.FromParam(c.hour), w.ToParam(c.hour), station.ID)
}

// FetchDay returns the consolidated sounding for one station and date.
// A page without any usable listing yields domain.ErrNoData; transport
// failures are returned unchanged.
func (c *Client) FetchDay(ctx context.Context, station domain.Station, date domain.Date) (domain.ConsolidatedSounding, error) {
	body, err := c.fetcher.Fetch(ctx, c.DayURL(station, date))
	if err != nil {
		return domain.ConsolidatedSounding{}, err
	}

	var lines []domain.SoundingLine
	for _, b := range extractBlocks(body) {
		if b.kind != blockListing {
			continue
		}
		if parsed := c.parse(b.text); len(parsed) > 0 {
			lines = parsed
		}
	}
	if len(lines) == 0 {
		return domain.ConsolidatedSounding{}, fmt.Errorf("sounding %s %s: %w", station.Name, date, domain.ErrNoData)
	}
	return domain.Consolidate(lines, station.Name, date, c.hour, c.catalog), nil
}

type section struct {
	header string
	lines  []domain.SoundingLine
}

// FetchMonth returns one record per sounding section of a month page, kept to
// the client's sounding hour. A section without a usable listing yields a
// record whose values are all absent.
func (c *Client) FetchMonth(ctx context.Context, station domain.Station, w domain.TrainingWindow) ([]domain.ConsolidatedSounding, error) {
	body, err := c.fetcher.Fetch(ctx, c.MonthURL(station, w))
	if err != nil {
		return nil, err
	}

	var sections []*section
	for _, b := range extractBlocks(body) {
		switch b.kind {
		case blockHeader:
			sections = append(sections, &section{header: b.text})
		case blockListing:
			if len(sections) == 0 {
				continue
			}
			if parsed := c.parse(b.text); len(parsed) > 0 {
				sections[len(sections)-1].lines = parsed
			}
		}
	}

	records := make([]domain.ConsolidatedSounding, 0, len(sections))
	for _, s := range sections {
		hour, t, err := parseHeader(s.header)
		if err != nil {
			c.logger.Warn("skipping sounding section", "station", station.Name, "window", w.String(), "error", err)
			continue
		}
		if hour != c.hour {
			continue
		}
		records = append(records, domain.Consolidate(s.lines, station.Name, domain.DateOf(t), hour, c.catalog))
	}
	return records, nil
}

func (c *Client) parse(text string) []domain.SoundingLine {
	listing := domain.ParseListing(text, c.catalog)
	c.metrics.ListingsParsed.Inc()
	c.metrics.LinesDiscarded.Add(float64(listing.Discarded))
	return listing.Lines
}
