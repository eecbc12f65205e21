// Package wunderground reads personal weather station history from the
// weather.com PWS API.
package wunderground

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/couchcryptid/sounding-forecast/internal/domain"
)

// DefaultBaseURL is the PWS history API root.
const DefaultBaseURL = "https://api.weather.com/v2/pws/history"

// Fetcher retrieves the body at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Client queries hourly and daily PWS history in metric units.
type Client struct {
	fetcher Fetcher
	baseURL string
	apiKey  string
}

// NewClient creates a PWS history client.
func NewClient(fetcher Fetcher, baseURL, apiKey string) *Client {
	return &Client{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

type response struct {
	Observations []domain.Observation `json:"observations"`
}

func (c *Client) url(kind, station string, date domain.Date) string {
	return fmt.Sprintf("%s/%s?stationId=%s&format=json&units=m&date=%s&apiKey=%s",
		c.baseURL, kind, station, date.Compact(), c.apiKey)
}

// Hourly returns the station's hourly readings for date.
func (c *Client) Hourly(ctx context.Context, station string, date domain.Date) ([]domain.Observation, error) {
	return c.history(ctx, "hourly", station, date)
}

// Daily returns the station's daily summary for date.
func (c *Client) Daily(ctx context.Context, station string, date domain.Date) ([]domain.Observation, error) {
	return c.history(ctx, "daily", station, date)
}

// NoonObservation returns the features of the reading nearest 12Z.
func (c *Client) NoonObservation(ctx context.Context, station string, date domain.Date) (domain.ObservationFeature, error) {
	obs, err := c.Hourly(ctx, station, date)
	if err != nil {
		return domain.ObservationFeature{}, err
	}
	return domain.MatchObservation(date, obs)
}

// DailyHigh returns the daily maximum temperature label for date.
func (c *Client) DailyHigh(ctx context.Context, station string, date domain.Date) (domain.Label, error) {
	obs, err := c.Daily(ctx, station, date)
	if err != nil {
		return domain.Label{}, err
	}
	return domain.DailyMaxLabel(date, obs)
}

func (c *Client) history(ctx context.Context, kind, station string, date domain.Date) ([]domain.Observation, error) {
	body, err := c.fetcher.Fetch(ctx, c.url(kind, station, date))
	if err != nil {
		return nil, err
	}
	// The API answers 204 with an empty body for days without data.
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%s observations %s %s: %w", kind, station, date, domain.ErrNoData)
	}

	var resp response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("decode %s observations: %w", kind, err)
	}
	return resp.Observations, nil
}
