package uwyo

import (
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/sounding-forecast/internal/domain"
)

// CachePolicy returns a predicate for the page cache. A page is kept only
// when its month has ended and at least one listing parses against catalog;
// busy pages and partial current-month pages are fetched fresh every time.
func CachePolicy(catalog *domain.Catalog, clock clockwork.Clock) func(rawURL, body string) bool {
	return func(rawURL, body string) bool {
		if !monthEnded(rawURL, clock.Now()) {
			return false
		}
		for _, b := range extractBlocks(body) {
			if b.kind == blockListing && len(domain.ParseListing(b.text, catalog).Lines) > 0 {
				return true
			}
		}
		return false
	}
}

func monthEnded(rawURL string, now time.Time) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	q := u.Query()
	year, err := strconv.Atoi(q.Get("YEAR"))
	if err != nil {
		return false
	}
	month, err := strconv.Atoi(q.Get("MONTH"))
	if err != nil || month < 1 || month > 12 {
		return false
	}
	next := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	return !now.Before(next)
}
