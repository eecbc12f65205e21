// Package postgres reads realised surface temperatures from the weather
// history table.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/sounding-forecast/internal/domain"
)

// api_datetime is stored as a UTC timestamp without zone.
const readingsQuery = `
SELECT api_datetime, temp_f
FROM public.weather
WHERE CAST(api_datetime AS date) >= $1
  AND CAST(api_datetime AS date) <= $2
ORDER BY api_datetime DESC`

// Reading is one stored temperature sample.
type Reading struct {
	At    time.Time // UTC
	TempF *float64
}

// HistoryStore queries the weather table through a pgx pool.
type HistoryStore struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewHistoryStore connects to dsn. Days are interpreted in loc.
func NewHistoryStore(ctx context.Context, dsn string, loc *time.Location) (*HistoryStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	return &HistoryStore{pool: pool, loc: loc}, nil
}

// MaxTempF returns the highest temperature recorded on day in the store's
// local zone.
func (h *HistoryStore) MaxTempF(ctx context.Context, day domain.Date) (float64, error) {
	from := day.AddDays(-1).At(0)
	to := day.AddDays(1).At(0)

	rows, err := h.pool.Query(ctx, readingsQuery, from, to)
	if err != nil {
		return 0, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.At, &r.TempF); err != nil {
			return 0, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate readings: %w", err)
	}

	return MaxOnLocalDate(readings, day, h.loc)
}

// MaxOnLocalDate converts UTC readings to loc and returns the maximum
// non-null temperature falling on day.
func MaxOnLocalDate(readings []Reading, day domain.Date, loc *time.Location) (float64, error) {
	found := false
	var best float64
	for _, r := range readings {
		if r.TempF == nil {
			continue
		}
		if domain.DateOf(r.At.In(loc)) != day {
			continue
		}
		if !found || *r.TempF > best {
			best, found = *r.TempF, true
		}
	}
	if !found {
		return 0, fmt.Errorf("max temperature for %s: %w", day, domain.ErrNoData)
	}
	return best, nil
}

// CheckReadiness pings the database.
func (h *HistoryStore) CheckReadiness(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

func (h *HistoryStore) Close() {
	h.pool.Close()
}
