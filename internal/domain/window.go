package domain

import (
	"fmt"
	"time"
)

// TrainingWindow is one calendar month of historical backfill.
type TrainingWindow struct {
	Year    int
	Month   time.Month
	LastDay int
}

func (w TrainingWindow) String() string { return fmt.Sprintf("%04d%02d", w.Year, w.Month) }

// FromParam is the first day of the window joined with the sounding hour, e.g. "0112".
func (w TrainingWindow) FromParam(hour string) string { return "01" + hour }

// ToParam is the last day of the window joined with the sounding hour, e.g. "3112".
func (w TrainingWindow) ToParam(hour string) string { return fmt.Sprintf("%02d%s", w.LastDay, hour) }

// Windows enumerates the months in the inclusive YYYYMM range [start, end].
func Windows(start, end int) ([]TrainingWindow, error) {
	sy, sm, err := splitYearMonth(start)
	if err != nil {
		return nil, fmt.Errorf("start month: %w", err)
	}
	ey, em, err := splitYearMonth(end)
	if err != nil {
		return nil, fmt.Errorf("end month: %w", err)
	}
	if start > end {
		return nil, fmt.Errorf("start month %d is after end month %d", start, end)
	}

	var out []TrainingWindow
	y, m := sy, sm
	for y < ey || (y == ey && m <= em) {
		out = append(out, TrainingWindow{Year: y, Month: m, LastDay: lastDayOfMonth(y, m)})
		if m == time.December {
			y, m = y+1, time.January
		} else {
			m++
		}
	}
	return out, nil
}

func splitYearMonth(ym int) (int, time.Month, error) {
	y, m := ym/100, ym%100
	if y < 1 || m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("invalid YYYYMM value %d", ym)
	}
	return y, time.Month(m), nil
}

// lastDayOfMonth uses day 0 of the following month, which normalises to the
// last day of m.
func lastDayOfMonth(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
