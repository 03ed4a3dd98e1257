// Package biztime keeps storage in UTC while computing calendar boundaries
// (start of day, start of month) in the configured business timezone.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimezone is used when no timezone is configured.
const DefaultTimezone = "America/Sao_Paulo"

var (
	bizLocation *time.Location
	locMu       sync.RWMutex
)

// Init loads tz as the business timezone. An empty tz selects DefaultTimezone.
func Init(tz string) error {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", tz, err)
	}
	locMu.Lock()
	bizLocation = loc
	locMu.Unlock()
	return nil
}

// Location returns the business timezone, initialising the default on first use.
func Location() *time.Location {
	locMu.RLock()
	loc := bizLocation
	locMu.RUnlock()
	if loc != nil {
		return loc
	}
	if err := Init(""); err != nil {
		return time.UTC
	}
	return Location()
}

func NowUTC() time.Time {
	return time.Now().UTC()
}

// FromUnix converts provider timestamps (Unix seconds) to UTC. Zero maps to the zero time.
func FromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

// StartOfMonthUTC returns the first instant of t's month in the business timezone, as UTC.
func StartOfMonthUTC(t time.Time) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, Location()).UTC()
}

// StartOfDayUTC returns midnight of t's day in the business timezone, as UTC.
func StartOfDayUTC(t time.Time) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location()).UTC()
}

// DayKey formats t as YYYY-MM-DD in the business timezone.
func DayKey(t time.Time) string {
	return t.In(Location()).Format(time.DateOnly)
}
