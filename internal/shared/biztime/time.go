// Package biztime provides timezone helpers for broker session boundaries.
// All storage and transport use UTC. A broker's local timezone is only used to
// compute trading-day boundaries such as the daily session cutover.
package biztime

import (
	"fmt"
	"sync"
	"time"
	// broker timezones must resolve in minimal containers
	_ "time/tzdata"
)

const (
	// DefaultTimezone is used when no timezone is configured.
	DefaultTimezone = "Asia/Kolkata"
)

var (
	bizLocation     *time.Location
	bizLocationOnce sync.Once
	initErr         error

	locationCache sync.Map // tz name -> *time.Location
)

// Init initializes the default business timezone. Should be called once at startup.
func Init(tz string) error {
	bizLocationOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		bizLocation, initErr = LoadLocation(tz)
	})
	return initErr
}

// Location returns the default business timezone, initializing it lazily.
func Location() *time.Location {
	if bizLocation == nil {
		if err := Init(""); err != nil {
			panic(fmt.Sprintf("biztime: failed to auto-initialize with default timezone: %v", err))
		}
	}
	return bizLocation
}

// LoadLocation loads and caches a named timezone.
func LoadLocation(tz string) (*time.Location, error) {
	if cached, ok := locationCache.Load(tz); ok {
		return cached.(*time.Location), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	locationCache.Store(tz, loc)
	return loc, nil
}

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// DailyCutover is a wall-clock time of day in a specific timezone.
type DailyCutover struct {
	Location *time.Location
	Hour     int
	Minute   int
}

// NextDayUTC returns the cutover on the calendar day after now (as seen in the
// cutover's timezone), converted to UTC.
func (c DailyCutover) NextDayUTC(now time.Time) time.Time {
	local := now.In(c.Location)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, c.Hour, c.Minute, 0, 0, c.Location)
	return next.UTC()
}

// String formats the cutover as "HH:MM Zone".
func (c DailyCutover) String() string {
	return fmt.Sprintf("%02d:%02d %s", c.Hour, c.Minute, c.Location)
}

// ParseCutover parses "HH:MM" in the named timezone. An empty tz uses the
// business timezone set by Init.
func ParseCutover(hhmm string, tz string) (DailyCutover, error) {
	loc := Location()
	if tz != "" {
		var err error
		if loc, err = LoadLocation(tz); err != nil {
			return DailyCutover{}, err
		}
	}
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return DailyCutover{}, fmt.Errorf("invalid cutover %q: %w", hhmm, err)
	}
	return DailyCutover{Location: loc, Hour: t.Hour(), Minute: t.Minute()}, nil
}
