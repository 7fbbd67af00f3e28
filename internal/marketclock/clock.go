// Package marketclock gates scheduled runs on exchange trading sessions.
// Holiday calendars are not modeled; a holiday run just fetches flat data.
package marketclock

import (
	"fmt"
	"time"
)

// Clock answers whether any tracked exchange session is open.
type Clock struct {
	taipei  *time.Location
	newYork *time.Location
}

// New creates a Clock with the Taiwan and US exchange timezones loaded.
func New() (*Clock, error) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		return nil, fmt.Errorf("failed to load Asia/Taipei: %w", err)
	}
	newYork, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("failed to load America/New_York: %w", err)
	}
	return &Clock{taipei: taipei, newYork: newYork}, nil
}

// AnySessionOpen reports whether the Taiwan or US session is trading at
// now. Each session is checked against its own local weekday, which also
// covers the Friday-US / Saturday-Taipei overlap.
func (c *Clock) AnySessionOpen(now time.Time) bool {
	return c.TaiwanOpen(now) || c.USOpen(now)
}

// TaiwanOpen reports whether the Taiwan session (09:00-13:30 local,
// weekdays) is trading at now.
func (c *Clock) TaiwanOpen(now time.Time) bool {
	local := now.In(c.taipei)
	if isWeekend(local) {
		return false
	}
	return inRange(local, 9, 0, 13, 30)
}

// USOpen reports whether the US session (09:30-16:00 Eastern, weekdays)
// is trading at now.
func (c *Clock) USOpen(now time.Time) bool {
	local := now.In(c.newYork)
	if isWeekend(local) {
		return false
	}
	return inRange(local, 9, 30, 16, 0)
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func inRange(t time.Time, startH, startM, endH, endM int) bool {
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= startH*60+startM && minutes <= endH*60+endM
}
