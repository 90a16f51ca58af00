// Package calendar converts instants to wall-clock calendar boundaries in an
// IANA timezone. Every function reasons in calendar dates, so a day spanning
// a DST change (23 or 25 hours) still counts as exactly one day.
package calendar

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jinzhu/now"

	"github.com/kasuganosora/hearthquest/errs"
)

// DefaultTimezone is used when a family has no timezone configured.
const DefaultTimezone = "UTC"

const locationCacheSize = 128

var locations, _ = lru.New(locationCacheSize)

// Date is a wall-clock calendar date with no time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// julian maps the date onto a continuous day count.
func (d Date) julian() int64 {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// Location resolves an IANA identifier. The empty string resolves to UTC.
func Location(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	if v, ok := locations.Get(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errs.InvalidTimezone(name, err)
	}
	locations.Add(name, loc)
	return loc, nil
}

// DateIn returns the calendar date of t as seen on a wall clock in tz.
func DateIn(t time.Time, tz string) (Date, error) {
	loc, err := Location(tz)
	if err != nil {
		return Date{}, err
	}
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}, nil
}

// StartOfDay returns the first instant of t's calendar day in tz.
func StartOfDay(t time.Time, tz string) (time.Time, error) {
	loc, err := Location(tz)
	if err != nil {
		return time.Time{}, err
	}
	return now.With(t.In(loc)).BeginningOfDay(), nil
}

// StartOfWeek returns the first instant of t's calendar week in tz, where
// weeks begin on weekStart (0=Sunday ... 6=Saturday).
func StartOfWeek(t time.Time, tz string, weekStart time.Weekday) (time.Time, error) {
	if weekStart < time.Sunday || weekStart > time.Saturday {
		return time.Time{}, errs.InvalidInput("week start", fmt.Sprintf("%d is not a weekday", weekStart))
	}
	loc, err := Location(tz)
	if err != nil {
		return time.Time{}, err
	}
	cfg := &now.Config{WeekStartDay: weekStart}
	return cfg.With(t.In(loc)).BeginningOfWeek(), nil
}

// DaysBetween returns the number of calendar days from a to b in tz. The
// result is negative when b falls on an earlier date than a.
func DaysBetween(a, b time.Time, tz string) (int, error) {
	da, err := DateIn(a, tz)
	if err != nil {
		return 0, err
	}
	db, err := DateIn(b, tz)
	if err != nil {
		return 0, err
	}
	return int(db.julian() - da.julian()), nil
}
