// Package recurrence implements the calendar arithmetic behind recurring
// transaction generation: advancing a series' cursor along its frequency
// and shifting candidate dates off weekends and holidays.
package recurrence

import (
	"time"

	"finanzas/internal/logger"
	"finanzas/internal/models"
)

const civilDateLayout = "2006-01-02"

// CivilDate truncates a timestamp to its calendar date in UTC. All cursor
// and transaction dates flow through this so comparisons are date-only.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextOccurrence computes the next scheduled date for a series after
// current. Monthly and yearly advancement use calendar arithmetic with
// Go's normalization: Jan 31 + 1 month overflows into March rather than
// clamping to month end. That behavior is pinned by tests; do not "fix" it.
//
// An unknown frequency type is not fatal: it is logged as a warning and
// the series advances daily by the interval.
func NextOccurrence(current time.Time, freq models.FrequencyType, interval int) time.Time {
	if interval < 1 {
		interval = 1
	}

	switch freq {
	case models.FrequencyDaily:
		return current.AddDate(0, 0, interval)
	case models.FrequencyWeekly:
		return current.AddDate(0, 0, interval*7)
	case models.FrequencyMonthly:
		return current.AddDate(0, interval, 0)
	case models.FrequencyYearly:
		return current.AddDate(interval, 0, 0)
	default:
		logger.Get().Warnw("unknown frequency type, falling back to daily advancement",
			"frequency_type", string(freq),
			"interval", interval,
		)
		return current.AddDate(0, 0, interval)
	}
}

// HolidayCalendar is a set of civil dates on which generation should not
// land when a series skips holidays.
type HolidayCalendar map[string]struct{}

// NewHolidayCalendar parses a list of YYYY-MM-DD dates. Unparseable
// entries are logged and skipped rather than failing startup.
func NewHolidayCalendar(dates []string) HolidayCalendar {
	cal := make(HolidayCalendar, len(dates))
	for _, d := range dates {
		parsed, err := time.Parse(civilDateLayout, d)
		if err != nil {
			logger.Get().Warnw("skipping invalid holiday date", "value", d, "error", err)
			continue
		}
		cal[CivilDate(parsed).Format(civilDateLayout)] = struct{}{}
	}
	return cal
}

// Contains reports whether the given date is a configured holiday.
func (c HolidayCalendar) Contains(t time.Time) bool {
	if c == nil {
		return false
	}
	_, ok := c[CivilDate(t).Format(civilDateLayout)]
	return ok
}

// AdjustForBusinessDay shifts a candidate date backward to the nearest
// valid business day. The shift direction is pinned: always backward,
// never forward, so an adjusted transaction is not pulled into the next
// period. Weekend and holiday rules iterate together until the date is
// stable, which handles a holiday falling adjacent to a weekend.
func AdjustForBusinessDay(date time.Time, skipWeekends, skipHolidays bool, holidays HolidayCalendar) time.Time {
	if !skipWeekends && !skipHolidays {
		return date
	}

	for {
		switch {
		case skipWeekends && isWeekend(date):
			date = date.AddDate(0, 0, -1)
		case skipHolidays && holidays.Contains(date):
			date = date.AddDate(0, 0, -1)
		default:
			return date
		}
	}
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
