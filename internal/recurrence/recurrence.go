// Package recurrence expands annual anniversaries (holidays, birthdays) and
// RRULE strings found in imported calendars.
package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Annual returns the dates in [low, high] on which the (month, day)
// anniversary falls, at UTC midnight. February 29 falls on the last day of
// February in years that lack it.
func Annual(month time.Month, day int, low, high time.Time) []time.Time {
	low = midnight(low)
	high = midnight(high)
	if high.Before(low) {
		return nil
	}

	opt := rrule.ROption{
		Freq:       rrule.YEARLY,
		Dtstart:    time.Date(low.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
		Bymonth:    []int{int(month)},
		Bymonthday: []int{day},
	}
	if month == time.February && day == 29 {
		opt.Bymonthday = []int{-1}
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil
	}
	return r.Between(low, high, true)
}

// IsYearly reports whether an RRULE value repeats once a year.
func IsYearly(rule string) bool {
	opt, err := rrule.StrToROption(strings.TrimPrefix(rule, "RRULE:"))
	if err != nil {
		return false
	}
	return opt.Freq == rrule.YEARLY && (opt.Interval == 0 || opt.Interval == 1)
}

// Expand returns the occurrences of rule starting at dtstart that fall in
// [low, high].
func Expand(rule string, dtstart, low, high time.Time) ([]time.Time, error) {
	r, err := rrule.StrToRRule(strings.TrimPrefix(rule, "RRULE:"))
	if err != nil {
		return nil, fmt.Errorf("parse rrule %q: %w", rule, err)
	}
	r.DTStart(dtstart)
	return r.Between(low, high, true), nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
