package calendar

import (
	"fmt"
	"time"

	"github.com/dukerupert/boardcal/internal/model"
	"github.com/dukerupert/boardcal/internal/recurrence"
)

// DayStrings maps a "2006-01-02" date to display strings.
type DayStrings map[string][]string

func (d DayStrings) add(date time.Time, s string) {
	key := date.Format(model.DateLayout)
	d[key] = append(d[key], s)
}

// Trim returns the entries within [low, high].
func (d DayStrings) Trim(low, high time.Time) DayStrings {
	lo, hi := low.Format(model.DateLayout), high.Format(model.DateLayout)
	out := make(DayStrings)
	for k, v := range d {
		if k >= lo && k <= hi {
			out[k] = v
		}
	}
	return out
}

// HolidaysInRange places holidays on the dates of [low, high] they fall
// on. Holidays stored with the recurring year repeat every year.
func HolidaysInRange(holidays []model.Holiday, low, high time.Time) DayStrings {
	low, high = civil(low), civil(high)
	out := make(DayStrings)
	for _, h := range holidays {
		date, ok := parseDate(h.EventDate)
		if !ok {
			continue
		}
		if h.Recurring() {
			for _, d := range recurrence.Annual(date.Month(), date.Day(), low, high) {
				out.add(d, h.Title)
			}
			continue
		}
		if !date.Before(low) && !date.After(high) {
			out.add(date, h.Title)
		}
	}
	return out
}

// BirthdaysInRange lists "Name (age)" for every birthday in [low, high].
// The age is omitted when the birth year is the recurring year, and no
// entry is produced for years before the member was born.
func BirthdaysInRange(members []model.Member, low, high time.Time) DayStrings {
	low, high = civil(low), civil(high)
	out := make(DayStrings)
	for _, m := range members {
		birth, ok := parseDate(m.Birthdate)
		if !ok {
			continue
		}
		for _, d := range recurrence.Annual(birth.Month(), birth.Day(), low, high) {
			if birth.Year() == model.RecurringYear {
				out.add(d, m.Name)
				continue
			}
			age := d.Year() - birth.Year()
			if age < 0 {
				continue
			}
			out.add(d, fmt.Sprintf("%s (%d)", m.Name, age))
		}
	}
	return out
}
