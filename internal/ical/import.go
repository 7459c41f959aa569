package ical

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/dukerupert/boardcal/internal/model"
	"github.com/dukerupert/boardcal/internal/recurrence"
)

// maxHolidayDays caps how many days one multi-day VEVENT may expand to.
const maxHolidayDays = 31

// ImportOptions bounds the expansion of non-annual recurrence rules.
type ImportOptions struct {
	From   time.Time
	To     time.Time
	Logger *slog.Logger
}

// ImportHolidays reads all-day VEVENTs from an iCalendar stream. Events
// repeating every year become recurring holidays; other recurrence rules
// are expanded within [From, To]. Timed events are skipped.
func ImportHolidays(r io.Reader, opts ImportOptions) ([]model.Holiday, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var out []model.Holiday
	for _, ve := range cal.Events() {
		hs, err := holidaysFrom(ve, opts)
		if err != nil {
			logger.Debug("skipping vevent", "uid", propValue(ve, ics.ComponentPropertyUniqueId), "error", err)
			continue
		}
		out = append(out, hs...)
	}
	return out, nil
}

func holidaysFrom(ve *ics.VEvent, opts ImportOptions) ([]model.Holiday, error) {
	title := strings.TrimSpace(propValue(ve, ics.ComponentPropertySummary))
	if title == "" {
		return nil, errors.New("missing summary")
	}

	start, ok := dateValue(ve.GetProperty(ics.ComponentPropertyDtStart))
	if !ok {
		return nil, errors.New("not an all-day event")
	}
	days := 1
	if end, ok := dateValue(ve.GetProperty(ics.ComponentPropertyDtEnd)); ok && end.After(start) {
		days = int(end.Sub(start).Hours() / 24)
	}
	days = min(days, maxHolidayDays)

	rule := propValue(ve, ics.ComponentPropertyRrule)
	switch {
	case rule == "":
		return expandDays([]time.Time{start}, days, title, false), nil
	case recurrence.IsYearly(rule):
		return expandDays([]time.Time{start}, days, title, true), nil
	}

	if opts.To.IsZero() || opts.To.Before(opts.From) {
		return nil, fmt.Errorf("no window for recurrence %q", rule)
	}
	starts, err := recurrence.Expand(rule, start, opts.From, opts.To)
	if err != nil {
		return nil, err
	}
	return expandDays(starts, days, title, false), nil
}

func expandDays(starts []time.Time, days int, title string, annual bool) []model.Holiday {
	var out []model.Holiday
	for _, s := range starts {
		for i := 0; i < days; i++ {
			d := s.AddDate(0, 0, i)
			if annual {
				d = time.Date(model.RecurringYear, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
			}
			out = append(out, model.Holiday{EventDate: d.Format(model.DateLayout), Title: title})
		}
	}
	return out
}

// dateValue reads a DATE-valued property. DATE-TIME values are rejected.
func dateValue(p *ics.IANAProperty) (time.Time, bool) {
	if p == nil {
		return time.Time{}, false
	}
	v := strings.TrimSpace(p.Value)
	if strings.Contains(v, "T") {
		return time.Time{}, false
	}
	t, err := time.Parse("20060102", v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func propValue(ve *ics.VEvent, name ics.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}
