// Package normalize turns loosely typed date/time request fields into the
// canonical (start, end, timezone, allday) tuple stored for an event.
package normalize

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/boardcal/internal/model"
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidTime      = errors.New("invalid time")
	ErrMissingStartDate = errors.New("missing start date")
)

// Candidates is the raw bag of request values keyed by field name.
type Candidates map[string]string

func (c Candidates) get(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (c Candidates) flag(key string) bool {
	v, ok := c.get(key)
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Fields is the canonical normalized tuple. Times and Timezone are empty
// for all-day events.
type Fields struct {
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time,omitempty"`
	EndDate   string `json:"end_date"`
	EndTime   string `json:"end_time,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
	AllDay    bool   `json:"allday"`
}

// FromStored extracts the tuple from a persisted row.
func FromStored(s model.Stored) Fields {
	return Fields{
		StartDate: s.StartDate,
		StartTime: s.StartTime,
		EndDate:   s.EndDate,
		EndTime:   s.EndTime,
		Timezone:  s.Timezone,
		AllDay:    s.StartTime == "" || s.EndTime == "" || s.Timezone == "",
	}
}

// Span returns the inclusive number of calendar days covered.
func (f Fields) Span() int {
	start, err1 := time.Parse(model.DateLayout, f.StartDate)
	end, err2 := time.Parse(model.DateLayout, f.EndDate)
	if err1 != nil || err2 != nil {
		return 0
	}
	return daysBetween(start, end) + 1
}

// MonthTranslator rewrites localized month names before string parsing.
type MonthTranslator interface {
	TranslateMonthNames(text string) string
}

// ZoneCatalog resolves timezone identifiers.
type ZoneCatalog interface {
	Load(name string) (*time.Location, bool)
}

// Defaults supplies everything Normalize falls back on.
type Defaults struct {
	// Base holds the current values of an event being modified.
	Base *Fields

	ViewerTimezone string
	SystemTimezone string

	// MaxSpan caps the inclusive day span; zero disables the cap.
	MaxSpan int

	Now        time.Time
	Translator MonthTranslator
	Catalog    ZoneCatalog
}

// Normalize resolves candidates into canonical fields.
//
// Each endpoint is assembled by a fixed pipeline: base values, then
// individual numeric components, then date and time strings, then one
// combined datetime string. Later stages override earlier ones.
func Normalize(c Candidates, d Defaults) (Fields, error) {
	loc, tzName := resolveZone(c, d)

	var base stamp
	var baseEnd stamp
	if d.Base != nil {
		base = stampFromFields(d.Base.StartDate, d.Base.StartTime, d.Base.AllDay)
		baseEnd = stampFromFields(d.Base.EndDate, d.Base.EndTime, d.Base.AllDay)
	}

	now := d.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := civil(now.In(loc))

	start, err := assemble(c, startKeys, base, today, d.Translator)
	if err != nil {
		return Fields{}, err
	}
	if !start.hasDate {
		return Fields{}, ErrMissingStartDate
	}

	endInput := hasAny(c, "end_")
	end, err := assemble(c, endKeys, baseEnd, start.date, d.Translator)
	if err != nil {
		return Fields{}, err
	}
	// The span shorthand only applies when no end field is present.
	if n, ok := intComponent(c["span"]); ok && n > 0 && !endInput {
		end.date, end.hasDate = start.date.AddDate(0, 0, n-1), true
	}
	if !end.hasDate {
		end.date, end.hasDate = start.date, true
	}

	allDay := c.flag("allday") || !start.clockOK() || !end.clockOK()

	var startAt, endAt time.Time
	if allDay {
		startAt = start.date
		endAt = end.date
		tzName = ""
		loc = time.UTC
	} else {
		startAt = start.instant(loc)
		endAt = end.instant(loc)
	}

	if endAt.Before(startAt) {
		endAt = startAt
	}
	if d.MaxSpan > 0 {
		span := daysBetween(civil(startAt), civil(endAt)) + 1
		if span > d.MaxSpan {
			endAt = endAt.AddDate(0, 0, d.MaxSpan-span)
			if endAt.Before(startAt) {
				endAt = startAt
			}
		}
	}

	f := Fields{
		StartDate: startAt.Format(model.DateLayout),
		EndDate:   endAt.Format(model.DateLayout),
		AllDay:    allDay,
	}
	if !allDay {
		f.StartTime = startAt.Format(model.TimeLayout)
		f.EndTime = endAt.Format(model.TimeLayout)
		f.Timezone = tzName
	}
	return f, nil
}

func resolveZone(c Candidates, d Defaults) (*time.Location, string) {
	names := []string{}
	for _, key := range []string{"tz", "timezone"} {
		if v, ok := c.get(key); ok {
			names = append(names, v)
		}
	}
	if d.Base != nil && d.Base.Timezone != "" {
		names = append(names, d.Base.Timezone)
	}
	names = append(names, d.ViewerTimezone, d.SystemTimezone)

	if d.Catalog != nil {
		for _, n := range names {
			if loc, ok := d.Catalog.Load(n); ok {
				return loc, loc.String()
			}
		}
	}
	return time.UTC, "UTC"
}

// keySet names the request fields feeding one endpoint.
type keySet struct {
	components string
	strings    string
}

var (
	startKeys = keySet{components: "", strings: "start_"}
	endKeys   = keySet{components: "end_", strings: "end_"}
)

// assemble runs the pipeline for one endpoint. fallback supplies missing
// date components.
func assemble(c Candidates, keys keySet, base stamp, fallback time.Time, tr MonthTranslator) (stamp, error) {
	s := base
	prefix := keys.strings

	if p := components(c, keys.components, fallback); p.touched {
		if p.dateSet {
			s.date, s.hasDate = p.date, p.dateOK
		}
		if p.clockSet {
			s.clock, s.hasClock, s.badClock = p.clock, p.clockOK, !p.clockOK
		}
	}

	if v, ok := c.get(prefix + "date"); ok {
		p, err := parseDateTime(translate(tr, v))
		if err != nil {
			return stamp{}, ErrInvalidDate
		}
		s.date, s.hasDate = p.date, true
		s.offset = p.offset
		if p.hasClock {
			s.clock, s.hasClock, s.badClock = p.clock, true, false
		}
	}
	if v, ok := c.get(prefix + "time"); ok {
		if cl, err := parseClock(v); err == nil {
			s.clock, s.hasClock, s.badClock = cl, true, false
		} else {
			s.hasClock, s.badClock = false, true
		}
	}

	if v, ok := c.get(prefix + "datetime"); ok {
		p, err := parseDateTime(translate(tr, v))
		if err != nil {
			return stamp{}, ErrInvalidDate
		}
		s.date, s.hasDate = p.date, true
		s.offset = p.offset
		s.clock, s.hasClock, s.badClock = p.clock, p.hasClock, false
	}
	return s, nil
}

func translate(tr MonthTranslator, v string) string {
	if tr == nil {
		return v
	}
	return tr.TranslateMonthNames(v)
}

func hasAny(c Candidates, prefix string) bool {
	for _, key := range []string{"year", "month", "day", "hour", "minute", "second", "date", "time", "datetime"} {
		if _, ok := c.get(prefix + key); ok {
			return true
		}
	}
	return false
}

// intComponent accepts only plain decimal digits, so "12abc" or "1e2"
// never round-trip into a number.
func intComponent(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" || len(v) > 9 {
		return 0, false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

// ValidDate reports whether (year, month, day) names a real calendar day.
func ValidDate(year, month, day int) bool {
	if year < 1 || year > 9999 || month < 1 || month > 12 || day < 1 {
		return false
	}
	return day <= daysIn(year, time.Month(month))
}

// ValidClock reports whether the components form an acceptable time of day.
// Hour 24 is accepted and rolls into the following day.
func ValidClock(hour, minute, second int) bool {
	return hour >= 0 && hour <= 24 && minute >= 0 && minute < 60 && second >= 0 && second < 60
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(civil(b).Sub(civil(a)).Hours() / 24)
}
