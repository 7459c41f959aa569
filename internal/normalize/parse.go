package normalize

import (
	"strings"
	"time"

	"github.com/dukerupert/boardcal/internal/model"
)

type clock struct {
	hour, minute, second int
}

// stamp is one endpoint as the pipeline builds it up.
type stamp struct {
	date     time.Time // civil date at UTC midnight
	hasDate  bool
	clock    clock
	hasClock bool
	badClock bool
	offset   *time.Location // explicit UTC offset from an RFC 3339 string
}

func (s stamp) clockOK() bool {
	return s.hasClock && !s.badClock
}

// instant places the stamp in loc. An explicit offset in the input wins
// over loc for interpreting the wall clock.
func (s stamp) instant(loc *time.Location) time.Time {
	zone := loc
	if s.offset != nil {
		zone = s.offset
	}
	t := time.Date(s.date.Year(), s.date.Month(), s.date.Day(), s.clock.hour, s.clock.minute, s.clock.second, 0, zone)
	return t.In(loc)
}

func stampFromFields(date, clk string, allDay bool) stamp {
	var s stamp
	if d, err := time.Parse(model.DateLayout, date); err == nil {
		s.date, s.hasDate = d, true
	}
	if !allDay {
		if c, err := parseClock(clk); err == nil {
			s.clock, s.hasClock = c, true
		}
	}
	return s
}

type componentResult struct {
	touched  bool
	dateSet  bool
	dateOK   bool
	date     time.Time
	clockSet bool
	clockOK  bool
	clock    clock
}

// components reads year/month/day/hour/minute/second. Missing date parts
// come from fallback, missing clock parts are zero.
func components(c Candidates, prefix string, fallback time.Time) componentResult {
	var r componentResult

	y, hasY := c.get(prefix + "year")
	m, hasM := c.get(prefix + "month")
	d, hasD := c.get(prefix + "day")
	if hasY || hasM || hasD {
		r.touched, r.dateSet = true, true
		year, month, day := fallback.Year(), int(fallback.Month()), fallback.Day()
		ok := true
		if hasY {
			year, ok = intComponent(y)
		}
		if hasM && ok {
			month, ok = intComponent(m)
		}
		if hasD && ok {
			day, ok = intComponent(d)
		}
		if ok && ValidDate(year, month, day) {
			r.date = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			r.dateOK = true
		}
	}

	h, hasH := c.get(prefix + "hour")
	mi, hasMi := c.get(prefix + "minute")
	se, hasSe := c.get(prefix + "second")
	if hasH || hasMi || hasSe {
		r.touched, r.clockSet = true, true
		var cl clock
		ok := true
		if hasH {
			cl.hour, ok = intComponent(h)
		}
		if hasMi && ok {
			cl.minute, ok = intComponent(mi)
		}
		if hasSe && ok {
			cl.second, ok = intComponent(se)
		}
		if ok && ValidClock(cl.hour, cl.minute, cl.second) {
			r.clock, r.clockOK = cl, true
		}
	}
	return r
}

var (
	offsetLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05 -0700",
	}
	dateLayouts = []string{
		"2006-01-02",
		"2006-1-2",
		"2006/01/02",
		"01/02/2006",
		"1/2/2006",
		"20060102",
		"January 2, 2006",
		"January 2 2006",
		"2 January 2006",
		"2. January 2006",
		"Jan 2, 2006",
		"Jan 2 2006",
		"2 Jan 2006",
	}
	clockLayouts = []string{
		"15:04:05",
		"15:04",
		"3:04:05 PM",
		"3:04 PM",
		"3:04PM",
		"3 PM",
		"3PM",
	}
	dateTimeLayouts = buildDateTimeLayouts()
)

func buildDateTimeLayouts() []string {
	var out []string
	for _, d := range dateLayouts {
		for _, c := range clockLayouts {
			out = append(out, d+" "+c)
			if strings.HasPrefix(d, "2006-") {
				out = append(out, d+"T"+c)
			}
		}
	}
	return out
}

type parsedDateTime struct {
	date     time.Time
	clock    clock
	hasClock bool
	offset   *time.Location
}

// parseDateTime accepts a date with an optional time of day. Month names
// must already be English. Anything left unparsed is an error.
func parseDateTime(v string) (parsedDateTime, error) {
	v = canonicalText(v)
	if v == "" {
		return parsedDateTime{}, ErrInvalidDate
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			_, off := t.Zone()
			return parsedDateTime{
				date:     time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
				clock:    clock{t.Hour(), t.Minute(), t.Second()},
				hasClock: true,
				offset:   time.FixedZone("", off),
			}, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return parsedDateTime{date: t}, nil
		}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return parsedDateTime{
				date:     time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
				clock:    clock{t.Hour(), t.Minute(), t.Second()},
				hasClock: true,
			}, nil
		}
	}
	return parsedDateTime{}, ErrInvalidDate
}

// parseClock accepts "HH:MM[:SS]" (hour 0-24) or a 12-hour clock.
func parseClock(v string) (clock, error) {
	v = canonicalText(v)
	if v == "" {
		return clock{}, ErrInvalidTime
	}

	if parts := strings.Split(v, ":"); len(parts) == 2 || len(parts) == 3 {
		var cl clock
		vals := []*int{&cl.hour, &cl.minute, &cl.second}
		numeric := true
		for i, p := range parts {
			n, ok := intComponent(p)
			if !ok {
				numeric = false
				break
			}
			*vals[i] = n
		}
		if numeric {
			if !ValidClock(cl.hour, cl.minute, cl.second) {
				return clock{}, ErrInvalidTime
			}
			return cl, nil
		}
	}

	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return clock{t.Hour(), t.Minute(), t.Second()}, nil
		}
	}
	return clock{}, ErrInvalidTime
}

// canonicalText collapses whitespace and upper-cases so "10:30 pm" matches
// the PM layouts. Month name matching in time.Parse ignores case.
func canonicalText(v string) string {
	return strings.ToUpper(strings.Join(strings.Fields(v), " "))
}
