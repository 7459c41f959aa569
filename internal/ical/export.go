// Package ical converts between calendar data and iCalendar files: events
// of a query window are exported, holiday calendars are imported.
package ical

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	goical "github.com/emersion/go-ical"

	"github.com/dukerupert/boardcal/internal/calendar"
	"github.com/dukerupert/boardcal/internal/model"
)

const productID = "-//boardcal//EN"

// ExportOptions controls UID and URL generation.
type ExportOptions struct {
	// BaseURL is used for the UID domain and absolute event URLs.
	BaseURL string
	Now     time.Time
}

// Export writes every distinct event of m as a VEVENT. Timed events are
// written as UTC instants; all-day events as dates with an exclusive end.
func Export(w io.Writer, m calendar.OccurrenceMap, opts ExportOptions) (int, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	domain := "boardcal"
	if u, err := url.Parse(opts.BaseURL); err == nil && u.Host != "" {
		domain = u.Host
	}

	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropVersion, "2.0")
	cal.Props.SetText(goical.PropProductID, productID)

	seen := make(map[int64]bool)
	for _, date := range m.Dates() {
		for _, o := range m[date] {
			if seen[o.ID] {
				continue
			}
			seen[o.ID] = true
			cal.Children = append(cal.Children, toVEvent(o, domain, now))
		}
	}

	if err := goical.NewEncoder(w).Encode(cal); err != nil {
		return 0, fmt.Errorf("encode calendar: %w", err)
	}
	return len(seen), nil
}

func toVEvent(o model.Occurrence, domain string, now time.Time) *goical.Component {
	ve := goical.NewComponent(goical.CompEvent)
	ve.Props.SetText(goical.PropUID, fmt.Sprintf("event-%d@%s", o.ID, domain))
	ve.Props.SetDateTime(goical.PropDateTimeStamp, now.UTC())
	ve.Props.SetText(goical.PropSummary, o.Title)
	setRaw(ve, goical.PropSequence, strconv.FormatInt(o.ModifiedSeq, 10))

	if o.AllDay {
		start, _ := time.Parse(model.DateLayout, o.Start.DateOrig)
		end, _ := time.Parse(model.DateLayout, o.End.DateOrig)
		ve.Props.SetDate(goical.PropDateTimeStart, start)
		ve.Props.SetDate(goical.PropDateTimeEnd, end.AddDate(0, 0, 1))
	} else {
		ve.Props.SetDateTime(goical.PropDateTimeStart, o.Start.Instant())
		ve.Props.SetDateTime(goical.PropDateTimeEnd, o.End.Instant())
	}

	if o.Location != "" {
		ve.Props.SetText(goical.PropLocation, o.Location)
	}
	if o.Link != "" {
		setRaw(ve, goical.PropURL, o.Link)
	}
	return ve
}

// setRaw stores a value that needs no text escaping under its default
// value type.
func setRaw(c *goical.Component, name, value string) {
	p := goical.NewProp(name)
	p.Value = value
	c.Props.Set(p)
}
