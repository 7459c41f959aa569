// Package calendar expands stored events into per-day occurrences and lays
// them out as month, week and list views.
package calendar

import (
	"fmt"
	"time"

	"github.com/dukerupert/boardcal/internal/model"
	"github.com/dukerupert/boardcal/internal/normalize"
)

// ZoneCatalog resolves timezone identifiers and their abbreviations.
type ZoneCatalog interface {
	Load(name string) (*time.Location, bool)
	Abbreviation(name string, instant time.Time) string
}

// Frame is the timezone an event is projected into for display and for
// day boundaries.
type Frame struct {
	Viewer  *time.Location
	Catalog ZoneCatalog
}

func (f Frame) location() *time.Location {
	if f.Viewer == nil {
		return time.UTC
	}
	return f.Viewer
}

func (f Frame) zone(name string) (*time.Location, bool) {
	if f.Catalog != nil {
		return f.Catalog.Load(name)
	}
	if name == "" || name == "Local" {
		return nil, false
	}
	loc, err := time.LoadLocation(name)
	return loc, err == nil
}

func (f Frame) abbreviation(loc *time.Location, instant time.Time) string {
	if f.Catalog != nil {
		return f.Catalog.Abbreviation(loc.String(), instant)
	}
	return instant.In(loc).Format("MST")
}

const storedLayout = model.DateLayout + " " + model.TimeLayout

// Hydrate builds an Event from a stored row.
//
// A row is all-day when any of start time, end time or timezone is missing,
// or when the timezone is not a known zone. All-day events are anchored at
// midnight in the viewer's zone and carry no timezone. An end before the
// start is pulled up to the start.
func Hydrate(s model.Stored, f Frame) (model.Event, error) {
	viewer := f.location()

	startDate, err := time.ParseInLocation(model.DateLayout, s.StartDate, viewer)
	if err != nil {
		return model.Event{}, fmt.Errorf("event %d start date %q: %w", s.ID, s.StartDate, normalize.ErrInvalidDate)
	}
	endDate, err := time.ParseInLocation(model.DateLayout, s.EndDate, viewer)
	if err != nil {
		return model.Event{}, fmt.Errorf("event %d end date %q: %w", s.ID, s.EndDate, normalize.ErrInvalidDate)
	}

	ev := model.Event{
		ID:            s.ID,
		Title:         s.Title,
		Location:      s.Location,
		BoardID:       s.BoardID,
		TopicID:       s.TopicID,
		MsgID:         s.MsgID,
		MemberID:      s.MemberID,
		ModifiedSeq:   s.ModifiedSeq,
		AllowedGroups: s.AllowedGroups,
	}

	var eventLoc *time.Location
	allDay := s.StartTime == "" || s.EndTime == "" || s.Timezone == ""
	if !allDay {
		loc, ok := f.zone(s.Timezone)
		if ok {
			eventLoc = loc
		} else {
			allDay = true
		}
	}

	if allDay {
		if endDate.Before(startDate) {
			endDate = startDate
		}
		ev.AllDay = true
		ev.Start = allDayValue(startDate, viewer)
		ev.End = allDayValue(endDate, viewer)
		return ev, nil
	}

	start, err := time.ParseInLocation(storedLayout, s.StartDate+" "+s.StartTime, eventLoc)
	if err != nil {
		return model.Event{}, fmt.Errorf("event %d start time %q: %w", s.ID, s.StartTime, normalize.ErrInvalidTime)
	}
	end, err := time.ParseInLocation(storedLayout, s.EndDate+" "+s.EndTime, eventLoc)
	if err != nil {
		return model.Event{}, fmt.Errorf("event %d end time %q: %w", s.ID, s.EndTime, normalize.ErrInvalidTime)
	}
	if end.Before(start) {
		end = start
	}

	// Both endpoints always share the start's zone.
	ev.Start = model.NewTimeValue(start, eventLoc, viewer)
	ev.End = model.NewTimeValue(end, eventLoc, viewer)
	ev.Start.TZAbbrev = f.abbreviation(eventLoc, start)
	ev.End.TZAbbrev = f.abbreviation(eventLoc, end)
	return ev, nil
}

func allDayValue(date time.Time, viewer *time.Location) model.TimeValue {
	tv := model.NewTimeValue(date, viewer, viewer)
	tv.Timezone = ""
	return tv
}
