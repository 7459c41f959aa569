package model

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// TimeValue is one instant rendered in every projection the calendar
// needs. All fields derive from (Timestamp, Timezone, viewer zone).
type TimeValue struct {
	Timestamp int64  `json:"timestamp"`
	ISO       string `json:"iso"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	DateOrig  string `json:"date_orig"`
	TimeOrig  string `json:"time_orig"`
	Timezone  string `json:"timezone"`
	TZAbbrev  string `json:"tz_abbrev"`
}

// NewTimeValue projects instant into the event zone and the viewer zone.
// TZAbbrev is left for the caller, which owns the zone catalog.
func NewTimeValue(instant time.Time, event, viewer *time.Location) TimeValue {
	orig := instant.In(event)
	local := instant.In(viewer)
	return TimeValue{
		Timestamp: instant.Unix(),
		ISO:       instant.UTC().Format(time.RFC3339),
		Date:      local.Format(DateLayout),
		Time:      local.Format(TimeLayout),
		DateOrig:  orig.Format(DateLayout),
		TimeOrig:  orig.Format(TimeLayout),
		Timezone:  event.String(),
	}
}

// Instant returns the UTC instant.
func (tv TimeValue) Instant() time.Time {
	return time.Unix(tv.Timestamp, 0).UTC()
}
