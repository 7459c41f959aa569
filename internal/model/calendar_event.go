package model

// Stored holds the persisted columns of a calendar event. Dates are
// "2006-01-02" strings, times "15:04:05" strings. An empty StartTime,
// EndTime or Timezone means NULL; together they encode the all-day flag.
type Stored struct {
	ID            int64   `json:"id"`
	BoardID       int64   `json:"board_id"`
	TopicID       int64   `json:"topic_id"`
	MsgID         int64   `json:"msg_id"`
	MemberID      int64   `json:"member_id"`
	Title         string  `json:"title"`
	Location      string  `json:"location"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	StartTime     string  `json:"start_time,omitempty"`
	EndTime       string  `json:"end_time,omitempty"`
	Timezone      string  `json:"timezone,omitempty"`
	ModifiedSeq   int64   `json:"modified_seq"`
	AllowedGroups []int64 `json:"allowed_groups,omitempty"`
}

// Event is a hydrated calendar event. It is built from a Stored row (or
// from normalized input) and never carries viewer permission state.
type Event struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Location      string    `json:"location"`
	Start         TimeValue `json:"start"`
	End           TimeValue `json:"end"`
	AllDay        bool      `json:"allday"`
	BoardID       int64     `json:"board_id"`
	TopicID       int64     `json:"topic_id"`
	MsgID         int64     `json:"msg_id"`
	MemberID      int64     `json:"member_id"`
	ModifiedSeq   int64     `json:"modified_seq"`
	AllowedGroups []int64   `json:"allowed_groups,omitempty"`
}

// IsPersisted reports whether the event has a database identity. Preview
// instances use zero or negative ids.
func (e Event) IsPersisted() bool {
	return e.ID > 0
}

// Stored converts the event back to its persisted column form.
func (e Event) Stored() Stored {
	s := Stored{
		ID:            e.ID,
		BoardID:       e.BoardID,
		TopicID:       e.TopicID,
		MsgID:         e.MsgID,
		MemberID:      e.MemberID,
		Title:         e.Title,
		Location:      e.Location,
		StartDate:     e.Start.DateOrig,
		EndDate:       e.End.DateOrig,
		ModifiedSeq:   e.ModifiedSeq,
		AllowedGroups: e.AllowedGroups,
	}
	if !e.AllDay {
		s.StartTime = e.Start.TimeOrig
		s.EndTime = e.End.TimeOrig
		s.Timezone = e.Start.Timezone
	}
	return s
}
