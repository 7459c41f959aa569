package model

// RecurringYear marks a holiday or birthdate whose year is not meaningful.
// Holidays with this year repeat annually; birthdates with it hide the age.
const RecurringYear = 1004

type Holiday struct {
	ID        int64  `json:"id"`
	EventDate string `json:"event_date"`
	Title     string `json:"title"`
}

// Recurring reports whether the holiday repeats every year.
func (h Holiday) Recurring() bool {
	return len(h.EventDate) >= 4 && h.EventDate[:4] == "1004"
}
