package model

// Occurrence is an Event projected onto a single calendar day of a query
// window. It is regenerated on every query and never stored.
type Occurrence struct {
	Event
	Date        string `json:"date"`
	StartsToday bool   `json:"starts_today"`
	EndsToday   bool   `json:"ends_today"`
	IsLast      bool   `json:"is_last"`
	CanEdit     bool   `json:"can_edit"`
	Href        string `json:"href,omitempty"`
	Link        string `json:"link,omitempty"`
}
