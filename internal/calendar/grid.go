package calendar

import (
	"time"

	"github.com/dukerupert/boardcal/internal/model"
)

// GridOptions configure the month, week and list builders.
type GridOptions struct {
	// WeekStart is the weekday shown in the first column.
	WeekStart time.Weekday
	// MinYear and MaxYear bound navigation; zero means unbounded.
	MinYear int
	MaxYear int
}

func (o GridOptions) yearAllowed(year int) bool {
	if o.MinYear > 0 && year < o.MinYear {
		return false
	}
	if o.MaxYear > 0 && year > o.MaxYear {
		return false
	}
	return true
}

// DayData is what the builders attach to each day.
type DayData struct {
	Events    OccurrenceMap
	Holidays  DayStrings
	Birthdays DayStrings
}

type DayCell struct {
	// Day is the day of the month, or 0 for padding cells outside it.
	Day       int                `json:"day"`
	Date      string             `json:"date"`
	Weekday   int                `json:"weekday"`
	IsToday   bool               `json:"is_today"`
	Events    []model.Occurrence `json:"events"`
	Holidays  []string           `json:"holidays"`
	Birthdays []string           `json:"birthdays"`
}

func newCell(date, today time.Time, data DayData) DayCell {
	key := date.Format(model.DateLayout)
	return DayCell{
		Day:       date.Day(),
		Date:      key,
		Weekday:   int(date.Weekday()),
		IsToday:   date.Equal(today),
		Events:    data.Events[key],
		Holidays:  data.Holidays[key],
		Birthdays: data.Birthdays[key],
	}
}

// paddingCell stands for a day of the neighbouring month. It carries the
// date but no day number and no content.
func paddingCell(date, today time.Time) DayCell {
	return DayCell{
		Date:    date.Format(model.DateLayout),
		Weekday: int(date.Weekday()),
		IsToday: date.Equal(today),
	}
}

type MonthAnchor struct {
	Year     int  `json:"year"`
	Month    int  `json:"month"`
	Disabled bool `json:"disabled"`
}

type MonthGrid struct {
	Year      int         `json:"year"`
	Month     int         `json:"month"`
	Title     string      `json:"title"`
	WeekStart int         `json:"week_start"`
	Weekdays  []string    `json:"weekdays"`
	Weeks     [][]DayCell `json:"weeks"`
	Previous  MonthAnchor `json:"previous"`
	Next      MonthAnchor `json:"next"`
}

// MonthWindow returns the first and last day of a month.
func MonthWindow(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// BuildMonth lays out a month as rows of seven cells. Cells before the
// first and after the last day of the month are padding: Day 0, the
// neighbouring month's date and no content.
func BuildMonth(year int, month time.Month, today time.Time, opt GridOptions, data DayData) MonthGrid {
	first, last := MonthWindow(year, month)
	today = civil(today)

	pw := (int(first.Weekday()) - int(opt.WeekStart)%7 + 7) % 7
	lastDay := last.Day()
	rows := (lastDay + pw + 6) / 7

	g := MonthGrid{
		Year:      year,
		Month:     int(month),
		Title:     first.Format("January 2006"),
		WeekStart: int(opt.WeekStart) % 7,
		Weekdays:  weekdayNames(opt.WeekStart),
		Weeks:     make([][]DayCell, rows),
	}

	for r := 0; r < rows; r++ {
		week := make([]DayCell, 7)
		for c := 0; c < 7; c++ {
			day := r*7 + c - pw + 1
			date := first.AddDate(0, 0, day-1)
			if day < 1 || day > lastDay {
				week[c] = paddingCell(date, today)
				continue
			}
			week[c] = newCell(date, today, data)
		}
		g.Weeks[r] = week
	}

	prev := first.AddDate(0, -1, 0)
	next := first.AddDate(0, 1, 0)
	g.Previous = MonthAnchor{Year: prev.Year(), Month: int(prev.Month()), Disabled: !opt.yearAllowed(prev.Year())}
	g.Next = MonthAnchor{Year: next.Year(), Month: int(next.Month()), Disabled: !opt.yearAllowed(next.Year())}
	return g
}

func weekdayNames(start time.Weekday) []string {
	names := make([]string, 7)
	for i := range names {
		names[i] = time.Weekday((int(start) + i) % 7).String()
	}
	return names
}

// WeekMonth groups the days of a week that fall in one calendar month.
type WeekMonth struct {
	Year  int       `json:"year"`
	Month int       `json:"month"`
	Title string    `json:"title"`
	Days  []DayCell `json:"days"`
}

type WeekAnchor struct {
	Date     string `json:"date"`
	Disabled bool   `json:"disabled"`
}

type WeekGrid struct {
	Start    string      `json:"start"`
	End      string      `json:"end"`
	Weekdays []string    `json:"weekdays"`
	Days     []DayCell   `json:"days"`
	Months   []WeekMonth `json:"months"`
	Previous WeekAnchor  `json:"previous"`
	Next     WeekAnchor  `json:"next"`
}

// WeekWindow returns the first and last day of the week containing anchor.
func WeekWindow(anchor time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	anchor = civil(anchor)
	shift := (int(anchor.Weekday()) - int(weekStart)%7 + 7) % 7
	first := anchor.AddDate(0, 0, -shift)
	return first, first.AddDate(0, 0, 6)
}

// BuildWeek lays out the seven days of the week containing anchor and
// groups them by month.
func BuildWeek(anchor, today time.Time, opt GridOptions, data DayData) WeekGrid {
	first, last := WeekWindow(anchor, opt.WeekStart)
	today = civil(today)

	g := WeekGrid{
		Start:    first.Format(model.DateLayout),
		End:      last.Format(model.DateLayout),
		Weekdays: weekdayNames(opt.WeekStart),
		Days:     make([]DayCell, 7),
	}
	for i := 0; i < 7; i++ {
		d := first.AddDate(0, 0, i)
		cell := newCell(d, today, data)
		g.Days[i] = cell

		n := len(g.Months)
		if n == 0 || g.Months[n-1].Month != int(d.Month()) {
			g.Months = append(g.Months, WeekMonth{
				Year:  d.Year(),
				Month: int(d.Month()),
				Title: d.Format("January 2006"),
			})
			n++
		}
		g.Months[n-1].Days = append(g.Months[n-1].Days, cell)
	}

	prev := first.AddDate(0, 0, -7)
	next := first.AddDate(0, 0, 7)
	g.Previous = WeekAnchor{Date: prev.Format(model.DateLayout), Disabled: !opt.yearAllowed(prev.Year())}
	g.Next = WeekAnchor{Date: next.Format(model.DateLayout), Disabled: !opt.yearAllowed(next.AddDate(0, 0, 6).Year())}
	return g
}

type ListDay struct {
	Date      string             `json:"date"`
	Label     string             `json:"label"`
	Weekday   string             `json:"weekday"`
	IsToday   bool               `json:"is_today"`
	Events    []model.Occurrence `json:"events"`
	Holidays  []string           `json:"holidays"`
	Birthdays []string           `json:"birthdays"`
}

type ListView struct {
	Start     string        `json:"start"`
	End       string        `json:"end"`
	ShowYear  bool          `json:"show_year"`
	Days      []ListDay     `json:"days"`
	Events    OccurrenceMap `json:"events"`
	Holidays  DayStrings    `json:"holidays"`
	Birthdays DayStrings    `json:"birthdays"`
}

// BuildList returns every day of [low, high] that has anything on it.
// Labels drop the year when the window is shorter than a year.
func BuildList(low, high, today time.Time, data DayData) ListView {
	low, high, today = civil(low), civil(high), civil(today)
	showYear := !high.Before(low.AddDate(1, 0, 0))
	layout := "January 2"
	if showYear {
		layout = "January 2, 2006"
	}

	v := ListView{
		Start:     low.Format(model.DateLayout),
		End:       high.Format(model.DateLayout),
		ShowYear:  showYear,
		Events:    data.Events,
		Holidays:  data.Holidays,
		Birthdays: data.Birthdays,
	}
	for d := low; !d.After(high); d = d.AddDate(0, 0, 1) {
		key := d.Format(model.DateLayout)
		events, holidays, birthdays := data.Events[key], data.Holidays[key], data.Birthdays[key]
		if len(events) == 0 && len(holidays) == 0 && len(birthdays) == 0 {
			continue
		}
		v.Days = append(v.Days, ListDay{
			Date:      key,
			Label:     d.Format(layout),
			Weekday:   d.Weekday().String(),
			IsToday:   d.Equal(today),
			Events:    events,
			Holidays:  holidays,
			Birthdays: birthdays,
		})
	}
	return v
}
