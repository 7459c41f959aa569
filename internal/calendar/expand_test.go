package calendar

import (
	"slices"
	"testing"
	"time"

	"github.com/dukerupert/boardcal/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func allDayRow(id int64, title, start, end string) model.Stored {
	return model.Stored{ID: id, Title: title, StartDate: start, EndDate: end}
}

func TestExpandClipsToWindow(t *testing.T) {
	x := Expander{Frame: frameIn(t, "UTC")}
	m := x.Expand([]model.Stored{allDayRow(1, "Conference", "2024-01-30", "2024-02-03")}, day("2024-02-01"), day("2024-02-05"))

	if got := m.Dates(); !slices.Equal(got, []string{"2024-02-01", "2024-02-02", "2024-02-03"}) {
		t.Fatalf("dates = %v", got)
	}
	first := m["2024-02-01"][0]
	if first.StartsToday {
		t.Error("02-01 should not start today")
	}
	if first.EndsToday {
		t.Error("02-01 should not end today")
	}
	last := m["2024-02-03"][0]
	if !last.EndsToday {
		t.Error("02-03 should end today")
	}
	if last.Date != "2024-02-03" {
		t.Errorf("occurrence date = %q", last.Date)
	}
}

func TestExpandStartsToday(t *testing.T) {
	x := Expander{Frame: frameIn(t, "UTC")}
	m := x.Expand([]model.Stored{allDayRow(1, "Trip", "2024-02-02", "2024-02-04")}, day("2024-02-01"), day("2024-02-10"))
	if !m["2024-02-02"][0].StartsToday {
		t.Error("first day should start today")
	}
	if m["2024-02-03"][0].StartsToday || m["2024-02-03"][0].EndsToday {
		t.Error("middle day neither starts nor ends")
	}
}

func TestExpandKeepsOrderAndMarksLast(t *testing.T) {
	x := Expander{Frame: frameIn(t, "UTC")}
	rows := []model.Stored{
		allDayRow(3, "C", "2024-03-01", "2024-03-01"),
		allDayRow(1, "A", "2024-03-01", "2024-03-02"),
		allDayRow(2, "B", "2024-03-01", "2024-03-01"),
	}
	m := x.Expand(rows, day("2024-03-01"), day("2024-03-02"))

	var titles []string
	for _, o := range m["2024-03-01"] {
		titles = append(titles, o.Title)
	}
	if !slices.Equal(titles, []string{"C", "A", "B"}) {
		t.Errorf("order = %v, want [C A B]", titles)
	}
	for i, o := range m["2024-03-01"] {
		if o.IsLast != (i == 2) {
			t.Errorf("occurrence %d IsLast = %v", i, o.IsLast)
		}
	}
	if !m["2024-03-02"][0].IsLast {
		t.Error("single occurrence should be last")
	}
}

func TestExpandSkipsBrokenRows(t *testing.T) {
	x := Expander{Frame: frameIn(t, "UTC")}
	rows := []model.Stored{
		allDayRow(1, "Broken", "2024-13-01", "2024-13-02"),
		allDayRow(2, "Fine", "2024-03-01", "2024-03-01"),
	}
	m := x.Expand(rows, day("2024-03-01"), day("2024-03-31"))
	if m.Len() != 1 || m["2024-03-01"][0].Title != "Fine" {
		t.Errorf("got %+v, want only Fine", m)
	}
}

func TestExpandUsesViewerDayBoundaries(t *testing.T) {
	row := model.Stored{
		ID: 1, Title: "Late show",
		StartDate: "2024-06-01", StartTime: "22:00:00",
		EndDate: "2024-06-01", EndTime: "23:30:00",
		Timezone: "America/New_York",
	}
	window := []time.Time{day("2024-05-31"), day("2024-06-03")}

	ny := Expander{Frame: frameIn(t, "America/New_York")}.Expand([]model.Stored{row}, window[0], window[1])
	if got := ny.Dates(); !slices.Equal(got, []string{"2024-06-01"}) {
		t.Errorf("New York dates = %v", got)
	}

	utc := Expander{Frame: frameIn(t, "UTC")}.Expand([]model.Stored{row}, window[0], window[1])
	if got := utc.Dates(); !slices.Equal(got, []string{"2024-06-02"}) {
		t.Errorf("UTC dates = %v", got)
	}
	o := utc["2024-06-02"][0]
	if !o.StartsToday || !o.EndsToday {
		t.Errorf("starts/ends = %v/%v, want both", o.StartsToday, o.EndsToday)
	}
}

func TestExpandEndAtMidnightCountsThatDay(t *testing.T) {
	row := model.Stored{
		ID: 1, Title: "Party",
		StartDate: "2024-06-01", StartTime: "20:00:00",
		EndDate: "2024-06-02", EndTime: "00:00:00",
		Timezone: "UTC",
	}
	m := Expander{Frame: frameIn(t, "UTC")}.Expand([]model.Stored{row}, day("2024-06-01"), day("2024-06-05"))
	if got := m.Dates(); !slices.Equal(got, []string{"2024-06-01", "2024-06-02"}) {
		t.Errorf("dates = %v", got)
	}
}

func TestExpandInvertedWindow(t *testing.T) {
	m := Expander{Frame: frameIn(t, "UTC")}.Expand(
		[]model.Stored{allDayRow(1, "A", "2024-03-01", "2024-03-01")},
		day("2024-03-05"), day("2024-03-01"),
	)
	if m.Len() != 0 {
		t.Errorf("got %d occurrences, want 0", m.Len())
	}
}

func TestDedupByTopicAndTitle(t *testing.T) {
	rows := []model.Stored{
		{ID: 1, TopicID: 5, Title: "Meeting", StartDate: "2024-04-01", EndDate: "2024-04-01"},
		{ID: 2, TopicID: 5, Title: "Meeting", StartDate: "2024-04-02", EndDate: "2024-04-02"},
		{ID: 3, TopicID: 6, Title: "Meeting", StartDate: "2024-04-02", EndDate: "2024-04-02"},
		{ID: 4, TopicID: 7, Title: "Retreat", StartDate: "2024-04-01", EndDate: "2024-04-03"},
	}
	m := Expander{Frame: frameIn(t, "UTC")}.Expand(rows, day("2024-04-01"), day("2024-04-05"))
	d := Dedup(m)

	var ids []int64
	for _, date := range d.Dates() {
		for _, o := range d[date] {
			ids = append(ids, o.ID)
		}
	}
	if !slices.Equal(ids, []int64{1, 4, 3}) {
		t.Errorf("ids = %v, want [1 4 3]", ids)
	}
	if _, ok := d["2024-04-03"]; ok {
		t.Error("empty days should be dropped")
	}
	if !d["2024-04-01"][1].IsLast || d["2024-04-01"][0].IsLast {
		t.Error("IsLast should be recomputed after dedup")
	}
	if m.Len() != 6 {
		t.Errorf("Dedup must not modify its input, len = %d", m.Len())
	}
}
