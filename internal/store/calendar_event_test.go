package store

import (
	"database/sql"
	"slices"
	"testing"

	"github.com/dukerupert/boardcal/internal/database"
	"github.com/dukerupert/boardcal/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func timedEvent(title, date, start, end string) model.Stored {
	return model.Stored{
		Title:     title,
		StartDate: date,
		EndDate:   date,
		StartTime: start,
		EndTime:   end,
		Timezone:  "America/New_York",
	}
}

func TestCreateAndGetByID(t *testing.T) {
	s := NewEventStore(setupTestDB(t))

	in := timedEvent("Team Meeting", "2024-06-01", "10:00:00", "12:00:00")
	in.Location = "Conference Room"
	in.TopicID = 7
	in.MemberID = 3
	in.AllowedGroups = []int64{4, 2, 4}

	event, err := s.Create(in)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if event.ID == 0 {
		t.Fatal("expected id")
	}
	if event.Title != "Team Meeting" {
		t.Errorf("title = %q, want %q", event.Title, "Team Meeting")
	}
	if event.StartTime != "10:00:00" || event.EndTime != "12:00:00" {
		t.Errorf("times = %q-%q, want 10:00:00-12:00:00", event.StartTime, event.EndTime)
	}
	if event.Timezone != "America/New_York" {
		t.Errorf("timezone = %q, want %q", event.Timezone, "America/New_York")
	}
	if !slices.Equal(event.AllowedGroups, []int64{2, 4}) {
		t.Errorf("groups = %v, want [2 4]", event.AllowedGroups)
	}

	got, err := s.GetByID(event.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Location != "Conference Room" {
		t.Errorf("location = %q, want %q", got.Location, "Conference Room")
	}
	if got.TopicID != 7 || got.MemberID != 3 {
		t.Errorf("topic/member = %d/%d, want 7/3", got.TopicID, got.MemberID)
	}
}

func TestCreateAllDayStoresNulls(t *testing.T) {
	db := setupTestDB(t)
	s := NewEventStore(db)

	event, err := s.Create(model.Stored{Title: "Holiday", StartDate: "2024-06-01", EndDate: "2024-06-03"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	var nulls int
	err = db.QueryRow(
		`SELECT (start_time IS NULL) + (end_time IS NULL) + (timezone IS NULL) FROM calendar_events WHERE id = ?`,
		event.ID,
	).Scan(&nulls)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if nulls != 3 {
		t.Errorf("null columns = %d, want 3", nulls)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	s := NewEventStore(setupTestDB(t))

	got, err := s.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent event")
	}
}

func TestListOverlapping(t *testing.T) {
	s := NewEventStore(setupTestDB(t))

	s.Create(timedEvent("Before", "2024-01-28", "09:00:00", "10:00:00"))
	s.Create(model.Stored{Title: "Spanning", StartDate: "2024-01-30", EndDate: "2024-02-03"})
	s.Create(timedEvent("Inside", "2024-02-02", "09:00:00", "10:00:00"))
	s.Create(timedEvent("After", "2024-02-06", "09:00:00", "10:00:00"))

	events, err := s.ListOverlapping("2024-02-01", "2024-02-05", nil)
	if err != nil {
		t.Fatalf("list overlapping: %v", err)
	}
	var titles []string
	for _, e := range events {
		titles = append(titles, e.Title)
	}
	if !slices.Equal(titles, []string{"Spanning", "Inside"}) {
		t.Errorf("titles = %v, want [Spanning Inside]", titles)
	}
}

func TestListOverlappingAllDayFirst(t *testing.T) {
	s := NewEventStore(setupTestDB(t))

	s.Create(timedEvent("Morning Meeting", "2024-02-05", "09:00:00", "10:00:00"))
	s.Create(model.Stored{Title: "Holiday", StartDate: "2024-02-05", EndDate: "2024-02-05"})

	events, err := s.ListOverlapping("2024-02-05", "2024-02-05", nil)
	if err != nil {
		t.Fatalf("list overlapping: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Title != "Holiday" {
		t.Errorf("first event = %q, want all-day event %q", events[0].Title, "Holiday")
	}
}

func TestListOverlappingBoardFilter(t *testing.T) {
	s := NewEventStore(setupTestDB(t))

	open := timedEvent("Unlinked", "2024-02-05", "09:00:00", "10:00:00")
	s.Create(open)
	hidden := timedEvent("Staff board", "2024-02-05", "11:00:00", "12:00:00")
	hidden.BoardID = 9
	s.Create(hidden)

	events, err := s.ListOverlapping("2024-02-01", "2024-02-28", func(boardID int64) bool { return boardID != 9 })
	if err != nil {
		t.Fatalf("list overlapping: %v", err)
	}
	if len(events) != 1 || events[0].Title != "Unlinked" {
		t.Errorf("events = %+v, want only Unlinked", events)
	}
}

func TestUpdateBumpsSequence(t *testing.T) {
	s := NewEventStore(setupTestDB(t))

	event, err := s.Create(timedEvent("Original Title", "2024-06-01", "10:00:00", "11:00:00"))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	event.Title = "Updated Title"
	event.StartTime, event.EndTime, event.Timezone = "", "", ""
	event.AllowedGroups = []int64{5}
	updated, err := s.Update(*event)
	if err != nil {
		t.Fatalf("update event: %v", err)
	}
	if updated.Title != "Updated Title" {
		t.Errorf("title = %q, want %q", updated.Title, "Updated Title")
	}
	if updated.ModifiedSeq != 1 {
		t.Errorf("modified_seq = %d, want 1", updated.ModifiedSeq)
	}
	if updated.StartTime != "" || updated.Timezone != "" {
		t.Errorf("expected all-day columns, got %q %q", updated.StartTime, updated.Timezone)
	}
	if !slices.Equal(updated.AllowedGroups, []int64{5}) {
		t.Errorf("groups = %v, want [5]", updated.AllowedGroups)
	}

	missing, err := s.Update(model.Stored{ID: 404, Title: "x", StartDate: "2024-01-01", EndDate: "2024-01-01"})
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for nonexistent event")
	}
}

func TestDelete(t *testing.T) {
	s := NewEventStore(setupTestDB(t))

	event, err := s.Create(timedEvent("To Delete", "2024-06-01", "10:00:00", "11:00:00"))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	found, err := s.Delete(event.ID)
	if err != nil {
		t.Fatalf("delete event: %v", err)
	}
	if !found {
		t.Error("expected delete to report an existing row")
	}

	got, err := s.GetByID(event.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}

	found, err = s.Delete(event.ID)
	if err != nil {
		t.Fatalf("delete again: %v", err)
	}
	if found {
		t.Error("second delete should report no row")
	}
}

func TestWritesTouchCalendar(t *testing.T) {
	db := setupTestDB(t)
	s := NewEventStore(db)
	ss := NewSettingsStore(db)

	before, err := ss.CalendarUpdated()
	if err != nil {
		t.Fatalf("calendar updated: %v", err)
	}
	if !before.IsZero() {
		t.Errorf("initial marker = %v, want zero", before)
	}

	event, err := s.Create(timedEvent("A", "2024-06-01", "10:00:00", "11:00:00"))
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	afterCreate, _ := ss.CalendarUpdated()
	if !afterCreate.After(before) {
		t.Errorf("marker after create = %v, want after %v", afterCreate, before)
	}

	event.Title = "B"
	if _, err := s.Update(*event); err != nil {
		t.Fatalf("update event: %v", err)
	}
	afterUpdate, _ := ss.CalendarUpdated()
	if !afterUpdate.After(afterCreate) {
		t.Errorf("marker after update = %v, want after %v", afterUpdate, afterCreate)
	}

	if _, err := s.Delete(event.ID); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	afterDelete, _ := ss.CalendarUpdated()
	if !afterDelete.After(afterUpdate) {
		t.Errorf("marker after delete = %v, want after %v", afterDelete, afterUpdate)
	}
}
