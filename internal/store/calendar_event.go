package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/boardcal/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `e.id, e.board_id, e.topic_id, e.msg_id, e.member_id, e.title, e.location,
	e.start_date, e.end_date, e.start_time, e.end_time, e.timezone, e.modified_seq,
	(SELECT group_concat(g.group_id) FROM calendar_event_groups g WHERE g.event_id = e.id)`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Stored, error) {
	var e model.Stored
	var startTime, endTime, tz, groups sql.NullString

	err := scanner.Scan(
		&e.ID, &e.BoardID, &e.TopicID, &e.MsgID, &e.MemberID, &e.Title, &e.Location,
		&e.StartDate, &e.EndDate, &startTime, &endTime, &tz, &e.ModifiedSeq,
		&groups,
	)
	if err != nil {
		return nil, err
	}

	e.StartTime = startTime.String
	e.EndTime = endTime.String
	e.Timezone = tz.String
	e.AllowedGroups = parseIDList(groups.String)
	return &e, nil
}

// Create inserts the event with its group list and bumps the calendar
// last-modified marker in the same transaction.
func (s *EventStore) Create(e model.Stored) (*model.Stored, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO calendar_events (board_id, topic_id, msg_id, member_id, title, location,
		   start_date, end_date, start_time, end_time, timezone)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.BoardID, e.TopicID, e.MsgID, e.MemberID, e.Title, e.Location,
		e.StartDate, e.EndDate, nullIfEmpty(e.StartTime), nullIfEmpty(e.EndTime), nullIfEmpty(e.Timezone),
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := replaceGroups(tx, "calendar_event_groups", "event_id", id, e.AllowedGroups); err != nil {
		return nil, err
	}
	if err := touchCalendar(tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Stored, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM calendar_events e WHERE e.id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}
	return e, nil
}

// ListOverlapping returns events whose [start_date, end_date] intersects
// [low, high]. Dates are "2006-01-02" strings. When visible is non-nil,
// events linked to a board it rejects are dropped; unlinked events always
// pass. All-day events sort ahead of timed ones on the same start date.
func (s *EventStore) ListOverlapping(low, high string, visible func(boardID int64) bool) ([]model.Stored, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+`
		 FROM calendar_events e
		 WHERE e.start_date <= ? AND e.end_date >= ?
		 ORDER BY e.start_date ASC, e.start_time IS NOT NULL, e.start_time ASC, e.id ASC`,
		high, low,
	)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.Stored
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		if visible != nil && e.BoardID > 0 && !visible(e.BoardID) {
			continue
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ListByTopic returns the events attached to a topic.
func (s *EventStore) ListByTopic(topicID int64) ([]model.Stored, error) {
	rows, err := s.db.Query(
		`SELECT `+eventCols+` FROM calendar_events e WHERE e.topic_id = ? ORDER BY e.id`,
		topicID,
	)
	if err != nil {
		return nil, fmt.Errorf("query topic events: %w", err)
	}
	defer rows.Close()

	var events []model.Stored
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update rewrites the event and increments its modification sequence. It
// returns nil when no row has the given id.
func (s *EventStore) Update(e model.Stored) (*model.Stored, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE calendar_events
		 SET board_id = ?, topic_id = ?, msg_id = ?, title = ?, location = ?,
		     start_date = ?, end_date = ?, start_time = ?, end_time = ?, timezone = ?,
		     modified_seq = modified_seq + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		e.BoardID, e.TopicID, e.MsgID, e.Title, e.Location,
		e.StartDate, e.EndDate, nullIfEmpty(e.StartTime), nullIfEmpty(e.EndTime), nullIfEmpty(e.Timezone),
		e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	if err := replaceGroups(tx, "calendar_event_groups", "event_id", e.ID, e.AllowedGroups); err != nil {
		return nil, err
	}
	if err := touchCalendar(tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetByID(e.ID)
}

// Delete removes the event. It reports whether a row existed.
func (s *EventStore) Delete(id int64) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM calendar_event_groups WHERE event_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete event groups: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM calendar_events WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete calendar event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if err := touchCalendar(tx); err != nil {
		return false, err
	}
	return true, tx.Commit()
}
