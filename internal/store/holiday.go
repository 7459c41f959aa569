package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/boardcal/internal/model"
)

type HolidayStore struct {
	db *sql.DB
}

func NewHolidayStore(db *sql.DB) *HolidayStore {
	return &HolidayStore{db: db}
}

func (s *HolidayStore) Create(eventDate, title string) (*model.Holiday, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO holidays (event_date, title) VALUES (?, ?)`, eventDate, title)
	if err != nil {
		return nil, fmt.Errorf("insert holiday: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := touchCalendar(tx); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &model.Holiday{ID: id, EventDate: eventDate, Title: title}, nil
}

// CreateMany inserts holidays that are not already present (same date and
// title). It returns how many rows were added.
func (s *HolidayStore) CreateMany(holidays []model.Holiday) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, h := range holidays {
		result, err := tx.Exec(
			`INSERT INTO holidays (event_date, title)
			 SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM holidays WHERE event_date = ? AND title = ?)`,
			h.EventDate, h.Title, h.EventDate, h.Title,
		)
		if err != nil {
			return 0, fmt.Errorf("insert holiday: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		added += int(n)
	}
	if added > 0 {
		if err := touchCalendar(tx); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

// ListInRange returns holidays dated within [low, high] plus every
// annually recurring holiday, whatever its stored day.
func (s *HolidayStore) ListInRange(low, high string) ([]model.Holiday, error) {
	rows, err := s.db.Query(
		`SELECT id, event_date, title FROM holidays
		 WHERE (event_date BETWEEN ? AND ?) OR event_date LIKE '1004-%'
		 ORDER BY event_date, id`,
		low, high,
	)
	if err != nil {
		return nil, fmt.Errorf("query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []model.Holiday
	for rows.Next() {
		var h model.Holiday
		if err := rows.Scan(&h.ID, &h.EventDate, &h.Title); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (s *HolidayStore) Delete(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM holidays WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	if err := touchCalendar(tx); err != nil {
		return err
	}
	return tx.Commit()
}
