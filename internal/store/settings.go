package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// CalendarUpdatedKey holds the unix-nanosecond time of the last write to
// events or holidays.
const CalendarUpdatedKey = "calendar_updated"

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// CalendarUpdated returns when events or holidays last changed. The zero
// time means never.
func (s *SettingsStore) CalendarUpdated() (time.Time, error) {
	v, err := s.Get(CalendarUpdatedKey)
	if err != nil {
		return time.Time{}, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", CalendarUpdatedKey, err)
	}
	if n == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, n), nil
}

// touchCalendar bumps the calendar last-modified marker. It never moves the marker backwards, even if the wall clock does.
func touchCalendar(ex execer) error {
	now := time.Now()
	_, err := ex.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = CAST(MAX(CAST(settings.value AS INTEGER) + 1, CAST(excluded.value AS INTEGER)) AS TEXT),
		   updated_at = excluded.updated_at`,
		CalendarUpdatedKey, strconv.FormatInt(now.UnixNano(), 10), now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("touch calendar: %w", err)
	}
	return nil
}
