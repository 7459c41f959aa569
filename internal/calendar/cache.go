package calendar

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/boardcal/internal/model"
)

const snapshotTTL = time.Hour

// Snapshot is the viewer-independent half of the upcoming cache: the
// holidays and birthdays in [Today-1, Today+Days] and the stored rows of
// every event that can land in a viewer's window near that range.
// Rows stay unexpanded so each viewer walks days in their own zone.
// A stored snapshot is never mutated.
type Snapshot struct {
	Today     time.Time
	Days      int
	Low       time.Time
	High      time.Time
	Rows      []model.Stored
	Holidays  DayStrings
	Birthdays DayStrings
	WrittenAt time.Time
}

// SnapshotFunc computes a snapshot for the server-relative date today.
type SnapshotFunc func(today time.Time, days int) (*Snapshot, error)

// UpcomingCache holds one snapshot per day count. A snapshot is reused only
// while the server date is unchanged, nothing has been written to the
// calendar since it was computed, and it is less than an hour old.
// Concurrent misses may compute the same snapshot more than once; the last
// writer wins.
type UpcomingCache struct {
	mu      sync.RWMutex
	entries map[int]*Snapshot

	compute  SnapshotFunc
	modified func() (time.Time, error)
	loc      *time.Location
	logger   *slog.Logger

	now func() time.Time
	ttl time.Duration
}

// NewUpcomingCache creates a cache. modified reports when the calendar
// last changed; loc is the server zone that decides when a day rolls over.
func NewUpcomingCache(compute SnapshotFunc, modified func() (time.Time, error), loc *time.Location, logger *slog.Logger) *UpcomingCache {
	if loc == nil {
		loc = time.UTC
	}
	return &UpcomingCache{
		entries:  make(map[int]*Snapshot),
		compute:  compute,
		modified: modified,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
		ttl:      snapshotTTL,
	}
}

// Get returns a valid snapshot for days, computing it if needed.
func (c *UpcomingCache) Get(days int) (*Snapshot, error) {
	now := c.now()
	today := civil(now.In(c.loc))

	c.mu.RLock()
	snap := c.entries[days]
	c.mu.RUnlock()

	if snap != nil && c.valid(snap, today, now) {
		return snap, nil
	}
	return c.refresh(today, days, now)
}

// Warm recomputes the snapshot for days unconditionally.
func (c *UpcomingCache) Warm(days int) error {
	now := c.now()
	_, err := c.refresh(civil(now.In(c.loc)), days, now)
	return err
}

// Invalidate drops every snapshot.
func (c *UpcomingCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[int]*Snapshot)
	c.mu.Unlock()
}

// refresh stamps the snapshot with the time computation started, so a
// write that lands mid-computation still invalidates it.
func (c *UpcomingCache) refresh(today time.Time, days int, started time.Time) (*Snapshot, error) {
	snap, err := c.compute(today, days)
	if err != nil {
		return nil, err
	}
	snap.Today = today
	snap.Days = days
	snap.WrittenAt = started

	c.mu.Lock()
	c.entries[days] = snap
	c.mu.Unlock()
	return snap, nil
}

func (c *UpcomingCache) valid(s *Snapshot, today, now time.Time) bool {
	if !s.Today.Equal(today) {
		return false
	}
	if now.Sub(s.WrittenAt) >= c.ttl {
		return false
	}
	if c.modified == nil {
		return true
	}
	last, err := c.modified()
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("read calendar last modified", "error", err)
		}
		return false
	}
	return !last.After(s.WrittenAt)
}

// UpcomingOptions select what GetUpcoming returns.
type UpcomingOptions struct {
	Days             int
	IncludeHolidays  bool
	IncludeBirthdays bool
	IncludeEvents    bool
}

type Upcoming struct {
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Events    OccurrenceMap `json:"events,omitempty"`
	Holidays  DayStrings    `json:"holidays,omitempty"`
	Birthdays DayStrings    `json:"birthdays,omitempty"`
}

// Personalize derives one viewer's upcoming list from a snapshot without
// touching storage. It expands the snapshot rows over the viewer's
// [today, today+Days-1] in the viewer's frame, drops events the viewer may
// not see, marks what the viewer can edit and collapses repeats of the
// same (topic, title).
func Personalize(s *Snapshot, opts UpcomingOptions, today time.Time, perms Permissions, frame Frame, links Links) Upcoming {
	low := civil(today)
	high := low.AddDate(0, 0, opts.Days-1)
	if high.Before(low) {
		high = low
	}

	u := Upcoming{
		Start: low.Format(model.DateLayout),
		End:   high.Format(model.DateLayout),
	}

	if opts.IncludeEvents {
		x := Expander{Frame: frame}
		u.Events = Dedup(visibleOnly(x.Expand(s.Rows, low, high), perms, links))
	}
	if opts.IncludeHolidays {
		u.Holidays = s.Holidays.Trim(low, high)
	}
	if opts.IncludeBirthdays {
		u.Birthdays = s.Birthdays.Trim(low, high)
	}
	return u
}
