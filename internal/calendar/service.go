package calendar

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/boardcal/internal/locale"
	"github.com/dukerupert/boardcal/internal/model"
	"github.com/dukerupert/boardcal/internal/normalize"
)

var (
	ErrNotFound      = errors.New("event not found")
	ErrMissingTitle  = errors.New("missing title")
	ErrForbidden     = errors.New("not allowed")
	ErrInvalidWindow = errors.New("invalid date window")
)

const (
	maxTitleLen    = 60
	maxLocationLen = 255
	recordTTL      = time.Minute
)

// EventStore is the persistence the service needs.
type EventStore interface {
	Create(e model.Stored) (*model.Stored, error)
	GetByID(id int64) (*model.Stored, error)
	ListOverlapping(low, high string, visible func(boardID int64) bool) ([]model.Stored, error)
	ListByTopic(topicID int64) ([]model.Stored, error)
	Update(e model.Stored) (*model.Stored, error)
	Delete(id int64) (bool, error)
}

type HolidaySource interface {
	ListInRange(low, high string) ([]model.Holiday, error)
}

type BirthdaySource interface {
	ListWithBirthdays() ([]model.Member, error)
}

// Notifier is told about every event write.
type Notifier interface {
	CalendarEventChanged(action string, id int64, startDate string)
}

// Viewer is who a request acts for.
type Viewer struct {
	MemberID int64
	Timezone string
	Language string
	Perms    Permissions
}

// Config holds the calendar settings.
type Config struct {
	SystemTimezone string
	WeekStart      time.Weekday
	MaxSpan        int
	MinYear        int
	MaxYear        int
	MaxListDays    int
	BaseURL        string
}

// Deps are the collaborators of a Service. Holidays, Birthdays, Modified
// and Notifier are optional.
type Deps struct {
	Events    EventStore
	Holidays  HolidaySource
	Birthdays BirthdaySource
	Modified  func() (time.Time, error)
	Catalog   ZoneCatalog
	Notifier  Notifier
	Logger    *slog.Logger
}

// EventInput carries a create or modify request. Candidates are the raw
// date and time fields. On modify an empty Title, nil Location and nil
// AllowedGroups keep the current values.
type EventInput struct {
	Title         string
	Location      *string
	BoardID       int64
	TopicID       int64
	MsgID         int64
	AllowedGroups []int64
	Candidates    normalize.Candidates
}

type loadedRecord struct {
	row model.Stored
	at  time.Time
}

// Service implements the calendar operations on top of storage.
type Service struct {
	deps   Deps
	cfg    Config
	links  Links
	server *time.Location
	logger *slog.Logger
	cache  *UpcomingCache
	now    func() time.Time

	mu     sync.Mutex
	loaded map[int64]loadedRecord
}

func NewService(deps Deps, cfg Config) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		deps:   deps,
		cfg:    cfg,
		links:  Links{BaseURL: cfg.BaseURL},
		server: resolveZone(deps.Catalog, cfg.SystemTimezone),
		logger: logger.With("component", "calendar"),
		now:    time.Now,
		loaded: make(map[int64]loadedRecord),
	}
	s.cache = NewUpcomingCache(s.snapshot, deps.Modified, s.server, s.logger)
	return s
}

func resolveZone(catalog ZoneCatalog, names ...string) *time.Location {
	f := Frame{Catalog: catalog}
	for _, n := range names {
		if loc, ok := f.zone(n); ok {
			return loc
		}
	}
	return time.UTC
}

// Cache exposes the upcoming cache for warming.
func (s *Service) Cache() *UpcomingCache {
	return s.cache
}

func (s *Service) frame(v Viewer) Frame {
	return Frame{
		Viewer:  resolveZone(s.deps.Catalog, v.Timezone, s.cfg.SystemTimezone),
		Catalog: s.deps.Catalog,
	}
}

// Today is the viewer's current date.
func (s *Service) Today(v Viewer) time.Time {
	return civil(s.now().In(s.frame(v).location()))
}

func (s *Service) defaults(v Viewer, base *normalize.Fields) normalize.Defaults {
	d := normalize.Defaults{
		Base:           base,
		ViewerTimezone: v.Timezone,
		SystemTimezone: s.cfg.SystemTimezone,
		MaxSpan:        s.cfg.MaxSpan,
		Now:            s.now(),
	}
	if v.Language != "" {
		d.Translator = locale.NewTranslator(v.Language)
	}
	if s.deps.Catalog != nil {
		d.Catalog = s.deps.Catalog
	}
	return d
}

func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// CreateEvent normalizes and stores a new event authored by v.
func (s *Service) CreateEvent(in EventInput, v Viewer) (int64, error) {
	title := clip(in.Title, maxTitleLen)
	if title == "" {
		return 0, ErrMissingTitle
	}

	fields, err := normalize.Normalize(in.Candidates, s.defaults(v, nil))
	if err != nil {
		return 0, err
	}

	row := model.Stored{
		BoardID:   in.BoardID,
		TopicID:   in.TopicID,
		MsgID:     in.MsgID,
		MemberID:  v.MemberID,
		Title:     title,
		StartDate: fields.StartDate,
		EndDate:   fields.EndDate,
		StartTime: fields.StartTime,
		EndTime:   fields.EndTime,
		Timezone:  fields.Timezone,
	}
	if in.Location != nil {
		row.Location = clip(*in.Location, maxLocationLen)
	}
	// Group lists only apply to events outside a board.
	if row.BoardID == 0 {
		row.AllowedGroups = in.AllowedGroups
	}

	created, err := s.deps.Events.Create(row)
	if err != nil {
		return 0, fmt.Errorf("create event: %w", err)
	}

	s.changed("created", created.ID, created.StartDate)
	s.logger.Info("calendar event created", "id", created.ID, "member_id", v.MemberID)
	return created.ID, nil
}

// ModifyEvent applies in to an existing event. Fields not present in the
// candidates keep their current values.
func (s *Service) ModifyEvent(id int64, in EventInput, v Viewer) error {
	row, err := s.load(id)
	if err != nil {
		return err
	}
	if err := s.authorizeEdit(*row, v); err != nil {
		return err
	}

	base := normalize.FromStored(*row)
	fields, err := normalize.Normalize(in.Candidates, s.defaults(v, &base))
	if err != nil {
		return err
	}

	updated := *row
	if t := clip(in.Title, maxTitleLen); t != "" {
		updated.Title = t
	}
	if in.Location != nil {
		updated.Location = clip(*in.Location, maxLocationLen)
	}
	if in.AllowedGroups != nil && updated.BoardID == 0 {
		updated.AllowedGroups = in.AllowedGroups
	}
	updated.StartDate = fields.StartDate
	updated.EndDate = fields.EndDate
	updated.StartTime = fields.StartTime
	updated.EndTime = fields.EndTime
	updated.Timezone = fields.Timezone

	saved, err := s.deps.Events.Update(updated)
	s.forget(id)
	if err != nil {
		return fmt.Errorf("modify event %d: %w", id, err)
	}
	if saved == nil {
		return ErrNotFound
	}

	s.changed("updated", id, saved.StartDate)
	s.logger.Info("calendar event modified", "id", id, "seq", saved.ModifiedSeq)
	return nil
}

// RemoveEvent deletes an event.
func (s *Service) RemoveEvent(id int64, v Viewer) error {
	row, err := s.load(id)
	if err != nil {
		return err
	}
	if err := s.authorizeEdit(*row, v); err != nil {
		return err
	}

	found, err := s.deps.Events.Delete(id)
	s.forget(id)
	if err != nil {
		return fmt.Errorf("remove event %d: %w", id, err)
	}
	if !found {
		return ErrNotFound
	}

	s.changed("deleted", id, row.StartDate)
	s.logger.Info("calendar event removed", "id", id)
	return nil
}

// GetEvent returns one event as v sees it. Events v may not see are
// reported as not found.
func (s *Service) GetEvent(id int64, v Viewer) (EventView, error) {
	row, err := s.load(id)
	if err != nil {
		return EventView{}, err
	}
	ev, err := Hydrate(*row, s.frame(v))
	if err != nil {
		return EventView{}, err
	}
	if v.Perms != nil && !Visible(ev, v.Perms) {
		return EventView{}, ErrNotFound
	}
	return Decorate(ev, v.Perms, s.links), nil
}

// TopicEvents returns the events linked to a topic that v may see, in
// creation order. Rows that fail to hydrate are skipped.
func (s *Service) TopicEvents(topicID int64, v Viewer) ([]EventView, error) {
	rows, err := s.deps.Events.ListByTopic(topicID)
	if err != nil {
		return nil, fmt.Errorf("topic %d events: %w", topicID, err)
	}

	frame := s.frame(v)
	out := make([]EventView, 0, len(rows))
	for _, row := range rows {
		ev, err := Hydrate(row, frame)
		if err != nil {
			s.logger.Debug("skipping broken event", "id", row.ID, "error", err)
			continue
		}
		if v.Perms != nil && !Visible(ev, v.Perms) {
			continue
		}
		out = append(out, Decorate(ev, v.Perms, s.links))
	}
	return out, nil
}

func (s *Service) authorizeEdit(row model.Stored, v Viewer) error {
	ev, err := Hydrate(row, s.frame(v))
	if err != nil {
		// A broken row can still be fixed or removed by someone allowed to.
		ev = model.Event{ID: row.ID, MemberID: row.MemberID, BoardID: row.BoardID, AllowedGroups: row.AllowedGroups}
	}
	if v.Perms == nil || !Visible(ev, v.Perms) {
		return ErrNotFound
	}
	if !v.Perms.CanEdit(ev) {
		return ErrForbidden
	}
	return nil
}

// load reads a row through the in-process record cache.
func (s *Service) load(id int64) (*model.Stored, error) {
	now := s.now()
	s.mu.Lock()
	rec, ok := s.loaded[id]
	s.mu.Unlock()
	if ok && now.Sub(rec.at) < recordTTL {
		row := rec.row
		return &row, nil
	}

	row, err := s.deps.Events.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("load event %d: %w", id, err)
	}
	if row == nil {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	s.loaded[id] = loadedRecord{row: *row, at: now}
	s.mu.Unlock()
	return row, nil
}

func (s *Service) forget(id int64) {
	s.mu.Lock()
	delete(s.loaded, id)
	s.mu.Unlock()
}

func (s *Service) changed(action string, id int64, startDate string) {
	s.cache.Invalidate()
	if s.deps.Notifier != nil {
		s.deps.Notifier.CalendarEventChanged(action, id, startDate)
	}
}

func (s *Service) checkWindow(low, high time.Time) error {
	if high.Before(low) {
		return fmt.Errorf("%w: end before start", ErrInvalidWindow)
	}
	if s.cfg.MaxListDays > 0 {
		if days := int(high.Sub(low).Hours()/24) + 1; days > s.cfg.MaxListDays {
			return fmt.Errorf("%w: %d days exceeds %d", ErrInvalidWindow, days, s.cfg.MaxListDays)
		}
	}
	return nil
}

// QueryRange returns the occurrences v may see on each day of [low, high].
func (s *Service) QueryRange(low, high time.Time, v Viewer) (OccurrenceMap, error) {
	low, high = civil(low), civil(high)
	if err := s.checkWindow(low, high); err != nil {
		return nil, err
	}
	return s.occurrences(low, high, v)
}

// fetchPadDays widens a query on stored dates. Stored dates are in the
// event's zone, and two zones can be up to 26 hours apart, so an event's
// stored date can sit two days away from the viewer's date.
const fetchPadDays = 2

// fetch loads the rows whose stored dates overlap [low, high] widened by
// fetchPadDays on each side.
func (s *Service) fetch(low, high time.Time, visibleBoard func(int64) bool) ([]model.Stored, error) {
	return s.deps.Events.ListOverlapping(
		low.AddDate(0, 0, -fetchPadDays).Format(model.DateLayout),
		high.AddDate(0, 0, fetchPadDays).Format(model.DateLayout),
		visibleBoard,
	)
}

func (s *Service) occurrences(low, high time.Time, v Viewer) (OccurrenceMap, error) {
	var visibleBoard func(int64) bool
	if v.Perms != nil {
		visibleBoard = v.Perms.CanViewBoard
	}
	rows, err := s.fetch(low, high, visibleBoard)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	x := Expander{Frame: s.frame(v), Logger: s.logger}
	m := x.Expand(rows, low, high)
	if v.Perms == nil {
		return m, nil
	}
	return visibleOnly(m, v.Perms, s.links), nil
}

// visibleOnly drops what perms may not see and decorates the rest. m is
// not modified.
func visibleOnly(m OccurrenceMap, perms Permissions, links Links) OccurrenceMap {
	out := make(OccurrenceMap, len(m))
	for d, occ := range m {
		var kept []model.Occurrence
		for _, o := range occ {
			if !Visible(o.Event, perms) {
				continue
			}
			decorateOccurrence(&o, perms, links)
			kept = append(kept, o)
		}
		if len(kept) > 0 {
			out[d] = kept
		}
	}
	out.markLast()
	return out
}

// HolidaysInRange looks up holidays for [low, high].
func (s *Service) HolidaysInRange(low, high time.Time) (DayStrings, error) {
	if s.deps.Holidays == nil {
		return DayStrings{}, nil
	}
	rows, err := s.deps.Holidays.ListInRange(low.Format(model.DateLayout), high.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("query holidays: %w", err)
	}
	return HolidaysInRange(rows, low, high), nil
}

// BirthdaysInRange looks up member birthdays for [low, high].
func (s *Service) BirthdaysInRange(low, high time.Time) (DayStrings, error) {
	if s.deps.Birthdays == nil {
		return DayStrings{}, nil
	}
	members, err := s.deps.Birthdays.ListWithBirthdays()
	if err != nil {
		return nil, fmt.Errorf("query birthdays: %w", err)
	}
	return BirthdaysInRange(members, low, high), nil
}

// Include selects the kinds of content a view shows.
type Include struct {
	Events    bool
	Holidays  bool
	Birthdays bool
}

func (s *Service) dayData(low, high time.Time, v Viewer, inc Include) (DayData, error) {
	var data DayData
	var err error
	if inc.Events {
		if data.Events, err = s.occurrences(low, high, v); err != nil {
			return DayData{}, err
		}
	}
	if inc.Holidays {
		if data.Holidays, err = s.HolidaysInRange(low, high); err != nil {
			return DayData{}, err
		}
	}
	if inc.Birthdays {
		if data.Birthdays, err = s.BirthdaysInRange(low, high); err != nil {
			return DayData{}, err
		}
	}
	return data, nil
}

func (s *Service) gridOptions() GridOptions {
	return GridOptions{WeekStart: s.cfg.WeekStart, MinYear: s.cfg.MinYear, MaxYear: s.cfg.MaxYear}
}

func (s *Service) checkYear(year int) error {
	if !s.gridOptions().yearAllowed(year) {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidWindow, year)
	}
	return nil
}

// BuildMonthGrid builds the month containing anchor.
func (s *Service) BuildMonthGrid(anchor time.Time, v Viewer, inc Include) (MonthGrid, error) {
	if err := s.checkYear(anchor.Year()); err != nil {
		return MonthGrid{}, err
	}
	low, high := MonthWindow(anchor.Year(), anchor.Month())
	data, err := s.dayData(low, high, v, inc)
	if err != nil {
		return MonthGrid{}, err
	}
	return BuildMonth(anchor.Year(), anchor.Month(), s.Today(v), s.gridOptions(), data), nil
}

// BuildWeekGrid builds the week containing anchor.
func (s *Service) BuildWeekGrid(anchor time.Time, v Viewer, inc Include) (WeekGrid, error) {
	if err := s.checkYear(anchor.Year()); err != nil {
		return WeekGrid{}, err
	}
	low, high := WeekWindow(anchor, s.cfg.WeekStart)
	data, err := s.dayData(low, high, v, inc)
	if err != nil {
		return WeekGrid{}, err
	}
	return BuildWeek(anchor, s.Today(v), s.gridOptions(), data), nil
}

// BuildListView builds a flat list of [low, high].
func (s *Service) BuildListView(low, high time.Time, v Viewer, inc Include) (ListView, error) {
	low, high = civil(low), civil(high)
	if err := s.checkWindow(low, high); err != nil {
		return ListView{}, err
	}
	data, err := s.dayData(low, high, v, inc)
	if err != nil {
		return ListView{}, err
	}
	return BuildList(low, high, s.Today(v), data), nil
}

// GetUpcoming returns the next opts.Days days for v from the shared
// snapshot.
func (s *Service) GetUpcoming(opts UpcomingOptions, v Viewer) (Upcoming, error) {
	if opts.Days < 1 {
		opts.Days = 1
	}
	snap, err := s.cache.Get(opts.Days)
	if err != nil {
		return Upcoming{}, err
	}
	perms := v.Perms
	if perms == nil {
		perms = noPerms{}
	}
	return Personalize(snap, opts, s.Today(v), perms, s.frame(v), s.links), nil
}

// snapshot computes the viewer-independent data for [today-1, today+days]
// in the server zone. Event rows are kept when the server-zone expansion
// places them within a day of that window, which covers every viewer
// whose date is at most a day off the server's.
func (s *Service) snapshot(today time.Time, days int) (*Snapshot, error) {
	low := today.AddDate(0, 0, -1)
	high := today.AddDate(0, 0, days)

	rows, err := s.fetch(low.AddDate(0, 0, -1), high.AddDate(0, 0, 1), nil)
	if err != nil {
		return nil, fmt.Errorf("query upcoming events: %w", err)
	}
	x := Expander{Frame: Frame{Viewer: s.server, Catalog: s.deps.Catalog}, Logger: s.logger}
	placed := x.Expand(rows, low.AddDate(0, 0, -1), high.AddDate(0, 0, 1))

	holidays, err := s.HolidaysInRange(low, high)
	if err != nil {
		return nil, err
	}
	birthdays, err := s.BirthdaysInRange(low, high)
	if err != nil {
		return nil, err
	}

	kept := placed.Rows(rows)
	s.logger.Debug("upcoming snapshot computed", "today", today.Format(model.DateLayout), "days", days, "events", len(kept))
	return &Snapshot{
		Low:       low,
		High:      high,
		Rows:      kept,
		Holidays:  holidays,
		Birthdays: birthdays,
	}, nil
}

// noPerms sees only unrestricted events and edits nothing.
type noPerms struct{}

func (noPerms) IsAdmin() bool { return false }
func (noPerms) CanViewBoard(int64) bool { return false }
func (noPerms) IsInAnyGroup([]int64) bool { return false }
func (noPerms) CanEdit(model.Event) bool { return false }
