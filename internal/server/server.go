// Package server wires storage, the calendar service and the HTTP surface.
package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/boardcal/internal/calendar"
	"github.com/dukerupert/boardcal/internal/config"
	"github.com/dukerupert/boardcal/internal/handler"
	"github.com/dukerupert/boardcal/internal/middleware"
	"github.com/dukerupert/boardcal/internal/permission"
	"github.com/dukerupert/boardcal/internal/scheduler"
	"github.com/dukerupert/boardcal/internal/store"
	"github.com/dukerupert/boardcal/internal/tz"
	ws "github.com/dukerupert/boardcal/internal/websocket"
)

const (
	writeLimit  = 30
	writeWindow = time.Minute
)

type Server struct {
	db          *sql.DB
	cfg         *config.Config
	hub         *ws.Hub
	service     *calendar.Service
	settings    *store.SettingsStore
	members     *store.MemberStore
	eventH      *handler.CalendarEventHandler
	calendarH   *handler.CalendarHandler
	rateLimiter *middleware.RateLimiter
	scheduler   *scheduler.Scheduler
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger)
	catalog := tz.NewCatalog()

	eventStore := store.NewEventStore(db)
	holidayStore := store.NewHolidayStore(db)
	memberStore := store.NewMemberStore(db)
	boardStore := store.NewBoardStore(db)
	settingsStore := store.NewSettingsStore(db)

	svc := calendar.NewService(calendar.Deps{
		Events:    eventStore,
		Holidays:  holidayStore,
		Birthdays: memberStore,
		Modified:  settingsStore.CalendarUpdated,
		Catalog:   catalog,
		Notifier:  hub,
		Logger:    logger,
	}, calendar.Config{
		SystemTimezone: cfg.DefaultTimezone,
		WeekStart:      cfg.Weekday(),
		MaxSpan:        cfg.MaxSpan,
		MinYear:        cfg.MinYear,
		MaxYear:        cfg.MaxYear,
		MaxListDays:    cfg.MaxListDays,
		BaseURL:        cfg.BaseURL,
	})

	sched, err := scheduler.New(svc.Cache(), cfg.WarmCron, cfg.UpcomingDays, catalog.Resolve(cfg.DefaultTimezone), logger)
	if err != nil {
		return nil, err
	}

	viewers := handler.NewViewers(permission.NewChecker(memberStore, boardStore))
	views := handler.ViewDefaults{
		UpcomingDays:  cfg.UpcomingDays,
		ListDays:      30,
		ShowEvents:    cfg.ShowEvents,
		ShowHolidays:  cfg.ShowHolidays,
		ShowBirthdays: cfg.ShowBirthdays,
		BaseURL:       cfg.BaseURL,
	}

	return &Server{
		db:          db,
		cfg:         cfg,
		hub:         hub,
		service:     svc,
		settings:    settingsStore,
		members:     memberStore,
		eventH:      handler.NewCalendarEventHandler(svc, viewers, logger),
		calendarH:   handler.NewCalendarHandler(svc, viewers, views, logger),
		rateLimiter: middleware.NewRateLimiter(writeLimit, writeWindow),
		scheduler:   sched,
		logger:      logger,
	}, nil
}

// Service exposes the calendar service for the CLI.
func (s *Server) Service() *calendar.Service {
	return s.service
}

// Start launches the background jobs: the snapshot warm-up and rate
// limiter cleanup. They stop when ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	if err := s.service.Cache().Warm(s.cfg.UpcomingDays); err != nil {
		s.logger.Warn("initial snapshot warm-up failed", "error", err)
	}
	s.scheduler.Start(ctx)
	go s.rateLimiter.RunCleanup(ctx)
}

// Stop waits for the scheduler to finish.
func (s *Server) Stop() {
	s.scheduler.Stop()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.Health(s.db, s.settings.CalendarUpdated, s.hub.ClientCount))
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.AllowedOrigins))

	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.Handle("POST /api/events", s.memberWrite(s.eventH.Create))
	mux.Handle("PUT /api/events/{id}", s.memberWrite(s.eventH.Update))
	mux.Handle("DELETE /api/events/{id}", s.memberWrite(s.eventH.Delete))
	mux.HandleFunc("GET /api/topics/{id}/events", s.eventH.Topic)

	mux.HandleFunc("GET /api/calendar/month", s.calendarH.Month)
	mux.HandleFunc("GET /api/calendar/week", s.calendarH.Week)
	mux.HandleFunc("GET /api/calendar/list", s.calendarH.List)
	mux.HandleFunc("GET /api/calendar/upcoming", s.calendarH.Upcoming)
	mux.HandleFunc("GET /api/calendar/export.ics", s.calendarH.Export)

	var h http.Handler = mux
	h = middleware.Authenticate(s.members, s.logger.With("component", "auth"))(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.RequestID(h)
}

// memberWrite guards a write endpoint: members only, rate limited per
// client address.
func (s *Server) memberWrite(h http.HandlerFunc) http.Handler {
	limit := middleware.RateLimit(s.rateLimiter, middleware.RealIP)
	return limit(middleware.RequireMember(h))
}
