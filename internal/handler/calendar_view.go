package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/boardcal/internal/calendar"
	"github.com/dukerupert/boardcal/internal/ical"
)

// ViewDefaults apply when a request leaves a setting out.
type ViewDefaults struct {
	UpcomingDays  int
	ListDays      int
	ShowEvents    bool
	ShowHolidays  bool
	ShowBirthdays bool
	BaseURL       string
}

type CalendarHandler struct {
	svc      *calendar.Service
	viewers  *Viewers
	defaults ViewDefaults
	logger   *slog.Logger
	now      func() time.Time
}

func NewCalendarHandler(svc *calendar.Service, viewers *Viewers, defaults ViewDefaults, logger *slog.Logger) *CalendarHandler {
	if defaults.UpcomingDays < 1 {
		defaults.UpcomingDays = 7
	}
	if defaults.ListDays < 1 {
		defaults.ListDays = 30
	}
	return &CalendarHandler{
		svc:      svc,
		viewers:  viewers,
		defaults: defaults,
		logger:   logger.With("component", "handler"),
		now:      time.Now,
	}
}

func (h *CalendarHandler) include(r *http.Request) calendar.Include {
	return calendar.Include{
		Events:    parseBoolParam(r, "events", h.defaults.ShowEvents),
		Holidays:  parseBoolParam(r, "holidays", h.defaults.ShowHolidays),
		Birthdays: parseBoolParam(r, "birthdays", h.defaults.ShowBirthdays),
	}
}

// Month serves ?year=&month=, defaulting to the viewer's current month.
func (h *CalendarHandler) Month(w http.ResponseWriter, r *http.Request) {
	v, err := h.viewers.Resolve(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	today := h.svc.Today(v)

	year, err := parseIntParam(r, "year", today.Year())
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be a number")
		return
	}
	month, err := parseIntParam(r, "month", int(today.Month()))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be 1-12")
		return
	}

	anchor := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	g, err := h.svc.BuildMonthGrid(anchor, v, h.include(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Week serves the week containing ?date=.
func (h *CalendarHandler) Week(w http.ResponseWriter, r *http.Request) {
	v, err := h.viewers.Resolve(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	anchor, err := parseDateParam(r, "date", h.svc.Today(v))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	g, err := h.svc.BuildWeekGrid(anchor, v, h.include(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	v, err := h.viewers.Resolve(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	low, high, ok := windowParams(w, r, h.svc.Today(v), h.defaults.ListDays-1)
	if !ok {
		return
	}

	l, err := h.svc.BuildListView(low, high, v, h.include(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Upcoming serves the next ?days= days from the shared snapshot.
func (h *CalendarHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	v, err := h.viewers.Resolve(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	days, err := parseIntParam(r, "days", h.defaults.UpcomingDays)
	if err != nil || days < 1 || days > 366 {
		writeError(w, http.StatusBadRequest, "days must be 1-366")
		return
	}

	inc := h.include(r)
	u, err := h.svc.GetUpcoming(calendar.UpcomingOptions{
		Days:             days,
		IncludeEvents:    inc.Events,
		IncludeHolidays:  inc.Holidays,
		IncludeBirthdays: inc.Birthdays,
	}, v)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Export serves [start, end] as an iCalendar file.
func (h *CalendarHandler) Export(w http.ResponseWriter, r *http.Request) {
	v, err := h.viewers.Resolve(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	low, high, ok := windowParams(w, r, h.svc.Today(v), h.defaults.ListDays-1)
	if !ok {
		return
	}

	m, err := h.svc.QueryRange(low, high, v)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="calendar-%s.ics"`, low.Format("20060102")))
	if _, err := ical.Export(w, m, ical.ExportOptions{BaseURL: h.defaults.BaseURL, Now: h.now()}); err != nil {
		h.logger.Error("export calendar", "error", err)
	}
}
