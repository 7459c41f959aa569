// Package handler exposes the calendar over JSON HTTP endpoints.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/boardcal/internal/auth"
	"github.com/dukerupert/boardcal/internal/calendar"
	"github.com/dukerupert/boardcal/internal/model"
	"github.com/dukerupert/boardcal/internal/normalize"
	"github.com/dukerupert/boardcal/internal/permission"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps calendar and normalization errors onto statuses.
// Anything unrecognized is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, calendar.ErrForbidden):
		writeError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, calendar.ErrMissingTitle),
		errors.Is(err, calendar.ErrInvalidWindow),
		errors.Is(err, normalize.ErrMissingStartDate),
		errors.Is(err, normalize.ErrInvalidDate),
		errors.Is(err, normalize.ErrInvalidTime):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("request failed", "path", r.URL.Path, "request_id", auth.RequestID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// parseDateParam reads a YYYY-MM-DD query parameter, falling back to def
// when it is absent.
func parseDateParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	return time.Parse(model.DateLayout, v)
}

func parseIntParam(r *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func parseBoolParam(r *http.Request, name string, def bool) bool {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// PermissionSource resolves a member's permission set.
type PermissionSource interface {
	For(memberID int64) (*permission.Set, error)
}

// Viewers turns the request identity into a calendar.Viewer.
type Viewers struct {
	perms PermissionSource
}

func NewViewers(perms PermissionSource) *Viewers {
	return &Viewers{perms: perms}
}

// Resolve builds the viewer of r. The X-Timezone header wins over the
// member's stored zone.
func (v *Viewers) Resolve(r *http.Request) (calendar.Viewer, error) {
	id, _ := auth.FromContext(r.Context())
	set, err := v.perms.For(id.MemberID)
	if err != nil {
		return calendar.Viewer{}, err
	}

	viewer := calendar.Viewer{
		MemberID: set.MemberID(),
		Timezone: id.Timezone,
		Language: id.Language,
		Perms:    set,
	}
	if viewer.Timezone == "" && set.Member() != nil {
		viewer.Timezone = set.Member().Timezone
	}
	return viewer, nil
}
