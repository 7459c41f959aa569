package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/boardcal/internal/calendar"
	"github.com/dukerupert/boardcal/internal/normalize"
)

const maxBodyBytes = 64 << 10

type CalendarEventHandler struct {
	svc     *calendar.Service
	viewers *Viewers
	logger  *slog.Logger
}

func NewCalendarEventHandler(svc *calendar.Service, viewers *Viewers, logger *slog.Logger) *CalendarEventHandler {
	return &CalendarEventHandler{svc: svc, viewers: viewers, logger: logger.With("component", "handler")}
}

// eventForm is a decoded create or modify request. Keys other than the
// event attributes are date and time candidates.
type eventForm struct {
	input       calendar.EventInput
	hasLocation bool
	location    string
	hasGroups   bool
}

// readEventForm accepts a JSON object or a form body. Legacy attribute
// names are mapped to their canonical names.
func readEventForm(w http.ResponseWriter, r *http.Request) (eventForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	raw := make(map[string]string)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return eventForm{}, errors.New("invalid JSON")
		}
		for k, v := range body {
			raw[k] = jsonValue(v)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return eventForm{}, errors.New("invalid form")
		}
		for k, vs := range r.PostForm {
			raw[k] = strings.Join(vs, ",")
		}
	}

	var f eventForm
	f.input.Candidates = make(normalize.Candidates)
	for key, value := range raw {
		canonical, _ := calendar.CanonicalField(key)
		var err error
		switch canonical {
		case "title":
			f.input.Title = value
		case "location":
			f.hasLocation, f.location = true, value
		case "board_id":
			f.input.BoardID, err = parseID(key, value)
		case "topic_id":
			f.input.TopicID, err = parseID(key, value)
		case "msg_id":
			f.input.MsgID, err = parseID(key, value)
		case "timezone":
			f.input.Candidates["tz"] = value
		case "span":
			f.input.Candidates["span"] = value
		default:
			if strings.EqualFold(key, "allowed_groups") || strings.EqualFold(key, "groups") {
				f.hasGroups = true
				f.input.AllowedGroups, err = parseGroups(value)
			} else {
				f.input.Candidates[strings.ToLower(key)] = value
			}
		}
		if err != nil {
			return eventForm{}, err
		}
	}
	if f.hasLocation {
		f.input.Location = &f.location
	}
	if f.hasGroups && f.input.AllowedGroups == nil {
		f.input.AllowedGroups = []int64{}
	}
	return f, nil
}

// jsonValue renders a decoded JSON value as the string a form would carry.
func jsonValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, jsonValue(e))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func parseID(key, value string) (int64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return id, nil
}

func parseGroups(value string) ([]int64, error) {
	var out []int64
	for _, p := range strings.Split(value, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid group %q", p)
		}
		out = append(out, g)
	}
	return out, nil
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	v, err := h.viewers.Resolve(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if set, ok := v.Perms.(interface{ CanPost() bool }); !ok || !set.CanPost() {
		writeError(w, http.StatusForbidden, "not allowed to post events")
		return
	}

	form, err := readEventForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.svc.CreateEvent(form.input, v)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// Get returns one event. ?fields=a,b limits the response to those fields,
// accepting legacy names.
func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	v, err := h.viewers.Resolve(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	ev, err := h.svc.GetEvent(id, v)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if fields := r.URL.Query().Get("fields"); fields != "" {
		writeJSON(w, http.StatusOK, ev.Select(strings.Split(fields, ",")))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	v, err := h.viewers.Resolve(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	form, err := readEventForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.ModifyEvent(id, form.input, v); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	ev, err := h.svc.GetEvent(id, v)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	v, err := h.viewers.Resolve(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if err := h.svc.RemoveEvent(id, v); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Topic lists the events linked to topic {id}.
func (h *CalendarEventHandler) Topic(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid topic id")
		return
	}
	v, err := h.viewers.Resolve(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	events, err := h.svc.TopicEvents(id, v)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type rangeResponse struct {
	Start  string                 `json:"start"`
	End    string                 `json:"end"`
	Events calendar.OccurrenceMap `json:"events"`
}

// List returns the occurrences of [start, end] by day. Both default to the
// viewer's today.
func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	v, err := h.viewers.Resolve(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	low, high, ok := windowParams(w, r, h.svc.Today(v), 0)
	if !ok {
		return
	}

	m, err := h.svc.QueryRange(low, high, v)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if m == nil {
		m = calendar.OccurrenceMap{}
	}
	writeJSON(w, http.StatusOK, rangeResponse{
		Start:  low.Format("2006-01-02"),
		End:    high.Format("2006-01-02"),
		Events: m,
	})
}

// windowParams reads ?start= and ?end=. A missing start is today and a
// missing end is start plus defaultDays.
func windowParams(w http.ResponseWriter, r *http.Request, today time.Time, defaultDays int) (time.Time, time.Time, bool) {
	low, err := parseDateParam(r, "start", today)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	high, err := parseDateParam(r, "end", low.AddDate(0, 0, defaultDays))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return low, high, true
}
