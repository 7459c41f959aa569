package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/boardcal/internal/model"
)

// Permissions is what the calendar needs to know about one viewer.
type Permissions interface {
	IsAdmin() bool
	CanViewBoard(boardID int64) bool
	IsInAnyGroup(groups []int64) bool
	CanEdit(ev model.Event) bool
}

// Visible reports whether perms may see ev. Board-linked events follow the
// board; unlinked events follow their group list, where an empty list
// means everyone.
func Visible(ev model.Event, perms Permissions) bool {
	if perms.IsAdmin() {
		return true
	}
	if ev.BoardID > 0 {
		return perms.CanViewBoard(ev.BoardID)
	}
	return len(ev.AllowedGroups) == 0 || perms.IsInAnyGroup(ev.AllowedGroups)
}

// Span is the inclusive number of days the event covers in its own zone.
func Span(ev model.Event) int {
	start, err1 := time.Parse(model.DateLayout, ev.Start.DateOrig)
	end, err2 := time.Parse(model.DateLayout, ev.End.DateOrig)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Links builds the URLs attached to an event.
type Links struct {
	BaseURL string
}

// Href points at the topic the event belongs to, if any.
func (l Links) Href(ev model.Event) string {
	if ev.TopicID <= 0 {
		return ""
	}
	return fmt.Sprintf("%s/topics/%d", strings.TrimRight(l.BaseURL, "/"), ev.TopicID)
}

// Link points at the event itself.
func (l Links) Link(ev model.Event) string {
	if !ev.IsPersisted() {
		return ""
	}
	return fmt.Sprintf("%s/api/events/%d", strings.TrimRight(l.BaseURL, "/"), ev.ID)
}

// EventView is an event decorated with the fields computed on read.
type EventView struct {
	model.Event
	Span    int    `json:"span"`
	Href    string `json:"href,omitempty"`
	Link    string `json:"link,omitempty"`
	CanEdit bool   `json:"can_edit"`
}

// Decorate computes the read-only fields for one viewer. perms may be nil,
// in which case nothing is editable.
func Decorate(ev model.Event, perms Permissions, links Links) EventView {
	v := EventView{
		Event: ev,
		Span:  Span(ev),
		Href:  links.Href(ev),
		Link:  links.Link(ev),
	}
	if perms != nil {
		v.CanEdit = perms.CanEdit(ev)
	}
	return v
}

func decorateOccurrence(o *model.Occurrence, perms Permissions, links Links) {
	o.CanEdit = perms.CanEdit(o.Event)
	o.Href = links.Href(o.Event)
	o.Link = links.Link(o.Event)
}

// fieldAliases maps legacy and alternate field names to their canonical
// names. Several legacy spellings address the same attribute.
var fieldAliases = map[string]string{
	"id":             "id",
	"id_event":       "id",
	"title":          "title",
	"location":       "location",
	"board":          "board_id",
	"id_board":       "board_id",
	"board_id":       "board_id",
	"topic":          "topic_id",
	"id_topic":       "topic_id",
	"topic_id":       "topic_id",
	"msg":            "msg_id",
	"id_first_msg":   "msg_id",
	"msg_id":         "msg_id",
	"member":         "member_id",
	"id_member":      "member_id",
	"poster":         "member_id",
	"member_id":      "member_id",
	"start":          "start",
	"end":            "end",
	"start_date":     "start_date",
	"end_date":       "end_date",
	"start_time":     "start_time",
	"end_time":       "end_time",
	"timezone":       "timezone",
	"tz":             "timezone",
	"tz_abbrev":      "tz_abbrev",
	"allday":         "allday",
	"span":           "span",
	"num_days":       "span",
	"href":           "href",
	"link":           "link",
	"can_edit":       "can_edit",
	"modified_seq":   "modified_seq",
	"groups":         "allowed_groups",
	"allowed_groups": "allowed_groups",
}

// CanonicalField returns the canonical name for a field or alias.
func CanonicalField(name string) (string, bool) {
	c, ok := fieldAliases[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Field reads one field by canonical name or alias. Stored attributes come
// from the event; span, href, link and can_edit are the computed ones.
func (v EventView) Field(name string) (any, bool) {
	canonical, ok := CanonicalField(name)
	if !ok {
		return nil, false
	}
	switch canonical {
	case "id":
		return v.ID, true
	case "title":
		return v.Title, true
	case "location":
		return v.Location, true
	case "board_id":
		return v.BoardID, true
	case "topic_id":
		return v.TopicID, true
	case "msg_id":
		return v.MsgID, true
	case "member_id":
		return v.MemberID, true
	case "start":
		return v.Start, true
	case "end":
		return v.End, true
	case "start_date":
		return v.Start.DateOrig, true
	case "end_date":
		return v.End.DateOrig, true
	case "start_time":
		if v.AllDay {
			return "", true
		}
		return v.Start.TimeOrig, true
	case "end_time":
		if v.AllDay {
			return "", true
		}
		return v.End.TimeOrig, true
	case "timezone":
		return v.Start.Timezone, true
	case "tz_abbrev":
		return v.Start.TZAbbrev, true
	case "allday":
		return v.AllDay, true
	case "span":
		return v.Span, true
	case "href":
		return v.Href, true
	case "link":
		return v.Link, true
	case "can_edit":
		return v.CanEdit, true
	case "modified_seq":
		return v.ModifiedSeq, true
	case "allowed_groups":
		return v.AllowedGroups, true
	}
	return nil, false
}

// Select returns the requested fields keyed by the names the caller used.
// Unknown names are skipped.
func (v EventView) Select(names []string) map[string]any {
	out := make(map[string]any, len(names))
	for _, n := range names {
		if val, ok := v.Field(n); ok {
			out[n] = val
		}
	}
	return out
}
