package calendar

import (
	"log/slog"
	"sort"
	"time"

	"github.com/dukerupert/boardcal/internal/model"
)

// OccurrenceMap holds the events active on each day, keyed by
// "2006-01-02" date.
type OccurrenceMap map[string][]model.Occurrence

// Dates returns the keys in ascending order.
func (m OccurrenceMap) Dates() []string {
	dates := make([]string, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Len counts occurrences across all days.
func (m OccurrenceMap) Len() int {
	n := 0
	for _, occ := range m {
		n += len(occ)
	}
	return n
}

// Rows returns the rows from candidates that have at least one
// occurrence in m, in candidate order.
func (m OccurrenceMap) Rows(candidates []model.Stored) []model.Stored {
	placed := make(map[int64]bool)
	for _, occ := range m {
		for _, o := range occ {
			placed[o.ID] = true
		}
	}
	var out []model.Stored
	for _, row := range candidates {
		if placed[row.ID] {
			out = append(out, row)
		}
	}
	return out
}

func (m OccurrenceMap) markLast() {
	for d, occ := range m {
		for i := range occ {
			occ[i].IsLast = i == len(occ)-1
		}
		m[d] = occ
	}
}

// Expander projects stored rows onto the days of a window.
type Expander struct {
	Frame  Frame
	Logger *slog.Logger
}

// Expand returns, for each day in [low, high] touched by an event, the
// occurrences active that day. Day boundaries are taken in the expander's
// frame: an event belongs to every viewer-local date from the date of its
// start instant to the date of its end instant. An end at exactly local
// midnight still counts that day. Rows that fail to hydrate are skipped.
// Within a day, rows keep their input order.
func (x Expander) Expand(rows []model.Stored, low, high time.Time) OccurrenceMap {
	lowDay, highDay := civil(low), civil(high)
	out := make(OccurrenceMap)
	if highDay.Before(lowDay) {
		return out
	}

	for _, row := range rows {
		ev, err := Hydrate(row, x.Frame)
		if err != nil {
			if x.Logger != nil {
				x.Logger.Debug("skip broken calendar event", "id", row.ID, "error", err)
			}
			continue
		}

		startDay, err1 := time.Parse(model.DateLayout, ev.Start.Date)
		endDay, err2 := time.Parse(model.DateLayout, ev.End.Date)
		if err1 != nil || err2 != nil {
			continue
		}
		if endDay.Before(lowDay) || startDay.After(highDay) {
			continue
		}

		cursor := startDay
		if cursor.Before(lowDay) {
			cursor = lowDay
		}
		last := endDay
		if last.After(highDay) {
			last = highDay
		}

		for ; !cursor.After(last); cursor = cursor.AddDate(0, 0, 1) {
			key := cursor.Format(model.DateLayout)
			out[key] = append(out[key], model.Occurrence{
				Event:       ev,
				Date:        key,
				StartsToday: cursor.Equal(startDay),
				EndsToday:   cursor.Equal(endDay),
			})
		}
	}

	out.markLast()
	return out
}

// Dedup keeps only the first occurrence of each (topic, title) pair,
// walking days in ascending order. Days left empty are dropped.
func Dedup(m OccurrenceMap) OccurrenceMap {
	type key struct {
		topic int64
		title string
	}
	seen := make(map[key]bool)
	out := make(OccurrenceMap, len(m))
	for _, d := range m.Dates() {
		var kept []model.Occurrence
		for _, o := range m[d] {
			k := key{o.TopicID, o.Title}
			if seen[k] {
				continue
			}
			seen[k] = true
			kept = append(kept, o)
		}
		if len(kept) > 0 {
			out[d] = kept
		}
	}
	out.markLast()
	return out
}

// civil drops the clock and zone, keeping the calendar date as UTC midnight.
func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(model.DateLayout, s)
	return t, err == nil
}
