package handler

import (
	"context"
	"net/http"
	"time"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports database reachability, the calendar's last change and
// the number of live subscribers.
func Health(db Pinger, modified func() (time.Time, error), clients func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}

		resp := map[string]any{"status": "ok"}
		if modified != nil {
			if t, err := modified(); err == nil && !t.IsZero() {
				resp["calendar_updated"] = t.UTC().Format(time.RFC3339)
			}
		}
		if clients != nil {
			resp["clients"] = clients()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
