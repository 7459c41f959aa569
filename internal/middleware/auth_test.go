package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/dukerupert/boardcal/internal/auth"
	"github.com/dukerupert/boardcal/internal/database"
	"github.com/dukerupert/boardcal/internal/model"
	"github.com/dukerupert/boardcal/internal/store"
)

func setupMembers(t *testing.T) *store.MemberStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewMemberStore(db)
}

func issue(t *testing.T, members *store.MemberStore, name string) (int64, string) {
	t.Helper()
	m, err := members.Create(model.Member{Name: name})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	token, hash, err := auth.IssueToken(m.ID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if err := members.SetTokenHash(m.ID, hash); err != nil {
		t.Fatalf("SetTokenHash: %v", err)
	}
	return m.ID, token
}

func captureIdentity(t *testing.T, got *auth.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected Identity in request context")
		}
		*got = id
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateGuest(t *testing.T) {
	members := setupMembers(t)
	var got auth.Identity
	handler := Authenticate(members, slog.Default())(captureIdentity(t, &got))

	req := httptest.NewRequest("GET", "/api/calendar/upcoming", nil)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")
	req.Header.Set("X-Timezone", "Europe/Berlin")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !got.IsGuest() {
		t.Errorf("MemberID = %d, want guest", got.MemberID)
	}
	if got.Language != "de-DE,de;q=0.9" || got.Timezone != "Europe/Berlin" {
		t.Errorf("Identity = %+v", got)
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	members := setupMembers(t)
	id, token := issue(t, members, "Alice")

	var got auth.Identity
	handler := Authenticate(members, slog.Default())(captureIdentity(t, &got))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.MemberID != id {
		t.Errorf("MemberID = %d, want %d", got.MemberID, id)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	members := setupMembers(t)
	_, token := issue(t, members, "Alice")
	noToken, err := members.Create(model.Member{Name: "Bob"})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	_, secret, _ := auth.ParseToken(token)

	tests := []struct {
		name   string
		header string
	}{
		{"basic scheme", "Basic YWxpY2U6cHc="},
		{"malformed", "Bearer nonsense"},
		{"wrong secret", "Bearer " + token + "x"},
		{"unknown member", "Bearer 999." + secret},
		{"member without token", "Bearer " + strconv.FormatInt(noToken.ID, 10) + "." + secret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Authenticate(members, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("should not reach handler")
			}))
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestRequireMember(t *testing.T) {
	handler := RequireMember(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{}))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("guest status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{MemberID: 3}))
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("member status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestRequestIDAndLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var seen string
	handler := RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.RequestID(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/events/9", nil))

	if seen == "" || rec.Header().Get("X-Request-ID") != seen {
		t.Errorf("request id = %q, header %q", seen, rec.Header().Get("X-Request-ID"))
	}
	out := buf.String()
	for _, want := range []string{"level=WARN", "status=404", "path=/api/events/9", "request_id=" + seen} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}

	// A valid incoming id is kept.
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "7f1c1d1e-0000-4000-8000-000000000001")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "7f1c1d1e-0000-4000-8000-000000000001" {
		t.Errorf("request id = %q, want the incoming one", seen)
	}
}
