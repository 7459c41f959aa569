package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/boardcal/internal/auth"
)

// TokenSource looks up the stored token hash of a member. An empty hash
// means the member has no token.
type TokenSource interface {
	TokenHash(memberID int64) (string, error)
}

// Authenticate resolves the bearer token into an auth.Identity. Requests
// without an Authorization header continue as guests; a header that does
// not verify is rejected.
func Authenticate(tokens TokenSource, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := auth.Identity{
				Timezone: strings.TrimSpace(r.Header.Get("X-Timezone")),
				Language: r.Header.Get("Accept-Language"),
			}

			if header := r.Header.Get("Authorization"); header != "" {
				token, ok := strings.CutPrefix(header, "Bearer ")
				if !ok {
					unauthorized(w)
					return
				}
				memberID, secret, err := auth.ParseToken(token)
				if err != nil {
					unauthorized(w)
					return
				}
				hash, err := tokens.TokenHash(memberID)
				if err != nil {
					logger.Error("token lookup", "member_id", memberID, "error", err)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
					return
				}
				if !auth.CheckSecret(hash, secret) {
					logger.Warn("token rejected", "member_id", memberID, "remote", RealIP(r))
					unauthorized(w)
					return
				}
				id.MemberID = memberID
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireMember rejects guests.
func RequireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.MemberID(r.Context()) == 0 {
			unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="boardcal"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "invalid token"})
}
