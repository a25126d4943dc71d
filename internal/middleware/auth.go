package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/chorebridge/internal/auth"
	"github.com/dukerupert/chorebridge/internal/model"
	"github.com/dukerupert/chorebridge/internal/store"
)

// APITokenHeader carries a long-lived API token instead of a session JWT.
const APITokenHeader = "secretkey"

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.APIError{Error: msg, Code: status})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireToken authenticates the request with a bearer JWT or an API token
// and populates AuthContext.
func RequireToken(issuer *auth.Issuer, users *store.UserStore, circles *store.CircleStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var user *model.User
			if key := r.Header.Get(APITokenHeader); key != "" {
				u, err := users.GetByAPIToken(key)
				if err != nil {
					writeError(w, http.StatusInternalServerError, "failed to check api token")
					return
				}
				user = u
			} else if tok := bearerToken(r); tok != "" {
				id, _, err := issuer.Parse(tok)
				if err != nil {
					writeError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				u, err := users.GetByID(id)
				if err != nil {
					writeError(w, http.StatusInternalServerError, "failed to get user")
					return
				}
				user = u
			}
			if user == nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			circleID, role, err := circles.CircleForUser(user.ID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to get circle")
				return
			}
			if circleID == 0 {
				writeError(w, http.StatusForbidden, "user is not in a circle")
				return
			}

			ac := auth.AuthContext{
				UserID:   user.ID,
				CircleID: circleID,
				Username: user.Username,
				Role:     role,
				Plan:     user.Plan,
			}
			noteUser(r.Context(), user.Username)
			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePlan rejects callers on the free plan with a 403 that names the
// plan needed.
func RequirePlan(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsPaid(r.Context()) {
			writeError(w, http.StatusForbidden, "this feature requires a Plus subscription")
			return
		}
		next.ServeHTTP(w, r)
	})
}
