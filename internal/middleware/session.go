package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// SessionCookieName carries the browser's session identity. The cookie is
// minted here on first contact; everything the orchestrator holds for a
// client hangs off this id.
const SessionCookieName = "storyloom_session"

const SessionIDKey contextKey = "session_id"

// EnsureSession resolves or mints the session cookie and attaches the
// session id to the request context.
func EnsureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := SessionIDFromRequest(r)
		if !ok {
			id = uuid.New()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    id.String(),
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), SessionIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionIDFromRequest reads the session cookie directly. The WebSocket
// endpoint uses this; it sits outside the middleware chain.
func SessionIDFromRequest(r *http.Request) (uuid.UUID, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetSessionID extracts the session id from request context.
func GetSessionID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(SessionIDKey).(uuid.UUID)
	return id
}
