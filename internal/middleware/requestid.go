package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestID assigns an id to every request unless the client already sent
// one. The id travels on the X-Request-ID header both ways and lands in
// every error body.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
			r.Header.Set("X-Request-ID", id)
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}
