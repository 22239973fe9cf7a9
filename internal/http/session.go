package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"expenses/internal/log"
)

type sessionKey struct{}

// sessionMiddleware makes sure every request carries a session ID in its
// cookie, issuing a fresh UUID when the cookie is missing or malformed.
func sessionMiddleware(cookieName string, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cookieName); err == nil && validID(c.Value) {
				id = c.Value
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := context.WithValue(r.Context(), sessionKey{}, id)
			ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldSessionID, id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionID returns the session set by sessionMiddleware.
func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
