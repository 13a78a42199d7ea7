package middleware

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/datasweeper/internal/logging"
)

// SessionStore resolves a cookie value to a live session ID, creating a
// session when the value is empty or unknown.
type SessionStore interface {
	EnsureSession(id string) string
}

// SessionCookie is the cookie settings used by Session.
type SessionCookie struct {
	Name   string
	Secure bool
}

// Session attaches a browser session to every request. The session ID is
// kept in an HttpOnly cookie and put on the request context, where
// SessionID and logging.FromContext read it.
func Session(store SessionStore, cookie SessionCookie) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var current string
			if c, err := r.Cookie(cookie.Name); err == nil {
				current = c.Value
			}

			id := store.EnsureSession(current)
			if id != current {
				http.SetCookie(w, &http.Cookie{
					Name:     cookie.Name,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   cookie.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(logging.ContextWithSession(r.Context(), id)))
		})
	}
}

// SessionID returns the session attached by Session.
func SessionID(ctx context.Context) string {
	return logging.SessionFromContext(ctx)
}
